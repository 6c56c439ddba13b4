package models

import (
	"fmt"
	"time"
)

type FetchStatus int

const (
	StatusIdle FetchStatus = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s FetchStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("FetchStatus(%d)", int(s))
	}
}

func (s FetchStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *FetchStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = StatusIdle
	case "loading":
		*s = StatusLoading
	case "success":
		*s = StatusSuccess
	case "error":
		*s = StatusError
	default:
		return fmt.Errorf("unknown fetch status: %q", string(b))
	}
	return nil
}

// Terminal reports whether the request that produced this status has finished.
func (s FetchStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// SyncState is the fetch lifecycle as seen by the presentation layer.
type SyncState struct {
	Status    FetchStatus `json:"status"`
	Feed      string      `json:"feed,omitempty"`
	Message   string      `json:"message,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}
