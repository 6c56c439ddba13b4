package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled marks a request that was superseded by a newer selection.
	// It is never shown to users.
	ErrCancelled = errors.New("request cancelled")

	ErrMalformedRecord = errors.New("malformed record")
	ErrUnknownFeed     = errors.New("unknown feed")
	ErrNoFeedSelected  = errors.New("no feed selected")
	ErrStopped         = errors.New("synchronizer stopped")
)

// NetworkError is a failed feed request: transport failure, non-200 status
// or a payload that could not be decoded.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("Network error: %d", e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("Network error: %v", e.Err)
	}
	return "Network error"
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
