package view

import (
	"sync"

	"github.com/mr1hm/go-quake-feed/internal/models"
)

// Compose builds the derived view for one (snapshot, filter) pair. The
// histogram covers the whole snapshot, not just the filtered events.
// A nil snapshot gives an empty view with all bands at zero.
func Compose(snap *models.Snapshot, f models.FilterState) models.DerivedView {
	var events []models.EarthquakeEvent
	if snap != nil {
		events = snap.Events
	}

	filtered := Apply(events, f)
	return models.DerivedView{
		Filtered:  filtered,
		Histogram: Bucket(events),
		Total:     len(events),
		Shown:     len(filtered),
	}
}

// Memo remembers the last composed view and reuses it while both the
// snapshot pointer and the filter are unchanged. Snapshots are never mutated
// after publication, so pointer identity is enough. Returned views are shared
// between callers and must be treated as read-only.
type Memo struct {
	mu     sync.Mutex
	snap   *models.Snapshot
	filter models.FilterState
	view   models.DerivedView
	valid  bool
}

func (m *Memo) Compose(snap *models.Snapshot, f models.FilterState) models.DerivedView {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.snap == snap && m.filter == f {
		return m.view
	}

	m.view = Compose(snap, f)
	m.snap = snap
	m.filter = f
	m.valid = true
	return m.view
}
