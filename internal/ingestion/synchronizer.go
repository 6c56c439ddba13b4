package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-quake-feed/internal/models"
	"github.com/mr1hm/go-quake-feed/internal/observability"
	"github.com/mr1hm/go-quake-feed/internal/repository"
	"github.com/mr1hm/go-quake-feed/internal/stream"
	"github.com/mr1hm/go-quake-feed/internal/worker"
)

type Option func(*Synchronizer)

func WithClock(c clockwork.Clock) Option {
	return func(s *Synchronizer) { s.clock = c }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Synchronizer) { s.metrics = m }
}

func WithBroadcaster(b *stream.Broadcaster) Option {
	return func(s *Synchronizer) { s.broadcaster = b }
}

// WithFeeds sets the descriptors SelectKey can resolve.
func WithFeeds(feeds []models.FeedDescriptor) Option {
	return func(s *Synchronizer) { s.feeds = append([]models.FeedDescriptor(nil), feeds...) }
}

func WithWorkers(count, bufferSize int) Option {
	return func(s *Synchronizer) {
		s.workerCount = count
		s.bufferSize = bufferSize
	}
}

// WithSnapshotStore persists every published snapshot and enables Restore.
func WithSnapshotStore(r repository.SnapshotRepository) Option {
	return func(s *Synchronizer) { s.store = r }
}

// WithRefreshInterval re-fetches the selected feed periodically, but only
// after a successful fetch. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Synchronizer) { s.refreshInterval = d }
}

type fetchRequest struct {
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
	id     string
	feed   models.FeedDescriptor
}

// Synchronizer owns the fetch lifecycle of the selected feed. At most one
// request is current; results of superseded requests are discarded, so the
// last issued request wins regardless of completion order.
type Synchronizer struct {
	fetcher         Fetcher
	feeds           []models.FeedDescriptor
	clock           clockwork.Clock
	metrics         *observability.Metrics
	broadcaster     *stream.Broadcaster
	store           repository.SnapshotRepository
	workerCount     int
	bufferSize      int
	refreshInterval time.Duration

	pool *worker.Pool[*fetchRequest]
	wg   sync.WaitGroup

	// persistMu orders saves so the store never goes back to an older snapshot.
	persistMu sync.Mutex

	mu       sync.Mutex
	baseCtx  context.Context
	stopBase context.CancelFunc
	running  bool
	stopped  bool
	gen      uint64
	current  *fetchRequest
	selected *models.FeedDescriptor
	snapshot *models.Snapshot
	state    models.SyncState
}

func NewSynchronizer(fetcher Fetcher, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		fetcher:     fetcher,
		clock:       clockwork.NewRealClock(),
		workerCount: 2,
		bufferSize:  16,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.broadcaster == nil {
		s.broadcaster = stream.NewBroadcaster()
	}
	s.state = models.SyncState{Status: models.StatusIdle, UpdatedAt: s.clock.Now()}
	return s
}

func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.baseCtx, s.stopBase = context.WithCancel(ctx)
	s.pool = worker.NewPool(s.workerCount, s.bufferSize, s.process)
	s.pool.Start(s.baseCtx)
	s.running = true
	baseCtx := s.baseCtx
	s.mu.Unlock()

	if s.refreshInterval > 0 {
		s.wg.Add(1)
		go s.runRefresher(baseCtx)
	}
	slog.Info("synchronizer started", "workers", s.workerCount, "refresh_interval", s.refreshInterval)
}

// Stop cancels the live request and waits for the workers to drain.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	wasRunning := s.running && !s.stopped
	s.stopped = true
	if wasRunning {
		if s.current != nil {
			s.current.cancel()
		}
		s.stopBase()
	}
	s.mu.Unlock()

	if !wasRunning {
		return
	}
	s.wg.Wait()
	s.pool.Stop()
	slog.Info("synchronizer stopped")
}

// Select makes feed the current selection and starts fetching it. Any
// request still in flight is cancelled first and its result will be ignored.
func (s *Synchronizer) Select(feed models.FeedDescriptor) error {
	s.mu.Lock()
	req, err := s.issueLocked(feed)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.submit(req)
}

func (s *Synchronizer) SelectKey(key string) error {
	feed, ok := s.Feed(key)
	if !ok {
		return ErrUnknownFeed
	}
	return s.Select(feed)
}

// Retry re-issues the request for the current selection.
func (s *Synchronizer) Retry() error {
	s.mu.Lock()
	if s.selected == nil {
		s.mu.Unlock()
		return ErrNoFeedSelected
	}
	req, err := s.issueLocked(*s.selected)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.submit(req)
}

// issueLocked invalidates the current request before creating its successor.
// Callers hold s.mu.
func (s *Synchronizer) issueLocked(feed models.FeedDescriptor) (*fetchRequest, error) {
	if !s.running || s.stopped {
		return nil, ErrStopped
	}
	if s.current != nil {
		s.current.cancel()
	}

	s.gen++
	ctx, cancel := context.WithCancel(s.baseCtx)
	req := &fetchRequest{
		ctx:    ctx,
		cancel: cancel,
		gen:    s.gen,
		id:     uuid.NewString(),
		feed:   feed,
	}
	s.current = req
	s.selected = &req.feed
	s.setStateLocked(models.SyncState{
		Status:    models.StatusLoading,
		Feed:      feed.Key,
		RequestID: req.id,
	})

	slog.Info("fetching feed", "feed", feed.Key, "request_id", req.id)
	return req, nil
}

func (s *Synchronizer) submit(req *fetchRequest) error {
	if err := s.pool.Submit(req.ctx, req); err != nil {
		if errors.Is(err, worker.ErrPoolClosed) {
			return ErrStopped
		}
		// Superseded before it reached the queue.
		s.recordOutcome(req.feed.Key, observability.OutcomeCancelled)
	}
	return nil
}

func (s *Synchronizer) process(ctx context.Context, req *fetchRequest) {
	if req.ctx.Err() != nil {
		req.cancel()
		s.recordOutcome(req.feed.Key, observability.OutcomeCancelled)
		return
	}

	start := s.clock.Now()
	features, err := s.fetcher.Fetch(req.ctx, req.feed.URL)

	var (
		events  []models.EarthquakeEvent
		dropped int
	)
	if err == nil {
		events, dropped = NormalizeAll(features)
	}
	snap := s.commit(req, events, dropped, err, s.clock.Since(start))
	if snap != nil {
		s.persist(ctx, snap)
	}
}

// persist saves snap unless a newer snapshot has been published meanwhile.
func (s *Synchronizer) persist(ctx context.Context, snap *models.Snapshot) {
	if s.store == nil {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	current := s.snapshot == snap
	s.mu.Unlock()
	if !current {
		slog.Debug("skipping superseded snapshot", "feed", snap.SourceKey, "request_id", snap.RequestID)
		return
	}

	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		slog.Warn("failed to persist snapshot", "feed", snap.SourceKey, "request_id", snap.RequestID, "error", err)
	}
}

// commit publishes the outcome of req if, and only if, req is still the
// current request. It returns the new snapshot when one was published.
func (s *Synchronizer) commit(req *fetchRequest, events []models.EarthquakeEvent, dropped int, err error, elapsed time.Duration) *models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer req.cancel()

	if req.gen != s.gen {
		slog.Debug("discarding stale response", "feed", req.feed.Key, "request_id", req.id)
		s.recordOutcome(req.feed.Key, observability.OutcomeStale)
		return nil
	}
	if req.ctx.Err() != nil || errors.Is(err, ErrCancelled) {
		s.recordOutcome(req.feed.Key, observability.OutcomeCancelled)
		return nil
	}

	if s.metrics != nil {
		s.metrics.FetchDuration.WithLabelValues(req.feed.Key).Observe(elapsed.Seconds())
	}

	if err != nil {
		slog.Error("fetch failed", "feed", req.feed.Key, "request_id", req.id, "error", err)
		s.recordOutcome(req.feed.Key, observability.OutcomeError)
		s.setStateLocked(models.SyncState{
			Status:    models.StatusError,
			Feed:      req.feed.Key,
			Message:   err.Error(),
			RequestID: req.id,
		})
		return nil
	}

	if dropped > 0 {
		slog.Warn("dropped malformed records", "feed", req.feed.Key, "request_id", req.id, "dropped", dropped)
		if s.metrics != nil {
			s.metrics.RecordsDropped.WithLabelValues(req.feed.Key).Add(float64(dropped))
		}
	}

	s.snapshot = &models.Snapshot{
		SourceKey: req.feed.Key,
		Events:    events,
		FetchedAt: s.clock.Now(),
		RequestID: req.id,
	}
	if s.metrics != nil {
		s.metrics.SnapshotEvents.Set(float64(len(events)))
	}
	s.recordOutcome(req.feed.Key, observability.OutcomeSuccess)
	s.setStateLocked(models.SyncState{
		Status:    models.StatusSuccess,
		Feed:      req.feed.Key,
		RequestID: req.id,
	})

	slog.Info("snapshot updated", "feed", req.feed.Key, "request_id", req.id, "count", len(events), "duration", elapsed)
	return s.snapshot
}

// setStateLocked publishes under s.mu so subscribers see updates in order.
func (s *Synchronizer) setStateLocked(st models.SyncState) {
	st.UpdatedAt = s.clock.Now()
	s.state = st
	s.broadcaster.Broadcast(st)
}

func (s *Synchronizer) recordOutcome(feed, outcome string) {
	if s.metrics != nil {
		s.metrics.FetchesTotal.WithLabelValues(feed, outcome).Inc()
	}
}

func (s *Synchronizer) runRefresher(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.refresh()
		}
	}
}

func (s *Synchronizer) refresh() {
	s.mu.Lock()
	if s.selected == nil || s.state.Status != models.StatusSuccess {
		s.mu.Unlock()
		return
	}
	req, err := s.issueLocked(*s.selected)
	s.mu.Unlock()
	if err != nil {
		return
	}
	slog.Debug("refreshing feed", "feed", req.feed.Key)
	_ = s.submit(req)
}

// Restore seeds the snapshot with the stored one for key, unless a snapshot
// has already been published. Status is left untouched.
func (s *Synchronizer) Restore(ctx context.Context, key string) error {
	if s.store == nil {
		return nil
	}
	if _, ok := s.Feed(key); !ok {
		return ErrUnknownFeed
	}

	snap, err := s.store.LatestSnapshot(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restoring %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot != nil {
		return nil
	}
	s.snapshot = snap
	if s.metrics != nil {
		s.metrics.SnapshotEvents.Set(float64(len(snap.Events)))
	}
	slog.Info("snapshot restored", "feed", key, "request_id", snap.RequestID, "count", len(snap.Events), "fetched_at", snap.FetchedAt)
	return nil
}

// Snapshot returns the current snapshot. It is shared and must not be modified.
func (s *Synchronizer) Snapshot() (*models.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, s.snapshot != nil
}

func (s *Synchronizer) State() models.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Synchronizer) Selected() (models.FeedDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return models.FeedDescriptor{}, false
	}
	return *s.selected, true
}

func (s *Synchronizer) Feeds() []models.FeedDescriptor {
	return append([]models.FeedDescriptor(nil), s.feeds...)
}

func (s *Synchronizer) Feed(key string) (models.FeedDescriptor, bool) {
	for _, f := range s.feeds {
		if f.Key == key {
			return f, true
		}
	}
	return models.FeedDescriptor{}, false
}

// Subscribe streams every state change from now on.
func (s *Synchronizer) Subscribe() (uint64, <-chan models.SyncState) {
	return s.broadcaster.Subscribe()
}

func (s *Synchronizer) Unsubscribe(id uint64) {
	s.broadcaster.Unsubscribe(id)
}
