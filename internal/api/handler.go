package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-quake-feed/internal/ingestion"
	"github.com/mr1hm/go-quake-feed/internal/models"
	"github.com/mr1hm/go-quake-feed/internal/observability"
	"github.com/mr1hm/go-quake-feed/internal/view"
)

// FeedSynchronizer is the part of ingestion.Synchronizer the API needs.
type FeedSynchronizer interface {
	Feeds() []models.FeedDescriptor
	Selected() (models.FeedDescriptor, bool)
	SelectKey(key string) error
	Retry() error
	State() models.SyncState
	Snapshot() (*models.Snapshot, bool)
	Subscribe() (uint64, <-chan models.SyncState)
	Unsubscribe(id uint64)
}

type Handler struct {
	sync    FeedSynchronizer
	clock   clockwork.Clock
	metrics *observability.Metrics
	memo    view.Memo
}

// NewHandler builds the HTTP handlers. metrics may be nil.
func NewHandler(sync FeedSynchronizer, clock clockwork.Clock, metrics *observability.Metrics) *Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handler{
		sync:    sync,
		clock:   clock,
		metrics: metrics,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g := r.Group("/api")
	g.GET("/feeds", h.getFeeds)
	g.POST("/feeds/:key/select", h.selectFeed)
	g.POST("/retry", h.retry)
	g.GET("/state", h.getState)
	g.GET("/view", h.getView)
	g.GET("/earthquakes", h.getEarthquakes)
	g.GET("/histogram", h.getHistogram)
	g.GET("/stream", h.stream)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type feedResponse struct {
	models.FeedDescriptor
	Selected bool `json:"selected"`
}

func (h *Handler) getFeeds(c *gin.Context) {
	selected, hasSelection := h.sync.Selected()

	feeds := h.sync.Feeds()
	out := make([]feedResponse, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, feedResponse{
			FeedDescriptor: f,
			Selected:       hasSelection && f.Key == selected.Key,
		})
	}

	c.JSON(http.StatusOK, gin.H{"feeds": out})
}

func (h *Handler) selectFeed(c *gin.Context) {
	key := c.Param("key")
	if err := h.sync.SelectKey(key); err != nil {
		h.writeSyncError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"state": h.sync.State()})
}

func (h *Handler) retry(c *gin.Context) {
	if err := h.sync.Retry(); err != nil {
		h.writeSyncError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"state": h.sync.State()})
}

func (h *Handler) writeSyncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ingestion.ErrUnknownFeed):
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown feed: %s", c.Param("key"))})
	case errors.Is(err, ingestion.ErrNoFeedSelected):
		c.JSON(http.StatusConflict, gin.H{"error": "no feed selected"})
	case errors.Is(err, ingestion.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feed synchronizer is not running"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start fetch"})
	}
}

type snapshotMeta struct {
	Source    string    `json:"source"`
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetched_at"`
	RequestID string    `json:"request_id"`
}

func (h *Handler) getState(c *gin.Context) {
	resp := gin.H{"state": h.sync.State()}
	if snap, ok := h.sync.Snapshot(); ok {
		resp["snapshot"] = snapshotMeta{
			Source:    snap.SourceKey,
			Count:     len(snap.Events),
			FetchedAt: snap.FetchedAt,
			RequestID: snap.RequestID,
		}
	} else {
		resp["snapshot"] = nil
	}
	c.JSON(http.StatusOK, resp)
}

// EventView is an event plus the presentation fields derived from it.
type EventView struct {
	models.EarthquakeEvent
	Color      view.Color `json:"color"`
	ColorClass string     `json:"color_class"`
	Radius     float64    `json:"radius"`
	Age        string     `json:"age"`
}

func decorate(e models.EarthquakeEvent, nowMillis int64) EventView {
	color := view.ColorOf(e.Magnitude)
	return EventView{
		EarthquakeEvent: e,
		Color:           color,
		ColorClass:      color.Class(),
		Radius:          view.RadiusOf(view.MagnitudeOrZero(e.Magnitude)),
		Age:             view.RelativeAge(e.TimeMillis, nowMillis),
	}
}

type viewResponse struct {
	Source    string                `json:"source,omitempty"`
	Filter    models.FilterState    `json:"filter"`
	Total     int                   `json:"total"`
	Shown     int                   `json:"shown"`
	Histogram []models.HistogramBin `json:"histogram"`
	Events    []EventView           `json:"events"`
	State     models.SyncState      `json:"state"`
}

func (h *Handler) getView(c *gin.Context) {
	filter, limit, err := parseViewQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, _ := h.sync.Snapshot()
	dv := h.compose(snap, filter)
	now := h.clock.Now().UnixMilli()

	shown := truncate(dv.Filtered, limit)
	events := make([]EventView, 0, len(shown))
	for _, e := range shown {
		events = append(events, decorate(e, now))
	}

	resp := viewResponse{
		Filter:    filter,
		Total:     dv.Total,
		Shown:     dv.Shown,
		Histogram: dv.Histogram,
		Events:    events,
		State:     h.sync.State(),
	}
	if snap != nil {
		resp.Source = snap.SourceKey
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getEarthquakes(c *gin.Context) {
	filter, limit, err := parseViewQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, _ := h.sync.Snapshot()
	dv := h.compose(snap, filter)

	fc := toGeoJSON(truncate(dv.Filtered, limit), h.clock.Now().UnixMilli())
	fc.Metadata.Total = dv.Total
	fc.Metadata.Shown = dv.Shown
	if snap != nil {
		fc.Metadata.Source = snap.SourceKey
		fetchedAt := snap.FetchedAt
		fc.Metadata.FetchedAt = &fetchedAt
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) getHistogram(c *gin.Context) {
	snap, _ := h.sync.Snapshot()
	var events []models.EarthquakeEvent
	if snap != nil {
		events = snap.Events
	}
	c.JSON(http.StatusOK, gin.H{
		"bins":  view.Bucket(events),
		"total": len(events),
	})
}

func (h *Handler) compose(snap *models.Snapshot, f models.FilterState) models.DerivedView {
	start := h.clock.Now()
	dv := h.memo.Compose(snap, f)
	if h.metrics != nil {
		h.metrics.ViewComputation.Observe(h.clock.Since(start).Seconds())
	}
	return dv
}

// parseViewQuery reads min_magnitude, q, sort and limit. A zero limit means
// no limit.
func parseViewQuery(c *gin.Context) (models.FilterState, int, error) {
	filter := models.DefaultFilter()

	if m := strings.TrimSpace(c.Query("min_magnitude")); m != "" {
		mag, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return filter, 0, fmt.Errorf("invalid min_magnitude: %q", m)
		}
		filter.MinMagnitude = mag
	}

	filter.SearchText = c.Query("q")

	sortKey, err := models.ParseSortKey(c.Query("sort"))
	if err != nil {
		return filter, 0, err
	}
	filter.SortKey = sortKey

	if err := filter.Validate(); err != nil {
		return filter, 0, err
	}

	limit := 0
	if l := strings.TrimSpace(c.Query("limit")); l != "" {
		lim, err := strconv.Atoi(l)
		if err != nil || lim < 0 {
			return filter, 0, fmt.Errorf("invalid limit: %q", l)
		}
		limit = lim
	}

	return filter, limit, nil
}

func truncate(events []models.EarthquakeEvent, limit int) []models.EarthquakeEvent {
	if limit > 0 && len(events) > limit {
		return events[:limit]
	}
	return events
}
