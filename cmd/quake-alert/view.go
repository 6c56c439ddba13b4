package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-quake-feed/internal/ingestion"
	"github.com/mr1hm/go-quake-feed/internal/models"
	"github.com/mr1hm/go-quake-feed/internal/view"
)

const defaultLimit = 60

type viewOptions struct {
	feed    string
	minMag  float64
	search  string
	sort    string
	limit   int
	timeout time.Duration
}

func newViewCmd(root *rootOptions) *cobra.Command {
	opts := &viewOptions{}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Fetch a feed and print the matching events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.feed, "feed", "", "feed key (default from DEFAULT_FEED)")
	cmd.Flags().Float64Var(&opts.minMag, "min-mag", 0, "minimum magnitude, 0 shows everything")
	cmd.Flags().StringVar(&opts.search, "search", "", "case-insensitive place search")
	cmd.Flags().StringVar(&opts.sort, "sort", string(models.SortTimeDesc), "time_desc, time_asc, mag_desc or mag_asc")
	cmd.Flags().IntVar(&opts.limit, "limit", defaultLimit, "maximum rows to print, 0 for all")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "request timeout (default from FETCH_TIMEOUT)")
	return cmd
}

func runView(cmd *cobra.Command, root *rootOptions, opts *viewOptions) error {
	cfg := root.cfg

	sortKey, err := models.ParseSortKey(opts.sort)
	if err != nil {
		return err
	}
	filter := models.FilterState{
		MinMagnitude: opts.minMag,
		SearchText:   opts.search,
		SortKey:      sortKey,
	}
	if err := filter.Validate(); err != nil {
		return err
	}
	if opts.limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", opts.limit)
	}

	key := opts.feed
	if key == "" {
		key = cfg.Feeds.Default
	}
	feed, ok := cfg.Feed(key)
	if !ok {
		return fmt.Errorf("%w: %s", ingestion.ErrUnknownFeed, key)
	}

	timeout := opts.timeout
	if timeout <= 0 {
		timeout = cfg.Feeds.FetchTimeout
	}

	snap, err := fetchSnapshot(cmd.Context(), ingestion.NewUSGSClient(timeout), cfg.Feeds.Sources, feed, timeout)
	if err != nil {
		return err
	}

	dv := view.Compose(snap, filter)
	renderView(cmd.OutOrStdout(), feed, dv, opts.limit, time.Now().UnixMilli())
	return nil
}

// fetchSnapshot runs one request through a synchronizer and waits for its
// outcome.
func fetchSnapshot(ctx context.Context, fetcher ingestion.Fetcher, feeds []models.FeedDescriptor, feed models.FeedDescriptor, timeout time.Duration) (*models.Snapshot, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sync := ingestion.NewSynchronizer(fetcher,
		ingestion.WithFeeds(feeds),
		ingestion.WithWorkers(1, 1),
	)
	sync.Start(ctx)
	defer sync.Stop()

	id, updates := sync.Subscribe()
	defer sync.Unsubscribe(id)

	if err := sync.Select(feed); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fetching %s: %w", feed.Key, ctx.Err())
		case st, ok := <-updates:
			if !ok {
				return nil, ingestion.ErrStopped
			}
			if !st.Status.Terminal() {
				continue
			}
			if st.Status == models.StatusError {
				return nil, errors.New(st.Message)
			}
			snap, _ := sync.Snapshot()
			return snap, nil
		}
	}
}
