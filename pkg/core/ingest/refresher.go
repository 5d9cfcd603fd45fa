package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule refreshes the watchlist every weekday after the US close.
const DefaultSchedule = "0 30 22 * * 1-5"

// Refresher periodically fetches a watchlist of tickers.
type Refresher struct {
	fetcher   *Fetcher
	tickers   []string
	lookback  time.Duration
	cron      *cron.Cron
	timeout   time.Duration
	mu        sync.Mutex
	lastRun   time.Time
	lastFails map[string]string
}

// NewRefresher creates a refresher for tickers. lookback sets the price window of
// each run; zero keeps the provider default.
func NewRefresher(fetcher *Fetcher, tickers []string, lookback time.Duration) *Refresher {
	return &Refresher{
		fetcher:  fetcher,
		tickers:  tickers,
		lookback: lookback,
		cron:     cron.New(cron.WithSeconds()),
		timeout:  5 * time.Minute,
	}
}

// Start registers the schedule and starts the cron loop.
func (r *Refresher) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := r.cron.AddFunc(schedule, func() { r.RunOnce(context.Background()) }); err != nil {
		return err
	}
	r.cron.Start()
	log.Info().Str("schedule", schedule).Strs("tickers", r.tickers).Msg("[INGEST] refresher started")
	return nil
}

// Stop stops the cron loop and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	log.Info().Msg("[INGEST] refresher stopped")
}

// RunOnce fetches every ticker sequentially. A failing ticker is logged and
// skipped. It returns the per-ticker error messages.
func (r *Refresher) RunOnce(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fails := make(map[string]string)
	for _, tk := range r.tickers {
		req := FetchRequest{Ticker: tk}
		if r.lookback > 0 {
			req.End = r.fetcher.now()
			req.Start = req.End.Add(-r.lookback)
		}
		if _, err := r.fetcher.Fetch(ctx, req); err != nil {
			log.Error().Str("ticker", tk).Err(err).Msg("[INGEST] refresh failed")
			fails[tk] = err.Error()
		}
	}

	r.mu.Lock()
	r.lastRun = r.fetcher.now()
	r.lastFails = fails
	r.mu.Unlock()

	log.Info().Int("tickers", len(r.tickers)).Int("failed", len(fails)).Msg("[INGEST] refresh complete")
	return fails
}

// LastRun reports when the last refresh finished and which tickers failed.
func (r *Refresher) LastRun() (time.Time, map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.lastFails
}
