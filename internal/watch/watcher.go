package watch

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/imtihanhq/imtihanctl/internal/domain/result"
	"github.com/imtihanhq/imtihanctl/internal/notify"
	"github.com/imtihanhq/imtihanctl/internal/observability"
	"github.com/imtihanhq/imtihanctl/internal/state"
)

// ResultsFetcher is the slice of the API surface the watcher needs.
// Kept as a small interface so tests can fake it easily.
type ResultsFetcher interface {
	Results(ctx context.Context, limit int, cursor string) ([]result.Result, string, error)
}

type Config struct {
	Interval time.Duration
	Limit    int
}

// Watcher polls for new exam results and announces each one exactly
// once, resuming from a cursor persisted in the state store.
type Watcher struct {
	cfg      Config
	fetcher  ResultsFetcher
	notifier notify.Notifier
	store    state.Store
	metrics  *observability.WatchMetrics
	log      *slog.Logger
}

func New(cfg Config, fetcher ResultsFetcher, notifier notify.Notifier, store state.Store, metrics *observability.WatchMetrics, log *slog.Logger) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}

	return &Watcher{
		cfg:      cfg,
		fetcher:  fetcher,
		notifier: notifier,
		store:    store,
		metrics:  metrics,
		log:      log,
	}
}

func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	consecutiveFailures := 0

	for {
		n, err := w.PollOnce(ctx)

		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("watcher received shutdown signal")
				return nil
			}

			consecutiveFailures++
			w.metrics.IncFailures()

			delay := ExponentialBackoff(consecutiveFailures - 1)
			w.log.Warn("poll failed, backing off", "err", err, "delay", delay.String(), "failures", consecutiveFailures)

			select {
			case <-ctx.Done():
				w.log.Info("watcher received shutdown signal")
				return nil
			case <-time.After(delay):
			}
			continue
		}

		consecutiveFailures = 0

		if n > 0 {
			w.log.Info("announced new results", "count", n)
		}

		select {
		case <-ctx.Done():
			w.log.Info("watcher received shutdown signal")
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce fetches the latest results, announces the unseen ones in
// submission order and advances the persisted cursor.
func (w *Watcher) PollOnce(ctx context.Context) (int, error) {
	start := time.Now()
	w.metrics.IncPolls()
	defer func() {
		w.metrics.ObserveDuration(time.Since(start))
	}()

	results, _, err := w.fetcher.Results(ctx, w.cfg.Limit, "")

	if err != nil {
		return 0, err
	}

	cursor := w.loadCursor()

	var fresh []result.Result

	for _, r := range results {
		if !cursor.SeenBefore(r) {
			fresh = append(fresh, r)
		}
	}

	if len(fresh) == 0 {
		return 0, nil
	}

	sort.Slice(fresh, func(i, j int) bool {
		if fresh[i].SubmittedAt.Equal(fresh[j].SubmittedAt) {
			return fresh[i].ID < fresh[j].ID
		}
		return fresh[i].SubmittedAt.Before(fresh[j].SubmittedAt)
	})

	announced := 0

	for _, r := range fresh {
		if err := w.notifier.AnnounceResult(ctx, r); err != nil {
			w.metrics.IncNotifyFailed()
			// stop here; the cursor stays behind so this result is
			// retried on the next poll
			return announced, err
		}

		w.metrics.IncNotified()
		announced++

		if err := w.saveCursor(r); err != nil {
			w.log.Warn("cursor persist failed", "err", err)
		}
	}

	w.metrics.IncNewResults(announced)

	return announced, nil
}

func (w *Watcher) loadCursor() ResultCursor {
	raw, ok := w.store.Get(state.KeyResultsCursor)

	if !ok {
		return ResultCursor{}
	}

	c, err := DecodeResultCursor(raw)

	if err != nil {
		w.log.Debug("stored cursor unreadable, starting over", "err", err)
		return ResultCursor{}
	}

	return c
}

func (w *Watcher) saveCursor(r result.Result) error {
	enc, err := EncodeResultCursor(r.SubmittedAt, r.ID)

	if err != nil {
		return err
	}

	return w.store.Set(state.KeyResultsCursor, enc)
}
