package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the reporting period used when Reporter.Interval is zero.
const DefaultInterval = 10 * time.Second

// Reporter periodically logs a Stats snapshot. It only reads the counters.
type Reporter struct {
	Stats    *Stats
	Interval time.Duration
	Logger   zerolog.Logger
}

// Run logs a snapshot on every tick until ctx is done.
func (r *Reporter) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Report()
		}
	}
}

// Report logs the current snapshot once and returns it.
func (r *Reporter) Report() Snapshot {
	snap := r.Stats.Snapshot()
	r.Logger.Info().
		Uint64("processed", snap.Processed).
		Uint64("errors", snap.Errors).
		Uint64("error_pct", snap.ErrorPercent()).
		Uint64("avg_us", snap.AverageMicros()).
		Uint64("active_layers", snap.ActiveLayers).
		Str("health", snap.Health()).
		Msg("metrics")
	return snap
}
