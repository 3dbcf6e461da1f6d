package progress

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Renderer periodically logs tracker snapshots. It combines a ticker for
// steady output with a rate limiter so event-driven nudges (Poke) cannot
// flood the log between ticks.
type Renderer struct {
	tracker *Tracker
	logger  *slog.Logger
	limiter *rate.Limiter
	every   time.Duration
}

// NewRenderer builds a renderer that emits at most one line per interval.
func NewRenderer(t *Tracker, logger *slog.Logger, every time.Duration) *Renderer {
	if every <= 0 {
		every = 5 * time.Second
	}
	return &Renderer{
		tracker: t,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(every), 1),
		every:   every,
	}
}

// Poke logs a snapshot if the rate limiter allows it. Safe to call from hot
// paths after notable events (batch finished, retry entered).
func (r *Renderer) Poke() {
	if r.limiter.Allow() {
		r.logger.Info("progress", "counters", r.tracker.Snapshot())
	}
}

// Run emits snapshots until ctx is cancelled, then a final one so the last
// log line reflects the end state. Meant to run in its own goroutine.
func (r *Renderer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("progress", "counters", r.tracker.Snapshot())
			return
		case <-ticker.C:
			r.Poke()
		}
	}
}
