// Package poller refetches orders and tables on a fixed interval while the
// terminal is open, as a safety net under the push feed. Staleness is
// handled downstream: the caches discard rows older than what they hold.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval matches the dashboard's refetch cadence for open detail
// views.
const DefaultInterval = 3 * time.Second

// Refresher refetches one cache from the backend. Satisfied by
// *orders.Coordinator and *tables.Manager.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Poller drives a set of refreshers on a ticker.
type Poller struct {
	refreshers []Refresher
	interval   time.Duration
	log        *zap.Logger
}

// New creates a Poller. A non-positive interval falls back to
// DefaultInterval; log may be nil.
func New(interval time.Duration, log *zap.Logger, refreshers ...Refresher) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{refreshers: refreshers, interval: interval, log: log}
}

// Run polls until ctx is cancelled. A failed poll is logged and the next
// tick tries again; polling failures are not user-facing mutations and
// trigger no rollback.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, r := range p.refreshers {
				if err := r.Refresh(ctx); err != nil {
					if ctx.Err() != nil {
						return
					}
					p.log.Warn("poll failed", zap.Error(err))
				}
			}
		}
	}
}
