package session

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner bulk-deactivates expired sessions.
type Cleaner struct {
	store   Store
	log     *slog.Logger
	metrics *Metrics
}

// NewCleaner returns a Cleaner over store. log and metrics may be nil.
func NewCleaner(store Store, log *slog.Logger, metrics *Metrics) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{store: store, log: log, metrics: metrics}
}

// Sweep deactivates every active session whose expires_at is before now.
func (c *Cleaner) Sweep(ctx context.Context, now time.Time) (int64, error) {
	n, err := c.store.DeactivateAllExpired(ctx, now)
	if err != nil {
		return 0, storageErr("deactivate_all_expired", err)
	}
	if n > 0 {
		c.log.Debug("session.cleanup.sweep", "deactivated", n)
	}
	c.metrics.sweep(n)
	return n, nil
}

// Run sweeps every interval until ctx is done. Sweep failures are logged and
// retried on the next tick. Returns nil on cancellation.
func (c *Cleaner) Run(ctx context.Context, interval time.Duration, clock func() time.Time) error {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	c.log.Info("session.cleanup.start", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			c.log.Info("session.cleanup.stop")
			return nil
		case <-t.C:
			if _, err := c.Sweep(ctx, clock()); err != nil && ctx.Err() == nil {
				c.log.Error("session.cleanup.fail", "err", err)
			}
		}
	}
}
