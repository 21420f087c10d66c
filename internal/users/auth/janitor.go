// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/gatekeeper/internal/platform/constants"
)

// Janitor periodically deletes expired sessions from a [SessionPurger].
type Janitor struct {
	purger   SessionPurger
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewJanitor creates a janitor. A non-positive interval means [constants.SessionSweepInterval].
func NewJanitor(purger SessionPurger, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = constants.SessionSweepInterval
	}
	return &Janitor{purger: purger, interval: interval, now: time.Now, logger: logger}
}

// Run sweeps every interval until ctx is cancelled.
func (janitor *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(janitor.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = janitor.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one purge and logs its outcome.
func (janitor *Janitor) Sweep(ctx context.Context) (int64, error) {
	purged, err := janitor.purger.PurgeExpiredSessions(ctx, janitor.now())
	if err != nil {
		janitor.logger.WarnContext(ctx, "session_purge_failed", slog.Any("error", err))
		return 0, err
	}

	if purged > 0 {
		SessionsPurged.Add(float64(purged))
		janitor.logger.InfoContext(ctx, "sessions_purged", slog.Int64("count", purged))
	}
	return purged, nil
}
