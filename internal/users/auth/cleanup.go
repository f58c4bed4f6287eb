// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package auth

import (
	"context"
	"log/slog"
	"time"
)

// SessionPurger is the part of [Service] the [Janitor] depends on.
type SessionPurger interface {
	CleanExpiredSessions(ctx context.Context) (int64, error)
}

// Janitor periodically deletes sessions that can never be used again.
// Failures are logged and retried on the next tick.
type Janitor struct {
	purger   SessionPurger
	interval time.Duration
	logger   *slog.Logger
}

// NewJanitor builds a janitor. A non-positive interval disables it.
func NewJanitor(purger SessionPurger, interval time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{purger: purger, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, purging once per interval.
func (janitor *Janitor) Run(ctx context.Context) {
	if janitor.interval <= 0 {
		janitor.logger.InfoContext(ctx, "session_janitor_disabled")
		return
	}

	ticker := time.NewTicker(janitor.interval)
	defer ticker.Stop()

	janitor.logger.InfoContext(ctx, "session_janitor_started", slog.Duration("interval", janitor.interval))

	for {
		select {
		case <-ctx.Done():
			janitor.logger.InfoContext(ctx, "session_janitor_stopped")
			return
		case <-ticker.C:
			janitor.sweep(ctx)
		}
	}
}

func (janitor *Janitor) sweep(ctx context.Context) {
	if _, err := janitor.purger.CleanExpiredSessions(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		janitor.logger.ErrorContext(ctx, "session_purge_failed", slog.String("error", err.Error()))
	}
}
