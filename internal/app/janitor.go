package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Janitor periodically removes expired sessions and idle visitor
// preferences.
type Janitor struct {
	auth     *AuthService
	prefs    *PreferenceStore
	idle     time.Duration
	interval time.Duration
	log      *zap.Logger
}

// NewJanitor creates a Janitor sweeping every interval.
func NewJanitor(auth *AuthService, prefs *PreferenceStore, idle, interval time.Duration, log *zap.Logger) *Janitor {
	return &Janitor{auth: auth, prefs: prefs, idle: idle, interval: interval, log: log}
}

// Run sweeps until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	t := time.NewTicker(j.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep performs a single cleanup pass.
func (j *Janitor) Sweep(ctx context.Context) {
	n, err := j.auth.CleanupSessions(ctx)
	if err != nil {
		j.log.Error("delete expired sessions", zap.Error(err))
	}
	evicted := j.prefs.Evict(j.idle)
	if n > 0 || evicted > 0 {
		j.log.Debug("janitor sweep", zap.Int64("sessions", n), zap.Int("preferences", evicted))
	}
}
