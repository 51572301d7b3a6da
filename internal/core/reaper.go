package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultSweepInterval     = time.Minute
	DefaultInactivityTimeout = 30 * time.Minute
)

// Reaper periodically removes idle or empty rooms.
type Reaper struct {
	rooms    *RoomRegistry
	interval time.Duration
	timeout  time.Duration
	log      *zerolog.Logger
}

// NewReaper builds a reaper; non-positive durations fall back to defaults.
func NewReaper(rooms *RoomRegistry, interval, timeout time.Duration, logger *zerolog.Logger) *Reaper {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if timeout <= 0 {
		timeout = DefaultInactivityTimeout
	}
	return &Reaper{rooms: rooms, interval: interval, timeout: timeout, log: logger}
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Dur("timeout", r.timeout).Msg("room reaper started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("room reaper stopped")
			return nil
		case <-ticker.C:
			r.SweepOnce()
		}
	}
}

// SweepOnce runs a single pass and returns the removed room codes.
func (r *Reaper) SweepOnce() []string {
	removed := r.rooms.Sweep(r.timeout)
	for _, code := range removed {
		r.log.Info().Str("room", code).Msg("inactive room removed")
	}
	return removed
}
