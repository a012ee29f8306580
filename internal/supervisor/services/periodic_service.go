// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package services

import (
	"context"
	"time"

	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/metrics"
)

// PeriodicService runs a task on a fixed interval. Task errors are logged
// and the next tick runs as usual.
type PeriodicService struct {
	name       string
	interval   time.Duration
	runOnStart bool
	task       func(ctx context.Context) error
}

// NewPeriodicService creates a ticker-driven service. A non-positive
// interval defaults to one minute.
func NewPeriodicService(name string, interval time.Duration, runOnStart bool, task func(ctx context.Context) error) *PeriodicService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PeriodicService{
		name:       name,
		interval:   interval,
		runOnStart: runOnStart,
		task:       task,
	}
}

// Serve implements suture.Service.
func (s *PeriodicService) Serve(ctx context.Context) error {
	logger := logging.With().Str("service", s.name).Logger()
	logger.Debug().Dur("interval", s.interval).Msg("periodic service starting")

	if s.runOnStart {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *PeriodicService) run(ctx context.Context) {
	if err := s.task(ctx); err != nil && ctx.Err() == nil {
		logging.Warn().Err(err).Str("service", s.name).Msg("periodic task failed")
	}
}

// String implements fmt.Stringer for logging.
func (s *PeriodicService) String() string {
	return s.name
}

// GarbageCollector matches store.Store's value log GC.
type GarbageCollector interface {
	RunGC() error
}

// NewStoreGCService reclaims badger value log space every interval.
func NewStoreGCService(gc GarbageCollector, interval time.Duration) *PeriodicService {
	return NewPeriodicService("store-gc", interval, false, func(ctx context.Context) error {
		if err := gc.RunGC(); err != nil {
			metrics.RecordStoreGC("error")
			return err
		}
		metrics.RecordStoreGC("success")
		return nil
	})
}

// NewUptimeService refreshes the uptime gauge every interval.
func NewUptimeService(start time.Time, interval time.Duration) *PeriodicService {
	return NewPeriodicService("uptime", interval, true, func(context.Context) error {
		metrics.UpdateUptime(start)
		return nil
	})
}
