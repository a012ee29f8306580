// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/relaychat/internal/logging"
)

// MessageBus matches the lifecycle of messaging.Bus.
type MessageBus interface {
	Backend() string
	Healthy() bool
	Close(ctx context.Context) error
}

// BusService owns the message bus for the lifetime of the tree.
//
// While running it polls Healthy and logs transitions. On shutdown it closes
// the publisher, subscriber and embedded NATS server. The bus is opened
// before the tree starts, so Serve never reopens it.
type BusService struct {
	bus             MessageBus
	checkInterval   time.Duration
	shutdownTimeout time.Duration
	name            string
}

// NewBusService creates a new bus service wrapper.
func NewBusService(bus MessageBus, checkInterval, shutdownTimeout time.Duration) *BusService {
	if checkInterval <= 0 {
		checkInterval = 30 * time.Second
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &BusService{
		bus:             bus,
		checkInterval:   checkInterval,
		shutdownTimeout: shutdownTimeout,
		name:            "message-bus",
	}
}

// Serve implements suture.Service.
func (s *BusService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	healthy := s.bus.Healthy()
	logging.Info().Str("backend", s.bus.Backend()).Bool("healthy", healthy).Msg("message bus supervised")

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.bus.Close(shutdownCtx); err != nil {
				return fmt.Errorf("close message bus: %w", err)
			}
			return ctx.Err()

		case <-ticker.C:
			now := s.bus.Healthy()
			if now != healthy {
				ev := logging.Warn()
				if now {
					ev = logging.Info()
				}
				ev.Str("backend", s.bus.Backend()).Bool("healthy", now).Msg("message bus health changed")
				healthy = now
			}
		}
	}
}

// String implements fmt.Stringer for logging.
func (s *BusService) String() string {
	return s.name
}
