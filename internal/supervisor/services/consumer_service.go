// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package services

import (
	"context"
	"errors"
	"fmt"
)

// ErrSubscriptionClosed is returned when a consumer's subscription ends
// while the service is still supposed to be running.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Runner matches messaging.Consumer and the workers built on it.
type Runner interface {
	Run(ctx context.Context) error
	String() string
}

// ConsumerService wraps a message consumer as a supervised service.
//
// A subscribe failure or an unexpectedly closed subscription is returned as
// an error so suture restarts the consumer with backoff.
type ConsumerService struct {
	runner Runner
}

// NewConsumerService creates a new consumer service wrapper.
func NewConsumerService(runner Runner) *ConsumerService {
	return &ConsumerService{runner: runner}
}

// Serve implements suture.Service.
func (s *ConsumerService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", s.runner, err)
	}
	return fmt.Errorf("%s: %w", s.runner, ErrSubscriptionClosed)
}

// String implements fmt.Stringer for logging.
func (s *ConsumerService) String() string {
	return s.runner.String()
}
