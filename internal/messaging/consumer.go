// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/metrics"
)

// ErrMalformed marks a payload that can never be processed. Consumers ack
// such messages instead of redelivering them.
var ErrMalformed = errors.New("malformed message")

// ErrPermanent marks a failure that redelivery cannot fix. The message is
// acked and logged like a malformed one.
var ErrPermanent = errors.New("permanent failure")

// HandlerFunc processes one message.
type HandlerFunc func(ctx context.Context, msg *message.Message) error

// Consumer feeds one topic into a handler.
type Consumer struct {
	subscriber message.Subscriber
	topic      string
	handler    HandlerFunc

	// RetryDelay is waited before a failed message is nacked, so an
	// in-process broker does not redeliver in a hot loop.
	RetryDelay time.Duration
}

// NewConsumer creates a consumer for topic.
func NewConsumer(sub message.Subscriber, topic string, handler HandlerFunc) *Consumer {
	return &Consumer{
		subscriber: sub,
		topic:      topic,
		handler:    handler,
		RetryDelay: time.Second,
	}
}

// Run consumes until ctx is canceled or the subscription closes.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	logging.Info().Str("topic", c.topic).Msg("consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg *message.Message) {
	metrics.RecordNATSConsume(c.topic)

	msgCtx := ctx
	if cid := msg.Metadata.Get("correlation_id"); cid != "" {
		msgCtx = logging.ContextWithCorrelationID(ctx, cid)
	}

	err := c.handler(msgCtx, msg)
	switch {
	case err == nil:
		msg.Ack()
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrPermanent):
		logging.Ctx(msgCtx).Warn().Err(err).
			Str("topic", c.topic).
			Str("message_uuid", msg.UUID).
			Msg("dropping message")
		msg.Ack()
	default:
		logging.Ctx(msgCtx).Error().Err(err).
			Str("topic", c.topic).
			Str("message_uuid", msg.UUID).
			Msg("message processing failed, requesting redelivery")
		if c.RetryDelay > 0 {
			select {
			case <-time.After(c.RetryDelay):
			case <-ctx.Done():
			}
		}
		msg.Nack()
	}
}

// String names the consumer for supervisor logs.
func (c *Consumer) String() string {
	return "consumer:" + c.topic
}
