// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package mail

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/messaging"
	"github.com/tomtom215/relaychat/internal/metrics"
)

// Worker consumes send_otp jobs and hands them to a Sender.
type Worker struct {
	*messaging.Consumer
	sender Sender
}

// NewWorker subscribes to TopicSendOTP on sub.
func NewWorker(sub message.Subscriber, sender Sender) *Worker {
	w := &Worker{sender: sender}
	w.Consumer = messaging.NewConsumer(sub, messaging.TopicSendOTP, w.Handle)
	return w
}

// Handle decodes and delivers one job. Malformed payloads and permanent
// SMTP failures are returned wrapped so the consumer acks them.
func (w *Worker) Handle(ctx context.Context, msg *message.Message) error {
	job, err := messaging.DecodeOTPMail(msg)
	if err != nil {
		metrics.RecordMailSent("malformed", 0)
		return err
	}

	start := time.Now()
	err = w.sender.Send(ctx, job)
	duration := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordMailSent("success", duration)
		logging.Ctx(ctx).Info().Str("to", job.To).Dur("duration", duration).Msg("OTP email sent")
		return nil
	case errors.Is(err, messaging.ErrPermanent):
		metrics.RecordMailSent("rejected", duration)
	default:
		metrics.RecordMailSent("error", duration)
	}
	return err
}

// String names the worker for the supervisor tree.
func (w *Worker) String() string {
	return "mail-worker"
}
