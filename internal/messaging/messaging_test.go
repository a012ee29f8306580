// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/relaychat/internal/breaker"
	"github.com/tomtom215/relaychat/internal/config"
	"github.com/tomtom215/relaychat/internal/logging"
)

func newPersistentChannel() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 16,
		Persistent:          true,
	}, watermill.NopLogger{})
}

type failingPublisher struct {
	calls atomic.Int32
}

func (p *failingPublisher) Publish(topic string, messages ...*message.Message) error {
	p.calls.Add(1)
	return errors.New("broker unavailable")
}

func (p *failingPublisher) Close() error { return nil }

func TestPublisher_SetsDeduplicationHeader(t *testing.T) {
	ch := newPersistentChannel()
	pub := NewPublisher(ch, nil)
	defer pub.Close()

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-1")
	if err := pub.PublishJSON(ctx, TopicSendOTP, OTPMail{To: "a@example.com", Subject: "s", Text: "b"}); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	messages, err := ch.Subscribe(context.Background(), TopicSendOTP)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case msg := <-messages:
		if got := msg.Metadata.Get(natsgo.MsgIdHdr); got != msg.UUID {
			t.Errorf("%s = %q, want message UUID %q", natsgo.MsgIdHdr, got, msg.UUID)
		}
		if got := msg.Metadata.Get("correlation_id"); got != "corr-1" {
			t.Errorf("correlation_id = %q, want corr-1", got)
		}
		mail, err := DecodeOTPMail(msg)
		if err != nil {
			t.Fatalf("DecodeOTPMail() error = %v", err)
		}
		if mail.To != "a@example.com" {
			t.Errorf("To = %q", mail.To)
		}
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestPublisher_Closed(t *testing.T) {
	pub := NewPublisher(newPersistentChannel(), nil)
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	err := pub.Publish(context.Background(), TopicSendOTP, message.NewMessage(watermill.NewUUID(), []byte("{}")))
	if !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrPublisherClosed", err)
	}
}

func TestPublisher_BreakerOpens(t *testing.T) {
	fp := &failingPublisher{}
	settings := breaker.DefaultSettings("test-publisher")
	pub := NewPublisher(fp, breaker.New(settings))

	for i := 0; i < int(settings.MinRequests); i++ {
		err := pub.Publish(context.Background(), TopicSendOTP, message.NewMessage(watermill.NewUUID(), nil))
		if err == nil {
			t.Fatalf("publish %d succeeded against failing broker", i)
		}
	}

	err := pub.Publish(context.Background(), TopicSendOTP, message.NewMessage(watermill.NewUUID(), nil))
	if !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("Publish() with open breaker error = %v, want breaker.ErrOpen", err)
	}
	if got := fp.calls.Load(); got != int32(settings.MinRequests) {
		t.Errorf("broker calls = %d, want %d", got, settings.MinRequests)
	}
}

func TestDecodeOTPMail_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "nope"},
		{"missing recipient", `{"subject":"s","text":"b"}`},
		{"bad email", `{"to":"not-an-email","subject":"s","text":"b"}`},
		{"missing text", `{"to":"a@example.com","subject":"s"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOTPMail(message.NewMessage(watermill.NewUUID(), []byte(tt.payload)))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("DecodeOTPMail() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func runConsumer(t *testing.T, c *Consumer) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("consumer did not stop")
		}
	})
	return cancel
}

func TestConsumer_AcksHandledMessages(t *testing.T) {
	ch := newPersistentChannel()
	pub := NewPublisher(ch, nil)

	var mu sync.Mutex
	var got []string
	handled := make(chan struct{}, 2)

	c := NewConsumer(ch, TopicSendOTP, func(ctx context.Context, msg *message.Message) error {
		mail, err := DecodeOTPMail(msg)
		if err != nil {
			return err
		}
		mu.Lock()
		got = append(got, mail.To)
		mu.Unlock()
		handled <- struct{}{}
		return nil
	})

	for _, to := range []string{"a@example.com", "b@example.com"} {
		if err := pub.PublishJSON(context.Background(), TopicSendOTP, OTPMail{To: to, Subject: "s", Text: "b"}); err != nil {
			t.Fatalf("PublishJSON() error = %v", err)
		}
	}

	runConsumer(t, c)

	for i := 0; i < 2; i++ {
		select {
		case <-handled:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of 2 messages handled", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "a@example.com" || got[1] != "b@example.com" {
		t.Errorf("handled = %v, want both recipients in order", got)
	}
}

func TestConsumer_DropsMalformed(t *testing.T) {
	ch := newPersistentChannel()

	var calls atomic.Int32
	handled := make(chan struct{}, 4)
	c := NewConsumer(ch, TopicSendOTP, func(ctx context.Context, msg *message.Message) error {
		calls.Add(1)
		handled <- struct{}{}
		_, err := DecodeOTPMail(msg)
		return err
	})

	if err := ch.Publish(TopicSendOTP, message.NewMessage(watermill.NewUUID(), []byte("garbage"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	runConsumer(t, c)

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("malformed message never reached handler")
	}

	// An acked message is not redelivered.
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("handler calls = %d, want 1", got)
	}
}

func TestConsumer_RedeliversOnFailure(t *testing.T) {
	ch := newPersistentChannel()

	var attempts atomic.Int32
	succeeded := make(chan struct{})
	c := NewConsumer(ch, TopicSendOTP, func(ctx context.Context, msg *message.Message) error {
		if attempts.Add(1) < 3 {
			return errors.New("smtp unavailable")
		}
		close(succeeded)
		return nil
	})
	c.RetryDelay = 10 * time.Millisecond

	if err := ch.Publish(TopicSendOTP, message.NewMessage(watermill.NewUUID(), []byte(`{}`))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	runConsumer(t, c)

	select {
	case <-succeeded:
	case <-time.After(2 * time.Second):
		t.Fatalf("message not redelivered, attempts = %d", attempts.Load())
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestConsumer_String(t *testing.T) {
	c := NewConsumer(newPersistentChannel(), TopicSendOTP, nil)
	if got := c.String(); got != "consumer:send_otp" {
		t.Errorf("String() = %q", got)
	}
}

func TestOpen_GoChannelWhenDisabled(t *testing.T) {
	bus, err := Open(&config.NATSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if bus.Backend() != BackendGoChannel {
		t.Errorf("Backend() = %q, want %q", bus.Backend(), BackendGoChannel)
	}
	if !bus.Healthy() {
		t.Error("Healthy() = false for in-process bus")
	}
	if err := bus.Close(context.Background()); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOpen_EmbeddedServer(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}

	cfg := &config.NATSConfig{
		Enabled:        true,
		EmbeddedServer: true,
		StoreDir:       t.TempDir(),
		MaxMemory:      16 << 20,
		MaxStore:       64 << 20,
		DurableName:    "test-worker",
		QueueGroup:     "test",
		MaxReconnects:  1,
		ReconnectWait:  100 * time.Millisecond,
		AckWait:        5 * time.Second,
		MaxDeliver:     3,
		CloseTimeout:   5 * time.Second,
	}

	bus, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bus.Close(ctx); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()

	if bus.Backend() != BackendNATS {
		t.Errorf("Backend() = %q, want %q", bus.Backend(), BackendNATS)
	}
	if !bus.Healthy() {
		t.Error("Healthy() = false with running embedded server")
	}

	received := make(chan *OTPMail, 1)
	c := NewConsumer(bus.Subscriber, TopicSendOTP, func(ctx context.Context, msg *message.Message) error {
		mail, err := DecodeOTPMail(msg)
		if err != nil {
			return err
		}
		select {
		case received <- mail:
		default:
		}
		return nil
	})
	runConsumer(t, c)

	// DeliverNew only sees messages published after the consumer exists.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		if err := bus.Publisher.PublishJSON(context.Background(), TopicSendOTP, OTPMail{To: "c@example.com", Subject: "s", Text: "b"}); err != nil {
			t.Fatalf("PublishJSON() error = %v", err)
		}
		select {
		case mail := <-received:
			if mail.To != "c@example.com" {
				t.Errorf("To = %q", mail.To)
			}
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("message not consumed through embedded NATS")
		}
	}
}
