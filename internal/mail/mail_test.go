// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package mail

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/relaychat/internal/config"
	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/messaging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// fakeSMTP is a minimal SMTP server accepting one session at a time.
type fakeSMTP struct {
	ln       net.Listener
	rcptCode int

	mu       sync.Mutex
	from     string
	rcpt     string
	data     string
	sessions int
}

func newFakeSMTP(t *testing.T, rcptCode int) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSMTP{ln: ln, rcptCode: rcptCode}
	go s.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *fakeSMTP) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.handle(conn)
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	s.mu.Lock()
	s.sessions++
	s.mu.Unlock()

	reply("220 fake ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 fake")
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			s.mu.Lock()
			s.from = line[len("MAIL FROM:"):]
			s.mu.Unlock()
			reply("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			if s.rcptCode != 250 {
				reply(strconv.Itoa(s.rcptCode) + " mailbox unavailable")
				continue
			}
			s.mu.Lock()
			s.rcpt = line[len("RCPT TO:"):]
			s.mu.Unlock()
			reply("250 OK")
		case cmd == "DATA":
			reply("354 go ahead")
			var body strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				body.WriteString(l)
			}
			s.mu.Lock()
			s.data = body.String()
			s.mu.Unlock()
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func testMailConfig(port int) config.MailConfig {
	return config.MailConfig{
		Enabled: true,
		Host:    "127.0.0.1",
		Port:    port,
		From:    "noreply@example.com",
	}
}

func TestSMTPSender_Send(t *testing.T) {
	srv := newFakeSMTP(t, 250)
	sender := NewSMTPSender(testMailConfig(srv.port()))

	job := &messaging.OTPMail{To: "alice@example.com", Subject: "Your OTP Code", Text: "Your OTP code is 123456."}
	if err := sender.Send(context.Background(), job); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if !strings.Contains(srv.from, "noreply@example.com") {
		t.Errorf("MAIL FROM = %q", srv.from)
	}
	if !strings.Contains(srv.rcpt, "alice@example.com") {
		t.Errorf("RCPT TO = %q", srv.rcpt)
	}
	if !strings.Contains(srv.data, "Subject: Your OTP Code\r\n") {
		t.Errorf("message missing subject header:\n%s", srv.data)
	}
	if !strings.Contains(srv.data, "Your OTP code is 123456.") {
		t.Errorf("message missing body:\n%s", srv.data)
	}
}

func TestSMTPSender_PermanentRejection(t *testing.T) {
	srv := newFakeSMTP(t, 550)
	sender := NewSMTPSender(testMailConfig(srv.port()))

	err := sender.Send(context.Background(), &messaging.OTPMail{To: "nobody@example.com", Subject: "s", Text: "t"})
	if !errors.Is(err, messaging.ErrPermanent) {
		t.Fatalf("Send() error = %v, want ErrPermanent", err)
	}
}

func TestSMTPSender_TransientFailure(t *testing.T) {
	srv := newFakeSMTP(t, 451)
	sender := NewSMTPSender(testMailConfig(srv.port()))

	err := sender.Send(context.Background(), &messaging.OTPMail{To: "busy@example.com", Subject: "s", Text: "t"})
	if err == nil {
		t.Fatal("Send() succeeded on 451 reply")
	}
	if errors.Is(err, messaging.ErrPermanent) {
		t.Errorf("Send() error = %v, 4xx must stay retryable", err)
	}
}

func TestSMTPSender_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	err = NewSMTPSender(testMailConfig(port)).Send(context.Background(), &messaging.OTPMail{To: "a@example.com", Subject: "s", Text: "t"})
	if err == nil || errors.Is(err, messaging.ErrPermanent) {
		t.Errorf("Send() error = %v, want retryable connect error", err)
	}
}

func TestNewSender(t *testing.T) {
	if _, ok := NewSender(config.MailConfig{Enabled: false}).(LogSender); !ok {
		t.Error("disabled mail should use LogSender")
	}
	if _, ok := NewSender(config.MailConfig{Enabled: true, Host: "smtp.example.com", Port: 587}).(*SMTPSender); !ok {
		t.Error("enabled mail should use SMTPSender")
	}
}

func TestBuildMessage_FallsBackToUsername(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{Username: "bot@example.com"})
	msg := buildMessage(s.from(), &messaging.OTPMail{To: "a@example.com", Subject: "Hi", Text: "body"})
	if !strings.HasPrefix(msg, "From: Chat App <bot@example.com>\r\n") {
		t.Errorf("From header = %q", strings.SplitN(msg, "\r\n", 2)[0])
	}
	if !strings.HasSuffix(msg, "\r\n\r\nbody\r\n") {
		t.Errorf("body not separated from headers: %q", msg)
	}
}

type recordingSender struct {
	mu    sync.Mutex
	sent  []*messaging.OTPMail
	fails int
	err   error
	done  chan struct{}
}

func (r *recordingSender) Send(ctx context.Context, m *messaging.OTPMail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fails > 0 {
		r.fails--
		return r.err
	}
	r.sent = append(r.sent, m)
	select {
	case r.done <- struct{}{}:
	default:
	}
	return nil
}

func TestWorker_Handle(t *testing.T) {
	payload, _ := json.Marshal(messaging.OTPMail{To: "a@example.com", Subject: "s", Text: "t"})

	t.Run("delivers", func(t *testing.T) {
		rs := &recordingSender{done: make(chan struct{}, 1)}
		w := NewWorker(nil, rs)
		if err := w.Handle(context.Background(), message.NewMessage(watermill.NewUUID(), payload)); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if len(rs.sent) != 1 || rs.sent[0].To != "a@example.com" {
			t.Errorf("sent = %+v", rs.sent)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		rs := &recordingSender{done: make(chan struct{}, 1)}
		w := NewWorker(nil, rs)
		err := w.Handle(context.Background(), message.NewMessage(watermill.NewUUID(), []byte(`{"to":""}`)))
		if !errors.Is(err, messaging.ErrMalformed) {
			t.Errorf("Handle() error = %v, want ErrMalformed", err)
		}
		if len(rs.sent) != 0 {
			t.Error("malformed job must not be sent")
		}
	})

	t.Run("transient failure", func(t *testing.T) {
		rs := &recordingSender{fails: 1, err: errors.New("connection reset"), done: make(chan struct{}, 1)}
		w := NewWorker(nil, rs)
		err := w.Handle(context.Background(), message.NewMessage(watermill.NewUUID(), payload))
		if err == nil || errors.Is(err, messaging.ErrPermanent) {
			t.Errorf("Handle() error = %v, want retryable error", err)
		}
	})
}

func TestWorker_RetriesThroughConsumer(t *testing.T) {
	ch := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	rs := &recordingSender{fails: 2, err: errors.New("smtp down"), done: make(chan struct{}, 1)}

	w := NewWorker(ch, rs)
	w.RetryDelay = 10 * time.Millisecond

	payload, _ := json.Marshal(messaging.OTPMail{To: "retry@example.com", Subject: "s", Text: "t"})
	if err := ch.Publish(messaging.TopicSendOTP, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	select {
	case <-rs.done:
	case <-time.After(2 * time.Second):
		t.Fatal("mail never delivered after transient failures")
	}

	if w.String() != "mail-worker" {
		t.Errorf("String() = %q", w.String())
	}
}
