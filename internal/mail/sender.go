// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

// Package mail delivers one-time password emails queued on the send_otp topic.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/relaychat/internal/config"
	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/messaging"
)

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, m *messaging.OTPMail) error
}

// SMTPSender sends mail through an SMTP relay, upgrading with STARTTLS
// when the server offers it.
type SMTPSender struct {
	cfg     config.MailConfig
	timeout time.Duration
}

// NewSMTPSender creates a sender for cfg.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		cfg:     cfg,
		timeout: 30 * time.Second,
	}
}

// Send delivers m. SMTP 5xx replies are wrapped in messaging.ErrPermanent.
func (s *SMTPSender) Send(ctx context.Context, m *messaging.OTPMail) error {
	msg := buildMessage(s.from(), m)
	if err := s.sendSMTP(ctx, m.To, msg); err != nil {
		if isPermanent(err) {
			return fmt.Errorf("%w: %w", messaging.ErrPermanent, err)
		}
		return err
	}
	return nil
}

func (s *SMTPSender) from() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.Username
}

func buildMessage(from string, m *messaging.OTPMail) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("From: Chat App <%s>\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", m.To))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", m.Subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(m.Text)
	msg.WriteString("\r\n")

	return msg.String()
}

func (s *SMTPSender) sendSMTP(ctx context.Context, to, msg string) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }() //nolint:errcheck // Best effort cleanup

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline) //nolint:errcheck // Best effort
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.timeout)) //nolint:errcheck // Best effort
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }() //nolint:errcheck // Best effort cleanup

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{
			ServerName: s.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("start TLS: %w", err)
		}
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication: %w", err)
		}
	}

	if err := client.Mail(s.from()); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("start message: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	if err := client.Quit(); err != nil {
		logging.Debug().Err(err).Str("host", s.cfg.Host).Msg("SMTP quit failed after delivery")
	}
	return nil
}

// isPermanent reports whether err carries an SMTP 5xx reply.
func isPermanent(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 500 && protoErr.Code < 600
	}
	return false
}

// LogSender records mail instead of sending it. Used when SMTP is disabled.
type LogSender struct{}

// Send logs the recipient and subject. The body is only logged at debug.
func (LogSender) Send(ctx context.Context, m *messaging.OTPMail) error {
	logging.Ctx(ctx).Info().Str("to", m.To).Str("subject", m.Subject).Msg("mail delivery disabled, not sending")
	logging.Ctx(ctx).Debug().Str("to", m.To).Str("text", m.Text).Msg("undelivered mail body")
	return nil
}

// NewSender returns an SMTPSender, or a LogSender when mail is disabled.
func NewSender(cfg config.MailConfig) Sender {
	if !cfg.Enabled {
		return LogSender{}
	}
	return NewSMTPSender(cfg)
}
