// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package messaging

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/relaychat/internal/validation"
)

// TopicSendOTP carries OTPMail payloads to the mail worker.
const TopicSendOTP = "send_otp"

// OTPMail is a mail delivery job.
type OTPMail struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Text    string `json:"text" validate:"required"`
}

// DecodeOTPMail parses and validates a send_otp payload. Any failure wraps
// ErrMalformed.
func DecodeOTPMail(msg *message.Message) (*OTPMail, error) {
	var mail OTPMail
	if err := json.Unmarshal(msg.Payload, &mail); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if verr := validation.ValidateStruct(&mail); verr != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, verr.Error())
	}
	return &mail, nil
}
