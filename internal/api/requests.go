// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package api

// LoginRequest asks for a one-time password.
type LoginRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// VerifyRequest exchanges a one-time password for a token.
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	OTP   string `json:"otp" validate:"required,numeric,min=4,max=10"`
}

// UpdateNameRequest renames the caller.
type UpdateNameRequest struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

// CreateChatRequest opens a chat with another user.
type CreateChatRequest struct {
	OtherUserID string `json:"otherUserId" validate:"required,max=64"`
}

// SendMessageRequest posts a message. Text and Image may not both be empty;
// the chat service enforces that.
type SendMessageRequest struct {
	ChatID string        `json:"chatId" validate:"required,max=64"`
	Text   string        `json:"text" validate:"max=5000"`
	Image  *ImageRequest `json:"image,omitempty"`
}

// ImageRequest references an already uploaded image.
type ImageRequest struct {
	URL      string `json:"url" validate:"required,url,max=2048"`
	PublicID string `json:"publicId" validate:"max=256"`
}
