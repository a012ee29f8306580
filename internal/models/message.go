// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package models

import "time"

// MessageType distinguishes plain text from image messages.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// ImagePreviewText replaces the latest-message text for image messages.
const ImagePreviewText = "📷 image"

// Image references an uploaded file held by external storage.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId,omitempty"`
}

// Message is immutable after creation except for Seen and SeenAt.
type Message struct {
	ID          string      `json:"_id"`
	ChatID      string      `json:"chatId"`
	Sender      string      `json:"sender"`
	Text        string      `json:"text,omitempty"`
	Image       *Image      `json:"image,omitempty"`
	MessageType MessageType `json:"messageType"`
	Seen        bool        `json:"seen"`
	SeenAt      *time.Time  `json:"seenAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// HasContent reports whether the message carries text or an image.
func (m *Message) HasContent() bool {
	return m.Text != "" || (m.Image != nil && m.Image.URL != "")
}

// PreviewText is the text stored as the chat's latest message.
func (m *Message) PreviewText() string {
	if m.MessageType == MessageTypeImage {
		return ImagePreviewText
	}
	return m.Text
}

// IsUnseenBy reports whether the message counts toward viewer's unseen total.
func (m *Message) IsUnseenBy(viewer string) bool {
	return !m.Seen && m.Sender != viewer
}
