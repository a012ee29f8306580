// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package realtime

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
)

// Event names exchanged over the WebSocket transport.
const (
	// server -> all clients
	EventOnlineUsers = "getOnlineUser"

	// client -> server
	EventJoinChat   = "joinChat"
	EventLeaveChat  = "leaveChat"
	EventTyping     = "typing"
	EventStopTyping = "stopTyping"
	EventPing       = "ping"

	// server -> room / connection
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventNewMessage        = "newMessage"
	EventMessagesSeen      = "messagesSeen"
	EventPong              = "pong"
)

// Message is the envelope written to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// inboundMessage is the envelope read from clients. Data is decoded per event.
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TypingPayload is carried by typing, stopTyping, userTyping and userStoppedTyping.
type TypingPayload struct {
	UserID string `json:"userId"`
	ChatID string `json:"chatId"`
}

// MessagesSeenPayload tells a sender that the other participant has seen
// messages. An empty MessageIDs means every message the sender wrote in
// the chat is now seen.
type MessagesSeenPayload struct {
	ChatID     string   `json:"chatId"`
	MessageIDs []string `json:"messageIds,omitempty"`
}

// errMissingChatID marks a malformed signal without a chat id.
var errMissingChatID = errors.New("missing chatId")

// parseChatRef accepts the chat id either as a bare JSON string or as an
// object {"chatId": "..."}.
func parseChatRef(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errMissingChatID
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		if id = strings.TrimSpace(id); id == "" {
			return "", errMissingChatID
		}
		return id, nil
	}

	var ref struct {
		ChatID string `json:"chatId"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", err
	}
	if ref.ChatID = strings.TrimSpace(ref.ChatID); ref.ChatID == "" {
		return "", errMissingChatID
	}
	return ref.ChatID, nil
}

// parseTyping decodes a typing signal. The relayed user id is the
// connection's handshake identity when it has one; the payload's userId is
// only used for anonymous connections.
func parseTyping(raw json.RawMessage, handshakeUserID string) (TypingPayload, error) {
	var p TypingPayload
	if len(raw) == 0 {
		return p, errMissingChatID
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, err
	}
	p.ChatID = strings.TrimSpace(p.ChatID)
	if p.ChatID == "" {
		return p, errMissingChatID
	}
	if handshakeUserID != "" {
		p.UserID = handshakeUserID
	}
	if p.UserID == "" {
		return p, errors.New("missing userId")
	}
	return p, nil
}

// eventLabel bounds metric label cardinality to known client events.
func eventLabel(event string) string {
	switch event {
	case EventJoinChat, EventLeaveChat, EventTyping, EventStopTyping, EventPing:
		return event
	}
	return "unknown"
}
