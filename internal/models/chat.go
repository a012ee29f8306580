// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package models

import (
	"sort"
	"time"
)

// Chat is a two-party conversation. Users always holds exactly two distinct
// ids and a pair of users has at most one chat.
type Chat struct {
	ID            string         `json:"_id"`
	Users         []string       `json:"users"`
	LatestMessage *LatestMessage `json:"latestMessage,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// LatestMessage is the denormalized summary shown in the chat list.
type LatestMessage struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

// HasParticipant reports whether userID is one of the chat's users.
func (c *Chat) HasParticipant(userID string) bool {
	for _, u := range c.Users {
		if u == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID, or "" when
// userID is not a member.
func (c *Chat) OtherParticipant(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, u := range c.Users {
		if u != userID {
			return u
		}
	}
	return ""
}

// PairKey returns an order-independent key for two user ids.
func PairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + ":" + pair[1]
}

// ChatWithUnseen is a chat annotated with the viewer's unseen count.
type ChatWithUnseen struct {
	Chat
	UnseenCount int `json:"unseenCount"`
}

// ChatListEntry is one row of the viewer's chat list.
type ChatListEntry struct {
	User UserRef        `json:"user"`
	Chat ChatWithUnseen `json:"chat"`
}
