// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package models

import (
	"strings"
	"time"
)

// User is a registered account. Users are created on first successful OTP
// verification.
type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserRef is the minimal user shape attached to chat list entries.
type UserRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// UnknownUserName is shown when the other participant cannot be resolved.
const UnknownUserName = "Unknown User"

// Ref returns the reference form of u.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// DefaultUserName derives a display name from an email address: the first
// eight characters, matching the name assigned at sign-up.
func DefaultUserName(email string) string {
	email = strings.TrimSpace(email)
	if len(email) <= 8 {
		return email
	}
	return email[:8]
}
