// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

// Package cache provides a thread-safe LRU cache with per-entry TTL.
//
// The chat service uses it to remember participant records fetched from a
// remote user directory, so listing conversations does not issue one HTTP
// request per chat on every call.
package cache
