// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

// Package models defines the persisted documents (User, Chat, Message) and
// the read views returned by the HTTP API.
//
// JSON field names follow the web client's wire format: document ids are
// serialized as "_id" and all other fields are camelCase.
package models
