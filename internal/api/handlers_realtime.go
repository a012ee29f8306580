// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package api

import (
	"net/http"

	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/realtime"
)

// WebSocket upgrades the request and hands the connection to the hub.
//
// The identity comes from a valid bearer token (header or "token" query
// parameter) when present, otherwise from the "userId" query parameter.
// Connections without an identity are accepted but never appear online.
//
// Method: GET
// Path: /api/v1/ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable", nil)
		return
	}

	userID, verified := h.auth.Identify(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := realtime.NewClient(h.wsHub, conn, userID)
	if err := h.wsHub.RegisterClient(r.Context(), client); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket registration failed")
		_ = conn.Close() //nolint:errcheck
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("user_id", sanitizeLogValue(userID)).
		Bool("verified", verified).
		Uint64("conn_id", client.ID()).
		Msg("WebSocket connected")
	client.Start()
}
