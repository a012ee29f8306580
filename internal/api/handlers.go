// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

// Package api exposes the HTTP surface: identity and conversation endpoints
// under /api/v1, the WebSocket handshake, health checks and /metrics.
//
// Every JSON response uses the models.APIResponse envelope. Service errors
// are mapped to status codes in one place (respondServiceError).
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/relaychat/internal/auth"
	"github.com/tomtom215/relaychat/internal/chat"
	"github.com/tomtom215/relaychat/internal/config"
	"github.com/tomtom215/relaychat/internal/identity"
	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/realtime"
)

// BusStatus reports on the message bus for health checks.
type BusStatus interface {
	Backend() string
	Healthy() bool
}

// Dependencies groups what the handlers need.
type Dependencies struct {
	Config   *config.Config
	Identity *identity.Service
	Chats    *chat.Service
	Hub      *realtime.Hub
	Auth     *auth.Middleware
	Bus      BusStatus
	Version  string
}

// Handler implements the HTTP endpoints.
type Handler struct {
	config    *config.Config
	identity  *identity.Service
	chats     *chat.Service
	wsHub     *realtime.Hub
	auth      *auth.Middleware
	bus       BusStatus
	version   string
	startTime time.Time
	upgrader  websocket.Upgrader
}

// NewHandler creates the handler set.
func NewHandler(deps Dependencies) *Handler {
	h := &Handler{
		config:    deps.Config,
		identity:  deps.Identity,
		chats:     deps.Chats,
		wsHub:     deps.Hub,
		auth:      deps.Auth,
		bus:       deps.Bus,
		version:   deps.Version,
		startTime: time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkWebSocketOrigin,
	}
	return h
}

// checkWebSocketOrigin validates the Origin header of a WebSocket handshake
// against the configured CORS origins. A "*" entry accepts any origin,
// including none, which is how native and test clients connect.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	if h.config == nil || h.config.Security.AllowsAnyOrigin() {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Ctx(r.Context()).Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if origin == allowed {
			return true
		}
	}

	logging.Ctx(r.Context()).Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// callerID returns the authenticated user id set by auth.Middleware.
func callerID(r *http.Request) string {
	return auth.UserIDFromContext(r.Context())
}
