// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/relaychat/internal/models"
)

// hubProbeTimeout bounds the hub query made by health checks.
const hubProbeTimeout = 2 * time.Second

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status           string  `json:"status"`
	Version          string  `json:"version"`
	HubRunning       bool    `json:"hub_running"`
	Connections      int     `json:"connections"`
	OnlineUsers      int     `json:"online_users"`
	Rooms            int     `json:"rooms"`
	MessagingBackend string  `json:"messaging_backend"`
	MessagingHealthy bool    `json:"messaging_healthy"`
	Uptime           float64 `json:"uptime"`
}

// Health reports hub and message bus state. It always answers 200; the
// status field is "degraded" when a dependency is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.healthStatus(r.Context())

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   health,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthLive handles liveness probe requests.
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady handles readiness probe requests.
// Returns 200 OK only if the hub is running and the message bus is healthy.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	health := h.healthStatus(r.Context())
	ready := health.Status == "healthy"

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"hub_running":       health.HubRunning,
			"messaging_healthy": health.MessagingHealthy,
			"ready_to_serve":    ready,
			"uptime":            health.Uptime,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

func (h *Handler) healthStatus(ctx context.Context) HealthStatus {
	health := HealthStatus{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
	}

	if h.wsHub != nil {
		probeCtx, cancel := context.WithTimeout(ctx, hubProbeTimeout)
		snap, err := h.wsHub.Snapshot(probeCtx)
		cancel()
		if err == nil {
			health.HubRunning = true
			health.Connections = snap.Connections
			health.OnlineUsers = len(snap.OnlineUsers)
			health.Rooms = snap.Rooms
		}
	}

	if h.bus != nil {
		health.MessagingBackend = h.bus.Backend()
		health.MessagingHealthy = h.bus.Healthy()
	}

	if !health.HubRunning || !health.MessagingHealthy {
		health.Status = "degraded"
	}
	return health
}
