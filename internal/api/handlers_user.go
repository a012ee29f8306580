// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/relaychat/internal/models"
)

// Login sends a one-time password to the given email address.
//
// Method: POST
// Path: /api/v1/user/login
//
// Response:
//   - 200: OTP queued for delivery
//   - 400: Missing or invalid email
//   - 429: Too many codes requested for this address
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.identity.Login(r.Context(), req.Email); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{
		"message": "Otp sent to your mail",
	}, start)
}

// Verify exchanges a one-time password for a session token. The user is
// created on first successful verification.
//
// Method: POST
// Path: /api/v1/user/verify
//
// Response:
//   - 200: {message, user, token}
//   - 400: Missing fields or invalid OTP
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req VerifyRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.identity.Verify(r.Context(), req.Email, req.OTP)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"message": "User verified successfully",
		"user":    result.User,
		"token":   result.Token,
	}, start)
}

// Me returns the caller's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	user, err := h.identity.Me(r.Context(), callerID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]*models.User{"user": user}, start)
}

// UpdateName renames the caller and returns a refreshed token carrying the
// new name.
func (h *Handler) UpdateName(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req UpdateNameRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.identity.UpdateName(r.Context(), callerID(r), req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"message": "Name updated successfully",
		"user":    result.User,
		"token":   result.Token,
	}, start)
}

// ListUsers returns every registered user.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	users, err := h.identity.ListUsers(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	respondSuccess(w, http.StatusOK, map[string][]*models.User{"users": users}, start)
}

// GetUser returns one user by id. The chat service's remote user directory
// calls this endpoint without a token, so it is public.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	user, err := h.identity.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]*models.User{"user": user}, start)
}
