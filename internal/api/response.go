// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/relaychat/internal/breaker"
	"github.com/tomtom215/relaychat/internal/chat"
	"github.com/tomtom215/relaychat/internal/identity"
	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/models"
	"github.com/tomtom215/relaychat/internal/validation"
)

// Error codes carried in APIError.Code.
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeTooManyRequests    = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidOTP         = "INVALID_OTP"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 1 << 20

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps data in a success envelope. start is when the
// handler began work and feeds query_time_ms.
func respondSuccess(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API Error")
	}

	resp := models.NewErrorResponse(code, message, nil)
	respondJSON(w, status, &resp)
}

// respondServiceError maps a service error to a status code and envelope.
// Unknown errors are logged and reported as 500 without their text.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidOTP):
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidOTP, "Invalid OTP", nil)
	case errors.Is(err, identity.ErrRateLimited):
		respondError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests,
			"Too many login attempts. Please try again later.", nil)
	case errors.Is(err, identity.ErrInvalidInput), errors.Is(err, chat.ErrInvalidInput):
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
	case errors.Is(err, identity.ErrUserNotFound), errors.Is(err, chat.ErrUserNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "User not found", nil)
	case errors.Is(err, chat.ErrChatNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Chat not found", nil)
	case errors.Is(err, chat.ErrNotMember):
		respondError(w, r, http.StatusForbidden, ErrCodeForbidden, "You are not a participant of this chat", nil)
	case errors.Is(err, breaker.ErrOpen):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"A dependency is unavailable. Please try again later.", err)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", err)
	}
}

// decodeRequest reads a JSON body into v and validates it. On failure the
// error response has already been written and false is returned.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body", nil)
		return false
	}
	if apiErr := validateRequest(v); apiErr != nil {
		resp := models.NewErrorResponse(apiErr.Code, apiErr.Message, apiErr.Details)
		respondJSON(w, http.StatusBadRequest, &resp)
		return false
	}
	return true
}

// validateRequest validates a struct using go-playground/validator.
// Returns nil if validation passes.
func validateRequest(v interface{}) *models.APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}

	apiErr := validationErr.ToAPIError()
	return &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}
