// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/relaychat/internal/logging"
)

// slowRequestThreshold promotes access log lines to warn.
const slowRequestThreshold = 2 * time.Second

// AccessLog writes one structured line per request. Server errors and slow
// requests log at warn, everything else at debug.
func AccessLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := newStatusRecorder(w)

		next(wrapper, r)

		duration := time.Since(start)
		var event *zerolog.Event
		switch {
		case wrapper.statusCode >= http.StatusInternalServerError, duration >= slowRequestThreshold:
			event = logging.Ctx(r.Context()).Warn()
		default:
			event = logging.Ctx(r.Context()).Debug()
		}

		event.
			Str("method", r.Method).
			Str("route", routePattern(r)).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Str("remote_addr", r.RemoteAddr).
			Msg("http request")
	}
}
