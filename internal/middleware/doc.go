// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

/*
Package middleware provides HTTP middleware components for the API router.

Key Components:

  - Request ID: X-Request-ID propagation and logging context
  - Prometheus Metrics: request count, latency and in-flight gauge, labeled
    by chi route pattern so path parameters do not explode cardinality
  - Access Log: one structured zerolog line per request

Middleware here uses the http.HandlerFunc shape; the api package adapts it
to chi's func(http.Handler) http.Handler.

Every wrapped ResponseWriter forwards http.Hijacker so the WebSocket
upgrade endpoint can sit behind the same stack.
*/
package middleware
