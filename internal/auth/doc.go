// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

/*
Package auth provides JWT issuance and request authentication.

Tokens are issued by the identity service after a successful OTP
verification and carry the user id as subject plus a small user reference
(id, name, email) so peer services can render the caller without a lookup.

Key Components:

  - JWTManager: HS256 token generation and validation with a configurable TTL
  - Middleware: bearer-token authentication for REST routes and caller
    identification for WebSocket handshakes

Usage Example:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    log.Fatal(err)
	}
	mw := auth.NewMiddleware(jwtManager)

	r.With(mw.Authenticate).Get("/api/v1/user/me", handler.Me)

	// Inside a handler:
	userID := auth.UserIDFromContext(r.Context())

WebSocket Identity:

Browsers cannot set headers on a WebSocket handshake, so Identify also
accepts the token as a "token" query parameter. When no valid token is
present it falls back to the unauthenticated "userId" query parameter.
The second return value reports whether the identity was verified.

Security:

  - Only HS256 is accepted; "none" and asymmetric algorithms are rejected
  - Expiry, not-before and issued-at claims are enforced
  - Every validation failure wraps ErrInvalidToken
*/
package auth
