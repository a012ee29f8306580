// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto at
package init, and are exposed by the API router at /metrics in Prometheus
text format:

	curl http://localhost:5002/metrics

# Available Metrics

HTTP Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: In-flight requests (gauge)
  - api_rate_limit_hits_total: Rate limited requests (counter)

Realtime Metrics:
  - websocket_connections: Live connections (gauge)
  - websocket_online_users: Registered identities (gauge)
  - websocket_rooms: Non-empty rooms (gauge)
  - websocket_messages_sent_total / websocket_messages_received_total (counter)
    Labels: event
  - websocket_events_dropped_total: Discarded events (counter)
    Labels: event, reason
  - websocket_slow_clients_evicted_total (counter)
  - presence_broadcasts_total (counter)
  - realtime_fanout_total: Targeted emissions (counter)
    Labels: event, outcome

Chat Metrics:
  - chat_operation_duration_seconds, chat_operation_errors_total
    Labels: operation
  - chats_created_total, messages_persisted_total, messages_marked_seen_total

Identity and Mail Metrics:
  - otp_requests_total, otp_verifications_total
    Labels: result
  - mail_sent_total (Labels: result), mail_send_duration_seconds

Messaging Metrics:
  - nats_messages_published_total, nats_publish_errors_total, nats_messages_consumed_total
    Labels: topic

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total (Labels: name, result)
  - circuit_breaker_consecutive_failures (Labels: name)
  - circuit_breaker_state_transitions_total (Labels: name, from_state, to_state)

# Thread Safety

All recording functions are safe for concurrent use.
*/
package metrics
