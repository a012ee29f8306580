// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - API endpoint latency and throughput
// - WebSocket connections, presence and event fan-out
// - Chat persistence operations
// - OTP login flow and mail delivery
// - NATS messaging and circuit breakers

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSOnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_online_users",
			Help: "Current number of users with a registered connection",
		},
	)

	WSRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_rooms",
			Help: "Current number of non-empty rooms",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages queued for delivery",
		},
		[]string{"event"},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket events received from clients",
		},
		[]string{"event"},
	)

	WSEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_events_dropped_total",
			Help: "Total number of WebSocket events dropped",
		},
		[]string{"event", "reason"}, // reason: "malformed", "rate_limited", "unknown_event", "queue_full"
	)

	WSSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_slow_clients_evicted_total",
			Help: "Total number of clients disconnected because their send buffer was full",
		},
	)

	PresenceBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_broadcasts_total",
			Help: "Total number of online-user snapshots broadcast",
		},
	)

	FanoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_fanout_total",
			Help: "Total number of targeted realtime emissions by outcome",
		},
		[]string{"event", "outcome"}, // outcome: "delivered", "unreachable"
	)

	// Chat Metrics
	ChatOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_operation_duration_seconds",
			Help:    "Duration of chat service operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ChatOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_operation_errors_total",
			Help: "Total number of failed chat service operations",
		},
		[]string{"operation"},
	)

	ChatsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chats_created_total",
			Help: "Total number of one-to-one chats created",
		},
	)

	MessagesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_persisted_total",
			Help: "Total number of chat messages persisted",
		},
		[]string{"message_type"},
	)

	MessagesMarkedSeen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_marked_seen_total",
			Help: "Total number of messages transitioned to seen",
		},
	)

	// Store Metrics
	StoreGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_gc_runs_total",
			Help: "Total number of value log garbage collection runs",
		},
		[]string{"result"}, // result: "success", "noop", "error"
	)

	// Identity Metrics
	OTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_requests_total",
			Help: "Total number of login OTP requests",
		},
		[]string{"result"}, // result: "issued", "rate_limited", "error"
	)

	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_verifications_total",
			Help: "Total number of OTP verification attempts",
		},
		[]string{"result"}, // result: "success", "invalid", "expired", "error"
	)

	// Mail Metrics
	MailSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_sent_total",
			Help: "Total number of mail delivery attempts",
		},
		[]string{"result"}, // result: "success", "failure", "malformed"
	)

	MailSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mail_send_duration_seconds",
			Help:    "Duration of SMTP deliveries in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// NATS Messaging Metrics
	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of messages published",
		},
		[]string{"topic"},
	)

	NATSPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_publish_errors_total",
			Help: "Total number of failed publishes",
		},
		[]string{"topic"},
	)

	NATSMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_consumed_total",
			Help: "Total number of messages consumed",
		},
		[]string{"topic"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a request rejected by the rate limiter
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordWSEventReceived records an accepted client event
func RecordWSEventReceived(event string) {
	WSMessagesReceived.WithLabelValues(event).Inc()
}

// RecordWSEventDropped records a client or server event that was discarded
func RecordWSEventDropped(event, reason string) {
	WSEventsDropped.WithLabelValues(event, reason).Inc()
}

// RecordWSMessagesSent records n deliveries of one event
func RecordWSMessagesSent(event string, n int) {
	if n <= 0 {
		return
	}
	WSMessagesSent.WithLabelValues(event).Add(float64(n))
}

// RecordWSSlowClientEvicted records a slow consumer disconnect
func RecordWSSlowClientEvicted() {
	WSSlowClientsEvicted.Inc()
}

// RecordPresenceBroadcast records one presence snapshot broadcast
func RecordPresenceBroadcast() {
	PresenceBroadcasts.Inc()
}

// RecordFanout records the outcome of a targeted emission
func RecordFanout(event, outcome string) {
	FanoutTotal.WithLabelValues(event, outcome).Inc()
}

// RecordChatOperation records a chat service operation
func RecordChatOperation(operation string, duration time.Duration, err error) {
	ChatOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		ChatOperationErrors.WithLabelValues(operation).Inc()
	}
}

// RecordChatCreated records a newly created chat
func RecordChatCreated() {
	ChatsCreated.Inc()
}

// RecordMessagePersisted records a stored message by type
func RecordMessagePersisted(messageType string) {
	MessagesPersisted.WithLabelValues(messageType).Inc()
}

// RecordMessagesMarkedSeen records messages flipped to seen
func RecordMessagesMarkedSeen(n int) {
	if n <= 0 {
		return
	}
	MessagesMarkedSeen.Add(float64(n))
}

// RecordStoreGC records a value log GC pass
func RecordStoreGC(result string) {
	StoreGCRuns.WithLabelValues(result).Inc()
}

// RecordOTPRequest records a login OTP request outcome
func RecordOTPRequest(result string) {
	OTPRequests.WithLabelValues(result).Inc()
}

// RecordOTPVerification records an OTP verification outcome
func RecordOTPVerification(result string) {
	OTPVerifications.WithLabelValues(result).Inc()
}

// RecordMailSent records a mail delivery attempt
func RecordMailSent(result string, duration time.Duration) {
	MailSent.WithLabelValues(result).Inc()
	if duration > 0 {
		MailSendDuration.Observe(duration.Seconds())
	}
}

// RecordNATSPublish records a publish attempt on topic
func RecordNATSPublish(topic string, err error) {
	if err != nil {
		NATSPublishErrors.WithLabelValues(topic).Inc()
		return
	}
	NATSMessagesPublished.WithLabelValues(topic).Inc()
}

// RecordNATSConsume records a message received on topic
func RecordNATSConsume(topic string) {
	NATSMessagesConsumed.WithLabelValues(topic).Inc()
}

// SetAppInfo publishes build information
func SetAppInfo(version, goVersion string) {
	AppInfo.WithLabelValues(version, goVersion).Set(1)
}

// UpdateUptime sets the uptime gauge from the process start time
func UpdateUptime(start time.Time) {
	AppUptime.Set(time.Since(start).Seconds())
}

