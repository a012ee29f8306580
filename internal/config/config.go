// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

// Package config loads RelayChat configuration.
//
// Sources are layered with koanf, later layers overriding earlier ones:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/relaychat/config.yaml)
//  3. Environment variables (see envTransformFunc for the mapping)
//
// The merged result is validated before it is returned.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Database  DatabaseConfig  `koanf:"database"`
	NATS      NATSConfig      `koanf:"nats"`
	OTP       OTPConfig       `koanf:"otp"`
	Mail      MailConfig      `koanf:"mail"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Chat      ChatConfig      `koanf:"chat"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig holds authentication and request-limiting configuration.
type SecurityConfig struct {
	// JWTSecret signs session tokens (HS256). Minimum 32 characters.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the lifetime of issued tokens. Default: 7 days
	TokenTTL time.Duration `koanf:"token_ttl"`

	// CORSOrigins lists allowed browser origins. "*" allows any origin
	// and also disables the WebSocket origin check.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs / RateLimitWindow bound API requests per client IP.
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// DatabaseConfig holds the badger document store configuration.
type DatabaseConfig struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory keeps all documents in memory; data is lost on restart.
	InMemory bool `koanf:"in_memory"`

	// GCInterval controls how often value log garbage collection runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// NATSConfig holds the message queue configuration used for OTP mail dispatch.
//
// When Enabled is false, an in-process channel queue is used instead and the
// mail worker runs in the same process.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	MaxMemory      int64         `koanf:"max_memory"`
	MaxStore       int64         `koanf:"max_store"`
	DurableName    string        `koanf:"durable_name"`
	QueueGroup     string        `koanf:"queue_group"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
	AckWait        time.Duration `koanf:"ack_wait"`
	MaxDeliver     int           `koanf:"max_deliver"`
	CloseTimeout   time.Duration `koanf:"close_timeout"`
}

// OTPConfig holds one-time password login configuration.
type OTPConfig struct {
	// TTL is how long a generated code stays valid. Default: 5m
	TTL time.Duration `koanf:"ttl"`

	// Length is the number of digits. Default: 6
	Length int `koanf:"length"`

	// RateLimitWindow and MaxAttempts bound login requests per email.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	MaxAttempts     int           `koanf:"max_attempts"`
}

// MailConfig holds SMTP configuration for the OTP mail worker.
type MailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// WebSocketConfig holds realtime transport tuning.
type WebSocketConfig struct {
	WriteWait      time.Duration `koanf:"write_wait"`
	PongWait       time.Duration `koanf:"pong_wait"`
	MaxMessageSize int64         `koanf:"max_message_size"`
	SendBuffer     int           `koanf:"send_buffer"`

	// EventsPerSecond / EventBurst bound inbound client events per connection.
	EventsPerSecond float64 `koanf:"events_per_second"`
	EventBurst      int     `koanf:"event_burst"`
}

// ChatConfig holds conversation service configuration.
type ChatConfig struct {
	// UserServiceURL points the chat service at a remote identity service.
	// Empty means users are resolved from the local store.
	UserServiceURL     string        `koanf:"user_service_url"`
	UserServiceTimeout time.Duration `koanf:"user_service_timeout"`

	// UserCacheTTL and UserCacheSize bound the cache of remote lookups.
	UserCacheTTL  time.Duration `koanf:"user_cache_ttl"`
	UserCacheSize int           `koanf:"user_cache_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}

// AllowsAnyOrigin reports whether CORS is open to every origin.
func (s SecurityConfig) AllowsAnyOrigin() bool {
	for _, o := range s.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}
