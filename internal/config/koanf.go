// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is not set.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/relaychat/config.yaml",
	"/etc/relaychat/config.yml",
}

// ConfigPathEnvVar names the environment variable holding an explicit config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5002,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			TokenTTL:        7 * 24 * time.Hour,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Path:       "/data/relaychat",
			GCInterval: 10 * time.Minute,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/nats/jetstream",
			MaxMemory:      64 << 20,
			MaxStore:       1 << 30,
			DurableName:    "mail-worker",
			QueueGroup:     "mail",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			AckWait:        30 * time.Second,
			MaxDeliver:     5,
			CloseTimeout:   30 * time.Second,
		},
		OTP: OTPConfig{
			TTL:             5 * time.Minute,
			Length:          6,
			RateLimitWindow: time.Minute,
			MaxAttempts:     5,
		},
		Mail: MailConfig{
			Enabled: true,
			Host:    "smtp.gmail.com",
			Port:    587,
		},
		WebSocket: WebSocketConfig{
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			MaxMessageSize:  64 * 1024,
			SendBuffer:      256,
			EventsPerSecond: 20,
			EventBurst:      40,
		},
		Chat: ChatConfig{
			UserServiceTimeout: 5 * time.Second,
			UserCacheTTL:       time.Minute,
			UserCacheSize:      10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from env.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps environment variable names onto koanf paths.
// Unknown variables return "" and are ignored.
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		"http_host":        "server.host",
		"http_port":        "server.port",
		"port":             "server.port",
		"server_port":      "server.port",
		"shutdown_timeout": "server.shutdown_timeout",

		"jwt_secret":          "security.jwt_secret",
		"token_ttl":           "security.token_ttl",
		"cors_origins":        "security.cors_origins",
		"rate_limit_requests": "security.rate_limit_requests",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",

		"db_path":      "database.path",
		"db_in_memory": "database.in_memory",

		"nats_enabled":     "nats.enabled",
		"nats_url":         "nats.url",
		"nats_embedded":    "nats.embedded_server",
		"nats_store_dir":   "nats.store_dir",
		"nats_durable":     "nats.durable_name",
		"nats_max_deliver": "nats.max_deliver",

		"otp_ttl":               "otp.ttl",
		"otp_length":            "otp.length",
		"otp_rate_limit_window": "otp.rate_limit_window",
		"otp_max_attempts":      "otp.max_attempts",

		"mail_enabled":  "mail.enabled",
		"smtp_host":     "mail.host",
		"smtp_port":     "mail.port",
		"smtp_user":     "mail.username",
		"smtp_password": "mail.password",
		"smtp_from":     "mail.from",

		"ws_send_buffer":       "websocket.send_buffer",
		"ws_max_message_size":  "websocket.max_message_size",
		"ws_events_per_second": "websocket.events_per_second",

		"user_service_url": "chat.user_service_url",
		"user_cache_ttl":   "chat.user_cache_ttl",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	return envMappings[strings.ToLower(key)]
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
