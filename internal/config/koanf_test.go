// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 5002 {
		t.Errorf("Server.Port = %d, want 5002", cfg.Server.Port)
	}
	if cfg.Security.TokenTTL != 7*24*time.Hour {
		t.Errorf("Security.TokenTTL = %v, want 168h", cfg.Security.TokenTTL)
	}
	if cfg.OTP.TTL != 5*time.Minute {
		t.Errorf("OTP.TTL = %v, want 5m", cfg.OTP.TTL)
	}
	if cfg.OTP.Length != 6 {
		t.Errorf("OTP.Length = %d, want 6", cfg.OTP.Length)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS.Enabled should be false by default")
	}
	if cfg.WebSocket.SendBuffer != 256 {
		t.Errorf("WebSocket.SendBuffer = %d, want 256", cfg.WebSocket.SendBuffer)
	}

	// Defaults are valid once a secret is supplied.
	cfg.Security.JWTSecret = testSecret
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults with secret should validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("OTP_TTL", "2m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.OTP.MaxAttempts != 3 {
		t.Errorf("OTP.MaxAttempts = %d, want 3", cfg.OTP.MaxAttempts)
	}
	if cfg.OTP.TTL != 2*time.Minute {
		t.Errorf("OTP.TTL = %v, want 2m", cfg.OTP.TTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 7000
security:
  jwt_secret: "` + testSecret + `"
database:
  in_memory: true
mail:
  enabled: false
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("env should override file: port = %d", cfg.Server.Port)
	}
	if !cfg.Database.InMemory {
		t.Error("Database.InMemory should come from file")
	}
	if cfg.Mail.Enabled {
		t.Error("Mail.Enabled should be false from file")
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, "JWT_SECRET"},
		{"no db path", func(c *Config) { c.Database.Path = "" }, "DB_PATH"},
		{"in memory without path", func(c *Config) { c.Database.Path = ""; c.Database.InMemory = true }, ""},
		{"external nats without url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.EmbeddedServer = false
			c.NATS.URL = ""
		}, "NATS_URL"},
		{"otp length", func(c *Config) { c.OTP.Length = 2 }, "OTP_LENGTH"},
		{"otp attempts", func(c *Config) { c.OTP.MaxAttempts = 0 }, "OTP_MAX_ATTEMPTS"},
		{"mail host", func(c *Config) { c.Mail.Host = "" }, "SMTP_HOST"},
		{"mail disabled skips host", func(c *Config) { c.Mail.Enabled = false; c.Mail.Host = "" }, ""},
		{"send buffer", func(c *Config) { c.WebSocket.SendBuffer = 0 }, "WS_SEND_BUFFER"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWTSecret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"JWT_SECRET":    "security.jwt_secret",
		"nats_url":      "nats.url",
		"SMTP_HOST":     "mail.host",
		"HOME":          "",
		"UNKNOWN_THING": "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAddrAndOrigins(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if s.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", s.Addr())
	}
	if !(SecurityConfig{CORSOrigins: []string{"https://x", "*"}}).AllowsAnyOrigin() {
		t.Error("expected wildcard origin to be detected")
	}
	if (SecurityConfig{CORSOrigins: []string{"https://x"}}).AllowsAnyOrigin() {
		t.Error("unexpected wildcard")
	}
}
