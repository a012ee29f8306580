// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/relaychat/internal/auth"
	"github.com/tomtom215/relaychat/internal/chat"
	"github.com/tomtom215/relaychat/internal/config"
	"github.com/tomtom215/relaychat/internal/identity"
	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/messaging"
	"github.com/tomtom215/relaychat/internal/models"
	"github.com/tomtom215/relaychat/internal/realtime"
	"github.com/tomtom215/relaychat/internal/store"
)

const testTimeout = 2 * time.Second

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// mailbox captures queued OTP mails.
type mailbox struct {
	mu   sync.Mutex
	jobs []messaging.OTPMail
}

func (m *mailbox) PublishJSON(ctx context.Context, topic string, payload interface{}) error {
	job, ok := payload.(messaging.OTPMail)
	if !ok || topic != messaging.TopicSendOTP {
		return errors.New("unexpected publish")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

var otpPattern = regexp.MustCompile(`\b\d{6}\b`)

// codeFor returns the code from the latest mail sent to email.
func (m *mailbox) codeFor(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.jobs) - 1; i >= 0; i-- {
		if m.jobs[i].To == email {
			return otpPattern.FindString(m.jobs[i].Text)
		}
	}
	t.Fatalf("no mail sent to %s", email)
	return ""
}

type fakeBus struct {
	down atomic.Bool
}

func (b *fakeBus) Backend() string { return messaging.BackendGoChannel }
func (b *fakeBus) Healthy() bool   { return !b.down.Load() }

type testEnv struct {
	server *httptest.Server
	store  *store.Store
	hub    *realtime.Hub
	tokens *auth.JWTManager
	mail   *mailbox
	bus    *fakeBus
}

// newTestEnv serves the full router over a real hub and an in-memory store.
// mutate adjusts the configuration before anything is built.
func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:         "test-secret-that-is-at-least-32-characters",
			TokenTTL:          time.Hour,
			CORSOrigins:       []string{"*"},
			RateLimitDisabled: true,
		},
		OTP: config.OTPConfig{
			TTL:             5 * time.Minute,
			Length:          6,
			RateLimitWindow: time.Minute,
			MaxAttempts:     5,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	tokens, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	hub := realtime.NewHub(realtime.DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()

	env := &testEnv{store: st, hub: hub, tokens: tokens, mail: &mailbox{}, bus: &fakeBus{}}
	authMw := auth.NewMiddleware(tokens)
	handler := NewHandler(Dependencies{
		Config:   cfg,
		Identity: identity.NewService(st, env.mail, tokens, cfg.OTP),
		Chats:    chat.NewService(st, chat.NewStoreDirectory(st), hub),
		Hub:      hub,
		Auth:     authMw,
		Bus:      env.bus,
		Version:  "test",
	})
	router := NewRouter(handler, authMw, NewChiMiddleware(ChiMiddlewareConfigFromSecurity(&cfg.Security)))
	env.server = httptest.NewServer(router.SetupChi())

	// The server must close before the hub stops so no handler races shutdown.
	t.Cleanup(func() {
		env.server.Close()
		cancel()
		<-done
	})
	return env
}

// createUser stores a user and returns it with a bearer token.
func (e *testEnv) createUser(t *testing.T, name, email string) (*models.User, string) {
	t.Helper()
	user := &models.User{Name: name, Email: email}
	if err := e.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) error = %v", email, err)
	}
	token, err := e.tokens.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return user, token
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

// do sends a request and decodes the envelope. body may be nil, a string
// (sent verbatim) or a value encoded as JSON.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env envelope
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope %q: %v", raw, err)
		}
	}
	return resp, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func wantStatus(t *testing.T, resp *http.Response, env envelope, want int) {
	t.Helper()
	if resp.StatusCode != want {
		msg := ""
		if env.Error != nil {
			msg = env.Error.Code + ": " + env.Error.Message
		}
		t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, want, msg)
	}
}

func wantErrorCode(t *testing.T, env envelope, code string) {
	t.Helper()
	if env.Status != "error" || env.Error == nil {
		t.Fatalf("envelope = %+v, want error %s", env, code)
	}
	if env.Error.Code != code {
		t.Errorf("error code = %s, want %s", env.Error.Code, code)
	}
}
