// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/relaychat/internal/breaker"
	"github.com/tomtom215/relaychat/internal/cache"
	"github.com/tomtom215/relaychat/internal/config"
	"github.com/tomtom215/relaychat/internal/models"
	"github.com/tomtom215/relaychat/internal/store"
)

// UserDirectory resolves user ids to display identities.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*models.UserRef, error)
}

// StoreDirectory reads users from the local store.
type StoreDirectory struct {
	store *store.Store
}

// NewStoreDirectory creates a directory backed by st.
func NewStoreDirectory(st *store.Store) *StoreDirectory {
	return &StoreDirectory{store: st}
}

// GetUser returns ErrUserNotFound for unknown ids.
func (d *StoreDirectory) GetUser(ctx context.Context, id string) (*models.UserRef, error) {
	u, err := d.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	ref := u.Ref()
	return &ref, nil
}

// HTTPDirectory queries a remote identity service at
// {base}/api/v1/user/user/{id}. Calls go through a circuit breaker so a
// failing service degrades chat listings to "Unknown User" quickly.
// Successful lookups are cached; misses and failures are not.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
	breaker *breaker.Breaker
	users   *cache.LRU[models.UserRef]
}

// NewHTTPDirectory creates a remote directory from cfg.
func NewHTTPDirectory(cfg config.ChatConfig) *HTTPDirectory {
	timeout := cfg.UserServiceTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPDirectory{
		baseURL: strings.TrimRight(cfg.UserServiceURL, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: breaker.New(breaker.DefaultSettings("user-directory")),
		users:   cache.New[models.UserRef](cfg.UserCacheSize, cfg.UserCacheTTL),
	}
}

// directoryResponse is the subset of the API envelope the directory reads.
type directoryResponse struct {
	Status string `json:"status"`
	Data   struct {
		User *models.UserRef `json:"user"`
	} `json:"data"`
}

// GetUser fetches id from the remote service. A 404 maps to
// ErrUserNotFound and does not count against the breaker.
func (d *HTTPDirectory) GetUser(ctx context.Context, id string) (*models.UserRef, error) {
	if ref, ok := d.users.Get(id); ok {
		return &ref, nil
	}

	var notFound bool
	ref, err := breaker.Cast[models.UserRef](d.breaker.Execute(func() (interface{}, error) {
		ref, err := d.fetch(ctx, id)
		if errors.Is(err, ErrUserNotFound) {
			notFound = true
			return (*models.UserRef)(nil), nil
		}
		return ref, err
	}))
	if err != nil {
		return nil, err
	}
	if notFound || ref == nil {
		return nil, ErrUserNotFound
	}
	d.users.Add(id, *ref)
	return ref, nil
}

func (d *HTTPDirectory) fetch(ctx context.Context, id string) (*models.UserRef, error) {
	endpoint := d.baseURL + "/api/v1/user/user/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // Best effort cleanup

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch user %s: unexpected status %d", id, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read user %s: %w", id, err)
	}
	var out directoryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	if out.Data.User == nil {
		return nil, ErrUserNotFound
	}
	return out.Data.User, nil
}

// NewDirectory returns the remote directory when a user service URL is
// configured, otherwise the store-backed one.
func NewDirectory(cfg config.ChatConfig, st *store.Store) UserDirectory {
	if cfg.UserServiceURL != "" {
		return NewHTTPDirectory(cfg)
	}
	return NewStoreDirectory(st)
}
