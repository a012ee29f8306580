// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/relaychat/internal/models"
)

const (
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "user_email:"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new user. ID and timestamps are assigned when empty.
// Returns ErrDuplicate if the email is already registered.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if user.ID == "" {
		user.ID = newID()
	}
	now := s.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	return s.update(ctx, func(txn *badger.Txn) error {
		emailKey := []byte(userEmailKeyPrefix + user.Email)
		if _, err := txn.Get(emailKey); err == nil {
			return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := setJSON(txn, userKeyPrefix+user.ID, user); err != nil {
			return err
		}
		return txn.Set(emailKey, []byte(user.ID))
	})
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKeyPrefix+id, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail returns the user registered with email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := getString(txn, userEmailKeyPrefix+normalizeEmail(email))
		if err != nil {
			return err
		}
		return getJSON(txn, userKeyPrefix+id, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies fn to the stored user and saves the result atomically.
// The email field is immutable.
func (s *Store) UpdateUser(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	var updated models.User
	err := s.update(ctx, func(txn *badger.Txn) error {
		var user models.User
		if err := getJSON(txn, userKeyPrefix+id, &user); err != nil {
			return err
		}
		email := user.Email
		if err := fn(&user); err != nil {
			return err
		}
		user.ID = id
		user.Email = email
		user.UpdatedAt = s.now().UTC()
		updated = user
		return setJSON(txn, userKeyPrefix+id, &user)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListUsers returns every user ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, userKeyPrefix, func(_, val []byte) error {
			var u models.User
			if err := json.Unmarshal(val, &u); err != nil {
				return err
			}
			users = append(users, &u)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}
