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

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/relaychat/internal/models"
)

const (
	chatKeyPrefix     = "chat:"
	chatPairKeyPrefix = "chat_pair:"
	chatUserKeyPrefix = "chat_user:"
)

// ErrInvalidParticipants is returned when a chat would not have two distinct users.
var ErrInvalidParticipants = errors.New("chat requires two distinct participants")

// FindOrCreateChat returns the chat between a and b, creating it when none
// exists. created reports whether a new chat was stored. Pair uniqueness is
// checked and written in the same transaction, so concurrent calls for the
// same pair converge on one chat.
func (s *Store) FindOrCreateChat(ctx context.Context, a, b string) (chat *models.Chat, created bool, err error) {
	if a == "" || b == "" || a == b {
		return nil, false, ErrInvalidParticipants
	}
	pairKey := chatPairKeyPrefix + models.PairKey(a, b)

	err = s.update(ctx, func(txn *badger.Txn) error {
		created = false
		existingID, err := getString(txn, pairKey)
		if err == nil {
			var existing models.Chat
			if err := getJSON(txn, chatKeyPrefix+existingID, &existing); err != nil {
				return err
			}
			chat = &existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		now := s.now().UTC()
		chat = &models.Chat{
			ID:        newID(),
			Users:     []string{a, b},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := setJSON(txn, chatKeyPrefix+chat.ID, chat); err != nil {
			return err
		}
		if err := txn.Set([]byte(pairKey), []byte(chat.ID)); err != nil {
			return err
		}
		for _, u := range chat.Users {
			if err := txn.Set([]byte(chatUserKeyPrefix+u+":"+chat.ID), []byte(chat.ID)); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("find or create chat: %w", err)
	}
	return chat, created, nil
}

// GetChat returns the chat with the given id.
func (s *Store) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, chatKeyPrefix+id, &chat)
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindChatByPair returns the chat between a and b.
func (s *Store) FindChatByPair(ctx context.Context, a, b string) (*models.Chat, error) {
	var chat models.Chat
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := getString(txn, chatPairKeyPrefix+models.PairKey(a, b))
		if err != nil {
			return err
		}
		return getJSON(txn, chatKeyPrefix+id, &chat)
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChatsForUser returns the user's chats, most recently updated first.
func (s *Store) ListChatsForUser(ctx context.Context, userID string) ([]*models.Chat, error) {
	chats := make([]*models.Chat, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, chatUserKeyPrefix+userID+":", func(_, val []byte) error {
			var chat models.Chat
			if err := getJSON(txn, chatKeyPrefix+string(val), &chat); err != nil {
				if errors.Is(err, ErrNotFound) {
					return nil
				}
				return err
			}
			chats = append(chats, &chat)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list chats for %s: %w", userID, err)
	}
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

// UpdateChat applies fn to the stored chat and saves it atomically.
// Participants are immutable; UpdatedAt is bumped.
func (s *Store) UpdateChat(ctx context.Context, id string, fn func(*models.Chat) error) (*models.Chat, error) {
	var updated models.Chat
	err := s.update(ctx, func(txn *badger.Txn) error {
		var chat models.Chat
		if err := getJSON(txn, chatKeyPrefix+id, &chat); err != nil {
			return err
		}
		users := chat.Users
		if err := fn(&chat); err != nil {
			return err
		}
		chat.ID = id
		chat.Users = users
		chat.UpdatedAt = s.now().UTC()
		updated = chat
		return setJSON(txn, chatKeyPrefix+id, &chat)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
