// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/relaychat/internal/models"
)

const (
	messageKeyPrefix   = "msg:"
	messageIDKeyPrefix = "msg_id:"

	// markSeenBatch bounds the writes per transaction so that long unseen
	// backlogs never hit badger.ErrTxnTooBig.
	markSeenBatch = 500
)

// ErrEmptyMessage is returned when a message has neither text nor image.
var ErrEmptyMessage = errors.New("message requires text or image")

func messageKey(chatID, id string) string {
	return messageKeyPrefix + chatID + ":" + id
}

// CreateMessage stores a new message. ID, timestamps and Seen are assigned here.
func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	if !msg.HasContent() {
		return ErrEmptyMessage
	}
	msg.ID = newID()
	now := s.now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	msg.Seen = false
	msg.SeenAt = nil

	err := s.update(ctx, func(txn *badger.Txn) error {
		if err := setJSON(txn, messageKey(msg.ChatID, msg.ID), msg); err != nil {
			return err
		}
		return txn.Set([]byte(messageIDKeyPrefix+msg.ID), []byte(msg.ChatID))
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// GetMessage returns the message with the given id.
func (s *Store) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	err := s.db.View(func(txn *badger.Txn) error {
		chatID, err := getString(txn, messageIDKeyPrefix+id)
		if err != nil {
			return err
		}
		return getJSON(txn, messageKey(chatID, id), &msg)
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns the chat's messages in creation order.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]*models.Message, error) {
	msgs := make([]*models.Message, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, messageKeyPrefix+chatID+":", func(_, val []byte) error {
			var m models.Message
			if err := json.Unmarshal(val, &m); err != nil {
				return err
			}
			msgs = append(msgs, &m)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", chatID, err)
	}
	return msgs, nil
}

// CountUnseen counts messages in the chat with seen=false and sender != viewer.
func (s *Store) CountUnseen(ctx context.Context, chatID, viewer string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, messageKeyPrefix+chatID+":", func(_, val []byte) error {
			var m models.Message
			if err := json.Unmarshal(val, &m); err != nil {
				return err
			}
			if m.IsUnseenBy(viewer) {
				count++
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("count unseen for %s: %w", chatID, err)
	}
	return count, nil
}

// MarkSeen sets seen=true and seenAt on every message in the chat that is
// unseen by viewer, and returns the affected ids in creation order.
// Messages sent by viewer are never touched.
func (s *Store) MarkSeen(ctx context.Context, chatID, viewer string) ([]string, error) {
	seenAt := s.now().UTC()
	ids := make([]string, 0)

	for {
		batch, err := s.markSeenBatch(ctx, chatID, viewer, seenAt)
		if err != nil {
			return ids, fmt.Errorf("mark seen for %s: %w", chatID, err)
		}
		ids = append(ids, batch...)
		if len(batch) < markSeenBatch {
			return ids, nil
		}
	}
}

func (s *Store) markSeenBatch(ctx context.Context, chatID, viewer string, seenAt time.Time) ([]string, error) {
	var ids []string
	err := s.update(ctx, func(txn *badger.Txn) error {
		ids = ids[:0]
		var pending []*models.Message

		err := scanPrefix(txn, messageKeyPrefix+chatID+":", func(_, val []byte) error {
			if len(pending) >= markSeenBatch {
				return nil
			}
			var m models.Message
			if err := json.Unmarshal(val, &m); err != nil {
				return err
			}
			if m.IsUnseenBy(viewer) {
				pending = append(pending, &m)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, m := range pending {
			at := seenAt
			m.Seen = true
			m.SeenAt = &at
			m.UpdatedAt = seenAt
			if err := setJSON(txn, messageKey(chatID, m.ID), m); err != nil {
				return err
			}
			ids = append(ids, m.ID)
		}
		return nil
	})
	return ids, err
}
