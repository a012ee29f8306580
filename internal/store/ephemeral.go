// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const ephemeralKeyPrefix = "eph:"

// PutEphemeral stores value under key; it disappears after ttl.
func (s *Store) PutEphemeral(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(ephemeralKeyPrefix+key), value).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// GetEphemeral returns the value under key, or ErrNotFound once expired.
func (s *Store) GetEphemeral(ctx context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ephemeralKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

// DeleteEphemeral removes key. Missing keys are not an error.
func (s *Store) DeleteEphemeral(ctx context.Context, key string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return txn.Delete([]byte(ephemeralKeyPrefix + key))
	})
}

// IncrementEphemeral increments the counter under key and returns the new
// value. The first increment starts a window of length ttl; later
// increments keep the original expiry, giving a fixed-window counter.
func (s *Store) IncrementEphemeral(ctx context.Context, key string, ttl time.Duration) (int, error) {
	var count int
	err := s.update(ctx, func(txn *badger.Txn) error {
		k := []byte(ephemeralKeyPrefix + key)
		count = 1
		var expiresAt uint64

		item, err := txn.Get(k)
		switch {
		case err == nil:
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(string(val))
			if err != nil {
				return fmt.Errorf("counter %s is not numeric: %w", key, err)
			}
			count = n + 1
			expiresAt = item.ExpiresAt()
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		e := badger.NewEntry(k, []byte(strconv.Itoa(count)))
		if expiresAt > 0 {
			e.ExpiresAt = expiresAt
		} else {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
