// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package chat

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// chatLocks serializes writers per chat using a fixed set of mutexes.
// Two chats may share a stripe.
type chatLocks struct {
	stripes [lockStripes]sync.Mutex
}

func newChatLocks() *chatLocks {
	return &chatLocks{}
}

func (l *chatLocks) lock(chatID string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(chatID))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
