// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package realtime

import "sort"

// rooms tracks which connections are joined to which room. Rooms are
// derived entirely from join/leave and are never persisted; a reconnecting
// client must join again.
//
// Not safe for concurrent use: only the hub goroutine touches it.
type rooms struct {
	members map[string]map[uint64]struct{}
	byConn  map[uint64]map[string]struct{}
}

func newRooms() *rooms {
	return &rooms{
		members: make(map[string]map[uint64]struct{}),
		byConn:  make(map[uint64]map[string]struct{}),
	}
}

// join adds connID to roomID. Idempotent.
func (r *rooms) join(connID uint64, roomID string) {
	set, ok := r.members[roomID]
	if !ok {
		set = make(map[uint64]struct{})
		r.members[roomID] = set
	}
	set[connID] = struct{}{}

	joined, ok := r.byConn[connID]
	if !ok {
		joined = make(map[string]struct{})
		r.byConn[connID] = joined
	}
	joined[roomID] = struct{}{}
}

// leave removes connID from roomID. Idempotent; empty rooms are dropped.
func (r *rooms) leave(connID uint64, roomID string) {
	if set, ok := r.members[roomID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.members, roomID)
		}
	}
	if joined, ok := r.byConn[connID]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// leaveAll removes connID from every room it joined.
func (r *rooms) leaveAll(connID uint64) {
	for roomID := range r.byConn[connID] {
		r.leave(connID, roomID)
	}
}

// memberIDs returns the connections in roomID in ascending id order,
// skipping exclude (0 excludes nothing).
func (r *rooms) memberIDs(roomID string, exclude uint64) []uint64 {
	set := r.members[roomID]
	ids := make([]uint64, 0, len(set))
	for id := range set {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *rooms) isMember(connID uint64, roomID string) bool {
	_, ok := r.members[roomID][connID]
	return ok
}

func (r *rooms) count() int {
	return len(r.members)
}
