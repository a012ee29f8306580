// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package realtime

import "sort"

// registry maps a user identity to its single live connection.
// The last registered connection wins; there is no multi-device fan-out.
//
// Not safe for concurrent use: only the hub goroutine touches it.
type registry struct {
	byUser map[string]uint64
}

func newRegistry() *registry {
	return &registry{byUser: make(map[string]uint64)}
}

// isAnonymous reports whether a handshake user id is absent or a client
// placeholder for "no user".
func isAnonymous(userID string) bool {
	return userID == "" || userID == "undefined" || userID == "null"
}

// register maps userID to connID, overwriting any previous connection.
// Returns false for anonymous ids, which are never registered.
func (r *registry) register(userID string, connID uint64) bool {
	if isAnonymous(userID) {
		return false
	}
	r.byUser[userID] = connID
	return true
}

// lookup returns the live connection for userID.
func (r *registry) lookup(userID string) (uint64, bool) {
	id, ok := r.byUser[userID]
	return id, ok
}

// unregister removes userID's entry only when it still points at connID,
// so the disconnect of a replaced connection leaves the newer one intact.
func (r *registry) unregister(userID string, connID uint64) bool {
	current, ok := r.byUser[userID]
	if !ok || current != connID {
		return false
	}
	delete(r.byUser, userID)
	return true
}

// onlineUsers returns the registered identities, sorted.
func (r *registry) onlineUsers() []string {
	users := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}
