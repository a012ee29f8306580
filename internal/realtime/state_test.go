// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package realtime

import "sort"

// roomsOf returns the rooms connID has joined, sorted.
func (r *rooms) roomsOf(connID uint64) []string {
	out := make([]string, 0, len(r.byConn[connID]))
	for id := range r.byConn[connID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *registry) size() int {
	return len(r.byUser)
}
