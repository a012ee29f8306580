// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package realtime

import (
	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/metrics"
	"github.com/tomtom215/relaychat/internal/models"
)

// roomEvent joins or leaves a chat room for one connection.
type roomEvent struct {
	client *Client
	roomID string
	join   bool
}

func (e roomEvent) apply(h *Hub) {
	if _, ok := h.clients[e.client.id]; !ok {
		return
	}
	if e.join {
		h.rooms.join(e.client.id, e.roomID)
	} else {
		h.rooms.leave(e.client.id, e.roomID)
	}
	metrics.WSRooms.Set(float64(h.rooms.count()))
}

// typingEvent relays a typing indicator to the chat room, never back to the
// connection that produced it.
type typingEvent struct {
	client  *Client
	event   string
	payload TypingPayload
}

func (e typingEvent) apply(h *Hub) {
	if _, ok := h.clients[e.client.id]; !ok {
		return
	}
	h.broadcastToRoom(e.payload.ChatID, Message{Type: e.event, Data: e.payload}, e.client.id)
}

// pongEvent answers an application-level ping on the hub goroutine, which
// owns the send channel.
type pongEvent struct {
	client *Client
}

func (e pongEvent) apply(h *Hub) {
	if _, ok := h.clients[e.client.id]; !ok {
		return
	}
	h.fanout([]uint64{e.client.id}, Message{Type: EventPong})
}

type newMessageEvent struct {
	recipientID string
	message     *models.Message
}

func (e newMessageEvent) apply(h *Hub) {
	connID, ok := h.registry.lookup(e.recipientID)
	if !ok {
		metrics.RecordFanout(EventNewMessage, "unreachable")
		logging.Debug().
			Str("recipient_id", e.recipientID).
			Str("chat_id", e.message.ChatID).
			Msg("recipient offline, skipping realtime delivery")
		return
	}

	targets := h.rooms.memberIDs(e.message.ChatID, 0)
	found := false
	for _, id := range targets {
		if id == connID {
			found = true
			break
		}
	}
	if !found {
		targets = append(targets, connID)
	}

	metrics.RecordFanout(EventNewMessage, "delivered")
	h.fanout(targets, Message{Type: EventNewMessage, Data: e.message})
}

type messagesSeenEvent struct {
	senderID string
	payload  MessagesSeenPayload
}

func (e messagesSeenEvent) apply(h *Hub) {
	connID, ok := h.registry.lookup(e.senderID)
	if !ok {
		metrics.RecordFanout(EventMessagesSeen, "unreachable")
		return
	}
	metrics.RecordFanout(EventMessagesSeen, "delivered")
	h.fanout([]uint64{connID}, Message{Type: EventMessagesSeen, Data: e.payload})
}

// queryEvent runs fn on the hub goroutine and signals done.
type queryEvent struct {
	fn   func(h *Hub)
	done chan struct{}
}

func (e queryEvent) apply(h *Hub) {
	e.fn(h)
	close(e.done)
}
