// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package realtime

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/relaychat/internal/config"
	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/metrics"
	"github.com/tomtom215/relaychat/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Options tunes the hub and its clients.
type Options struct {
	SendBuffer      int
	EventBuffer     int
	WriteWait       time.Duration
	PongWait        time.Duration
	MaxMessageSize  int64
	EventsPerSecond float64
	EventBurst      int
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		SendBuffer:      256,
		EventBuffer:     1024,
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		MaxMessageSize:  64 * 1024,
		EventsPerSecond: 20,
		EventBurst:      40,
	}
}

// OptionsFromConfig builds Options from the websocket config section.
func OptionsFromConfig(cfg *config.WebSocketConfig) Options {
	opts := DefaultOptions()
	opts.SendBuffer = cfg.SendBuffer
	opts.WriteWait = cfg.WriteWait
	opts.PongWait = cfg.PongWait
	opts.MaxMessageSize = cfg.MaxMessageSize
	opts.EventsPerSecond = cfg.EventsPerSecond
	opts.EventBurst = cfg.EventBurst
	return opts
}

// hubEvent is anything the hub goroutine applies to its state.
type hubEvent interface {
	apply(h *Hub)
}

// Hub is the single event-dispatch context for realtime state. The
// connection registry, room membership and client set are owned by the
// goroutine running RunWithContext; every other goroutine reaches them only
// through Register/Unregister and the event queue.
//
// Delivery is best-effort. Nothing is acknowledged or retried: a client
// that is offline or too slow simply misses the event and catches up from
// persisted state on its next chat list or history fetch.
type Hub struct {
	opts Options

	Register   chan *Client
	Unregister chan *Client
	events     chan hubEvent

	// Owned by the run goroutine.
	clients  map[uint64]*Client
	registry *registry
	rooms    *rooms

	clientCount atomic.Int64

	mu   sync.Mutex
	done chan struct{}
}

// NewHub creates a hub. It does nothing until RunWithContext is called.
func NewHub(opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultOptions().SendBuffer
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultOptions().EventBuffer
	}
	return &Hub{
		opts:       opts,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		events:     make(chan hubEvent, opts.EventBuffer),
		clients:    make(map[uint64]*Client),
		registry:   newRegistry(),
		rooms:      newRooms(),
		done:       make(chan struct{}),
	}
}

// RunWithContext runs the dispatch loop until ctx is canceled. Designed
// for suture supervision: on cancel every client is closed and all
// ephemeral state is discarded, so a restarted hub begins empty.
//
// Priority: shutdown, then client lifecycle, then queued events. Queued
// events are applied strictly in arrival order.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.resetDone()

	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.Register:
			h.handleRegister(c)
			continue
		case c := <-h.Unregister:
			h.handleUnregister(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.Register:
			h.handleRegister(c)
		case c := <-h.Unregister:
			h.handleUnregister(c)
		case ev := <-h.events:
			ev.apply(h)
		}
	}
}

// RegisterClient hands c to the hub. Returns an error if ctx ends or the
// hub stops first.
func (h *Hub) RegisterClient(ctx context.Context, c *Client) error {
	select {
	case h.Register <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stopped():
		return context.Canceled
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.stopped():
	}
}

// GetClientCount returns the number of live connections.
func (h *Hub) GetClientCount() int {
	return int(h.clientCount.Load())
}

func (h *Hub) stopped() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

func (h *Hub) resetDone() {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		h.done = make(chan struct{})
	default:
	}
}

// handleRegister records a new connection, registers its user (last
// connection wins) and broadcasts the presence snapshot to everyone.
func (h *Hub) handleRegister(c *Client) {
	h.clients[c.id] = c
	h.clientCount.Store(int64(len(h.clients)))
	metrics.WSConnections.Set(float64(len(h.clients)))

	if h.registry.register(c.userID, c.id) {
		h.rooms.join(c.id, c.userID)
	}

	logging.Debug().
		Uint64("conn_id", c.id).
		Str("user_id", c.userID).
		Int("total_clients", len(h.clients)).
		Msg("websocket client connected")

	h.broadcastPresence()
}

func (h *Hub) handleUnregister(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	changed := h.dropClient(c)

	logging.Debug().
		Uint64("conn_id", c.id).
		Str("user_id", c.userID).
		Int("total_clients", len(h.clients)).
		Msg("websocket client disconnected")

	if changed {
		h.broadcastPresence()
	}
}

// dropClient removes c from all hub state and closes its send channel.
// Returns true when the registry changed.
func (h *Hub) dropClient(c *Client) bool {
	delete(h.clients, c.id)
	close(c.send)
	h.clientCount.Store(int64(len(h.clients)))
	metrics.WSConnections.Set(float64(len(h.clients)))

	h.rooms.leaveAll(c.id)
	metrics.WSRooms.Set(float64(h.rooms.count()))
	return h.registry.unregister(c.userID, c.id)
}

// broadcastPresence sends the full set of online users to every connection.
func (h *Hub) broadcastPresence() {
	online := h.registry.onlineUsers()
	metrics.WSOnlineUsers.Set(float64(len(online)))
	metrics.RecordPresenceBroadcast()

	h.fanout(h.sortedClientIDs(), Message{Type: EventOnlineUsers, Data: online})
}

// broadcastToRoom delivers msg to every member of roomID except exclude
// (0 excludes nobody). Returns the number of connections reached.
func (h *Hub) broadcastToRoom(roomID string, msg Message, exclude uint64) int {
	return h.fanout(h.rooms.memberIDs(roomID, exclude), msg)
}

// fanout delivers msg to the given connections without blocking. Clients
// whose send buffer is full are evicted.
func (h *Hub) fanout(ids []uint64, msg Message) int {
	var slow []*Client
	delivered := 0

	for _, id := range ids {
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case c.send <- msg:
			delivered++
		default:
			slow = append(slow, c)
		}
	}

	metrics.RecordWSMessagesSent(msg.Type, delivered)
	h.evict(slow)
	return delivered
}

func (h *Hub) evict(slow []*Client) {
	changed := false
	for _, c := range slow {
		if _, ok := h.clients[c.id]; !ok {
			continue
		}
		logging.Warn().
			Uint64("conn_id", c.id).
			Str("user_id", c.userID).
			Msg("send buffer full, disconnecting slow websocket client")
		metrics.RecordWSSlowClientEvicted()
		if h.dropClient(c) {
			changed = true
		}
	}
	if changed {
		h.broadcastPresence()
	}
}

func (h *Hub) sortedClientIDs() []uint64 {
	ids := make([]uint64, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// shutdown closes every client and discards registry and room state.
func (h *Hub) shutdown(ctx context.Context) {
	clientCount := len(h.clients)
	for _, id := range h.sortedClientIDs() {
		close(h.clients[id].send)
	}
	h.clients = make(map[uint64]*Client)
	h.registry = newRegistry()
	h.rooms = newRooms()
	h.clientCount.Store(0)
	metrics.WSConnections.Set(0)
	metrics.WSOnlineUsers.Set(0)
	metrics.WSRooms.Set(0)

	h.mu.Lock()
	close(h.done)
	h.mu.Unlock()

	logging.Info().
		Str("component", "realtime-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("realtime hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// enqueue is fire-and-forget: if the queue is full the event is dropped.
func (h *Hub) enqueue(ev hubEvent, name string) bool {
	select {
	case h.events <- ev:
		return true
	default:
		logging.Warn().Str("event", name).Msg("hub event queue full, dropping event")
		metrics.RecordWSEventDropped(name, "queue_full")
		return false
	}
}

// query runs fn on the hub goroutine after every previously queued event.
// Returns context.Canceled without waiting when the hub has stopped.
func (h *Hub) query(ctx context.Context, fn func(h *Hub)) error {
	stopped := h.stopped()
	ev := queryEvent{fn: fn, done: make(chan struct{})}
	select {
	case h.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-stopped:
		return context.Canceled
	}
	select {
	case <-ev.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-stopped:
		return context.Canceled
	}
}

// EmitNewMessage fans a persisted message out to its recipient. When the
// recipient has a live connection, the message goes to that connection and
// to every connection joined to the chat's room (the sender's other views
// included), each at most once. An offline recipient gets nothing; the
// message is recovered from storage on the next fetch.
func (h *Hub) EmitNewMessage(recipientID string, msg *models.Message) {
	h.enqueue(newMessageEvent{recipientID: recipientID, message: msg}, EventNewMessage)
}

// EmitMessagesSeen tells senderID's connection that messageIDs in chatID
// were seen. A nil or empty messageIDs is the blanket form.
func (h *Hub) EmitMessagesSeen(senderID, chatID string, messageIDs []string) {
	h.enqueue(messagesSeenEvent{
		senderID: senderID,
		payload:  MessagesSeenPayload{ChatID: chatID, MessageIDs: messageIDs},
	}, EventMessagesSeen)
}

// Lookup returns the live connection id for userID.
func (h *Hub) Lookup(ctx context.Context, userID string) (connID uint64, ok bool, err error) {
	err = h.query(ctx, func(h *Hub) {
		connID, ok = h.registry.lookup(userID)
	})
	return connID, ok, err
}

// Snapshot is a point-in-time view of hub state.
type Snapshot struct {
	OnlineUsers []string `json:"onlineUsers"`
	Connections int      `json:"connections"`
	Rooms       int      `json:"rooms"`
}

// Snapshot returns the current online users and counts.
func (h *Hub) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := h.query(ctx, func(h *Hub) {
		s = Snapshot{
			OnlineUsers: h.registry.onlineUsers(),
			Connections: len(h.clients),
			Rooms:       h.rooms.count(),
		}
	})
	return s, err
}

// RoomMembers returns the connection ids joined to roomID.
func (h *Hub) RoomMembers(ctx context.Context, roomID string) ([]uint64, error) {
	var ids []uint64
	err := h.query(ctx, func(h *Hub) {
		ids = h.rooms.memberIDs(roomID, 0)
	})
	return ids, err
}

// IsViewing reports whether userID's live connection has joined roomID.
func (h *Hub) IsViewing(ctx context.Context, userID, roomID string) (bool, error) {
	var viewing bool
	err := h.query(ctx, func(h *Hub) {
		if connID, ok := h.registry.lookup(userID); ok {
			viewing = h.rooms.isMember(connID, roomID)
		}
	})
	return viewing, err
}
