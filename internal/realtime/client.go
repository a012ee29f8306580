// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package realtime

import (
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/metrics"
)

// clientIDCounter hands out connection ids. Ids are never reused, so a
// stale disconnect can always be told apart from a newer connection.
var clientIDCounter atomic.Uint64

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	id      uint64
	userID  string
	hub     *Hub
	conn    *websocket.Conn
	send    chan Message
	limiter *rate.Limiter
}

// NewClient creates a client for conn. userID is the handshake identity and
// may be empty or a placeholder for anonymous connections.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	var limiter *rate.Limiter
	if hub.opts.EventsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(hub.opts.EventsPerSecond), hub.opts.EventBurst)
	}
	return &Client{
		id:      clientIDCounter.Add(1),
		userID:  userID,
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, hub.opts.SendBuffer),
		limiter: limiter,
	}
}

// ID returns the connection id.
func (c *Client) ID() uint64 {
	return c.id
}

// UserID returns the handshake identity.
func (c *Client) UserID() string {
	return c.userID
}

// identity returns the registered user id, or "" for anonymous connections.
func (c *Client) identity() string {
	if isAnonymous(c.userID) {
		return ""
	}
	return c.userID
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Uint64("conn_id", c.id).Msg("unexpected websocket close error")
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.dropMalformed("unknown", err)
			continue
		}
		c.handleInbound(msg)
	}
}

// handleInbound validates one client event and queues it for the hub.
// Invalid events are logged and dropped; the connection stays open.
func (c *Client) handleInbound(msg inboundMessage) {
	if c.limiter != nil && !c.limiter.Allow() {
		metrics.RecordWSEventDropped(eventLabel(msg.Type), "rate_limited")
		logging.Warn().Uint64("conn_id", c.id).Str("event", msg.Type).Msg("websocket event rate limited")
		return
	}
	metrics.RecordWSEventReceived(eventLabel(msg.Type))

	switch msg.Type {
	case EventJoinChat, EventLeaveChat:
		chatID, err := parseChatRef(msg.Data)
		if err != nil {
			c.dropMalformed(msg.Type, err)
			return
		}
		logging.Debug().
			Uint64("conn_id", c.id).
			Str("user_id", c.userID).
			Str("chat_id", chatID).
			Str("event", msg.Type).
			Msg("room membership change")
		c.hub.enqueue(roomEvent{client: c, roomID: chatID, join: msg.Type == EventJoinChat}, msg.Type)

	case EventTyping, EventStopTyping:
		payload, err := parseTyping(msg.Data, c.identity())
		if err != nil {
			c.dropMalformed(msg.Type, err)
			return
		}
		out := EventUserTyping
		if msg.Type == EventStopTyping {
			out = EventUserStoppedTyping
		}
		c.hub.enqueue(typingEvent{client: c, event: out, payload: payload}, msg.Type)

	case EventPing:
		c.hub.enqueue(pongEvent{client: c}, msg.Type)

	default:
		metrics.RecordWSEventDropped("unknown", "unknown_event")
		logging.Warn().Uint64("conn_id", c.id).Str("event", msg.Type).Msg("unknown websocket event")
	}
}

func (c *Client) dropMalformed(event string, err error) {
	metrics.RecordWSEventDropped(eventLabel(event), "malformed")
	logging.Warn().Err(err).Uint64("conn_id", c.id).Str("event", event).Msg("malformed websocket event")
}

func (c *Client) writePump() {
	pingPeriod := (c.hub.opts.PongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				logging.Error().Err(err).Str("event", message.Type).Msg("failed to encode websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Debug().Err(err).Uint64("conn_id", c.id).Msg("failed to write websocket message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client. The client must already
// be registered with the hub.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
