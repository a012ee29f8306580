// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/relaychat/internal/chat"
	"github.com/tomtom215/relaychat/internal/models"
)

// CreateChat opens a chat between the caller and another user. The pair is
// unordered: if either side already started a chat, that chat is returned.
//
// Method: POST
// Path: /api/v1/chat/new
//
// Response:
//   - 200: {message: "Chat already exists", chatId}
//   - 201: {message: "Created new chat", chatId}
//   - 400: Missing otherUserId or a chat with oneself
//   - 404: Other user does not exist
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req CreateChatRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	c, created, err := h.chats.CreateChat(r.Context(), callerID(r), req.OtherUserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	status, message := http.StatusOK, "Chat already exists"
	if created {
		status, message = http.StatusCreated, "Created new chat"
	}
	respondSuccess(w, status, map[string]string{
		"message": message,
		"chatId":  c.ID,
	}, start)
}

// ListChats returns the caller's chats, most recently active first, each
// with the other participant and the caller's unseen count.
//
// Method: GET
// Path: /api/v1/chat/all
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	chats, err := h.chats.ListChats(r.Context(), callerID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if chats == nil {
		chats = []chat.ChatSummary{}
	}

	respondSuccess(w, http.StatusOK, map[string][]chat.ChatSummary{"chats": chats}, start)
}

// SendMessage persists a message and then delivers it in real time. The
// response reflects the persisted write only; delivery never fails it.
//
// Method: POST
// Path: /api/v1/message
//
// Response:
//   - 201: {sender, message}
//   - 400: Missing chatId, or neither text nor image
//   - 403: Caller is not a participant
//   - 404: Chat does not exist
//   - 500: Persistence failure
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req SendMessageRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	in := chat.SendMessageInput{
		ChatID: req.ChatID,
		Text:   req.Text,
	}
	if req.Image != nil {
		in.Image = &models.Image{URL: req.Image.URL, PublicID: req.Image.PublicID}
	}

	sender := callerID(r)
	msg, err := h.chats.SendMessage(r.Context(), sender, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, map[string]interface{}{
		"sender":  sender,
		"message": msg,
	}, start)
}

// GetMessages returns a chat's history and marks the other participant's
// messages as seen, notifying them if they are online.
//
// Method: GET
// Path: /api/v1/message/{chatId}
//
// Response:
//   - 200: {messages, user}
//   - 403: Caller is not a participant
//   - 404: Chat does not exist
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	conv, err := h.chats.GetMessages(r.Context(), callerID(r), chi.URLParam(r, "chatId"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if conv.Messages == nil {
		conv.Messages = []*models.Message{}
	}

	respondSuccess(w, http.StatusOK, conv, start)
}
