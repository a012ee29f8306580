// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

// Package chat implements the conversation operations behind the HTTP API:
// creating and listing chats, sending messages and opening a conversation.
//
// Persistence is authoritative. Real-time delivery happens only after a
// write commits and is best effort: a recipient who misses an event catches
// up from persisted state (unseen counts, history) on the next fetch.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/metrics"
	"github.com/tomtom215/relaychat/internal/models"
	"github.com/tomtom215/relaychat/internal/store"
)

var (
	// ErrInvalidInput is returned when a required field is missing.
	ErrInvalidInput = errors.New("invalid input")

	// ErrChatNotFound is returned for an unknown chat id.
	ErrChatNotFound = errors.New("chat not found")

	// ErrNotMember is returned when the caller is not a participant.
	ErrNotMember = errors.New("not a member of this chat")

	// ErrUserNotFound is returned when the other participant does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Notifier delivers real-time events. Emit calls never block on clients.
type Notifier interface {
	EmitNewMessage(recipientID string, msg *models.Message)
	EmitMessagesSeen(senderID, chatID string, messageIDs []string)
	IsViewing(ctx context.Context, userID, chatID string) (bool, error)
}

// Service implements the conversation operations.
type Service struct {
	store    *store.Store
	users    UserDirectory
	notifier Notifier
	locks    *chatLocks
}

// NewService creates the conversation service.
func NewService(st *store.Store, users UserDirectory, notifier Notifier) *Service {
	return &Service{
		store:    st,
		users:    users,
		notifier: notifier,
		locks:    newChatLocks(),
	}
}

// CreateChat returns the chat between userID and otherUserID, creating it
// if needed. created is false when the pair already had a chat.
func (s *Service) CreateChat(ctx context.Context, userID, otherUserID string) (chat *models.Chat, created bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordChatOperation("create_chat", time.Since(start), err) }()

	otherUserID = strings.TrimSpace(otherUserID)
	if otherUserID == "" {
		return nil, false, fmt.Errorf("%w: otherUserId is required", ErrInvalidInput)
	}
	if otherUserID == userID {
		return nil, false, fmt.Errorf("%w: cannot start a chat with yourself", ErrInvalidInput)
	}

	if _, err := s.users.GetUser(ctx, otherUserID); err != nil {
		return nil, false, err
	}

	chat, created, err = s.store.FindOrCreateChat(ctx, userID, otherUserID)
	if err != nil {
		return nil, false, err
	}
	if created {
		metrics.RecordChatCreated()
		logging.Ctx(ctx).Info().Str("chat_id", chat.ID).Str("other_user_id", otherUserID).Msg("chat created")
	}
	return chat, created, nil
}

// ChatView is a chat decorated for the viewer.
type ChatView struct {
	models.Chat
	UnseenCount int `json:"unseenCount"`
}

// ChatSummary pairs a chat with the other participant.
type ChatSummary struct {
	User models.UserRef `json:"user"`
	Chat ChatView       `json:"chat"`
}

// maxDirectoryLookups bounds concurrent user lookups while listing chats.
const maxDirectoryLookups = 8

// ListChats returns userID's chats, most recently updated first. A user
// the directory cannot resolve is shown as "Unknown User".
func (s *Service) ListChats(ctx context.Context, userID string) (summaries []ChatSummary, err error) {
	start := time.Now()
	defer func() { metrics.RecordChatOperation("list_chats", time.Since(start), err) }()

	chats, err := s.store.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries = make([]ChatSummary, len(chats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxDirectoryLookups)

	for i, c := range chats {
		g.Go(func() error {
			unseen, err := s.store.CountUnseen(gctx, c.ID, userID)
			if err != nil {
				return err
			}
			summaries[i] = ChatSummary{
				User: s.resolveUser(gctx, c.OtherParticipant(userID)),
				Chat: ChatView{Chat: *c, UnseenCount: unseen},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Service) resolveUser(ctx context.Context, id string) models.UserRef {
	ref, err := s.users.GetUser(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			logging.Ctx(ctx).Warn().Err(err).Str("user_id", id).Msg("user lookup failed")
		}
		return models.UserRef{ID: id, Name: models.UnknownUserName}
	}
	return *ref
}

// SendMessageInput is the content of a new message.
type SendMessageInput struct {
	ChatID string
	Text   string
	Image  *models.Image
}

// SendMessage persists a message from senderID, updates the chat summary
// and then notifies the other participant. A persistence failure returns
// an error and nothing is emitted.
func (s *Service) SendMessage(ctx context.Context, senderID string, in SendMessageInput) (msg *models.Message, err error) {
	start := time.Now()
	defer func() { metrics.RecordChatOperation("send_message", time.Since(start), err) }()

	in.ChatID = strings.TrimSpace(in.ChatID)
	if in.ChatID == "" {
		return nil, fmt.Errorf("%w: chatId is required", ErrInvalidInput)
	}
	if in.Image != nil && in.Image.URL == "" {
		in.Image = nil
	}
	if strings.TrimSpace(in.Text) == "" && in.Image == nil {
		return nil, fmt.Errorf("%w: text or image is required", ErrInvalidInput)
	}

	chat, err := s.memberChat(ctx, in.ChatID, senderID)
	if err != nil {
		return nil, err
	}
	recipientID := chat.OtherParticipant(senderID)

	msg = &models.Message{
		ChatID:      chat.ID,
		Sender:      senderID,
		Text:        in.Text,
		Image:       in.Image,
		MessageType: models.MessageTypeText,
	}
	if in.Image != nil {
		msg.MessageType = models.MessageTypeImage
	}

	// Held from write to emit so events for one chat leave in commit order.
	unlock := s.locks.lock(chat.ID)
	defer unlock()

	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	metrics.RecordMessagePersisted(string(msg.MessageType))

	_, err = s.store.UpdateChat(ctx, chat.ID, func(c *models.Chat) error {
		c.LatestMessage = &models.LatestMessage{Text: msg.PreviewText(), Sender: senderID}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update chat summary: %w", err)
	}

	s.notifier.EmitNewMessage(recipientID, msg)
	if s.markSeenIfViewing(ctx, chat.ID, recipientID, senderID, msg.ID) {
		if seen, err := s.store.GetMessage(ctx, msg.ID); err == nil {
			msg = seen
		} else {
			msg.Seen = true
		}
	}

	return msg, nil
}

// markSeenIfViewing marks unseen messages seen straight away when the
// recipient has the conversation open. Reports whether msgID was among them.
func (s *Service) markSeenIfViewing(ctx context.Context, chatID, viewerID, senderID, msgID string) bool {
	viewing, err := s.notifier.IsViewing(ctx, viewerID, chatID)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("chat_id", chatID).Msg("viewer check skipped")
		return false
	}
	if !viewing {
		return false
	}
	ids, err := s.markSeen(ctx, chatID, viewerID, senderID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("chat_id", chatID).Msg("mark seen on delivery failed")
	}
	for _, id := range ids {
		if id == msgID {
			return true
		}
	}
	return false
}

// Conversation is the history returned when a chat is opened.
type Conversation struct {
	Messages []*models.Message `json:"messages"`
	User     models.UserRef    `json:"user"`
}

// GetMessages marks the other participant's messages seen, notifies them,
// and returns the chat history in creation order.
func (s *Service) GetMessages(ctx context.Context, viewerID, chatID string) (conv *Conversation, err error) {
	start := time.Now()
	defer func() { metrics.RecordChatOperation("get_messages", time.Since(start), err) }()

	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("%w: chatId is required", ErrInvalidInput)
	}

	chat, err := s.memberChat(ctx, chatID, viewerID)
	if err != nil {
		return nil, err
	}
	otherID := chat.OtherParticipant(viewerID)

	// Marking first means the history carries the new seen state and seenAt.
	unlock := s.locks.lock(chat.ID)
	if _, err = s.markSeen(ctx, chat.ID, viewerID, otherID); err != nil {
		unlock()
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, chat.ID)
	unlock()
	if err != nil {
		return nil, err
	}

	return &Conversation{
		Messages: msgs,
		User:     s.resolveUser(ctx, otherID),
	}, nil
}

// markSeen marks every message in chatID not sent by viewerID as seen and
// tells senderID which ones changed. Nothing is emitted when nothing changed.
// On a partial failure the batches already committed are still emitted and
// returned along with the error.
func (s *Service) markSeen(ctx context.Context, chatID, viewerID, senderID string) ([]string, error) {
	ids, err := s.store.MarkSeen(ctx, chatID, viewerID)
	if len(ids) > 0 {
		metrics.RecordMessagesMarkedSeen(len(ids))
		s.notifier.EmitMessagesSeen(senderID, chatID, ids)
	}
	return ids, err
}

func (s *Service) memberChat(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotMember
	}
	return chat, nil
}
