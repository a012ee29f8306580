// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package chat

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/relaychat/internal/realtime"
)

func TestService_WithHubOfflineRecipient(t *testing.T) {
	f := newFixture(t)

	hub := realtime.NewHub(realtime.DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	svc := NewService(f.store, NewStoreDirectory(f.store), hub)
	c, _, err := svc.CreateChat(context.Background(), f.alice.ID, f.bob.ID)
	if err != nil {
		t.Fatal(err)
	}

	qctx, qcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer qcancel()

	msg, err := svc.SendMessage(qctx, f.alice.ID, SendMessageInput{ChatID: c.ID, Text: "hi"})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if msg.Seen {
		t.Error("message to offline recipient marked seen")
	}

	summaries, err := svc.ListChats(qctx, f.bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].Chat.UnseenCount != 1 {
		t.Errorf("bob summaries = %+v, want one chat with unseen count 1", summaries)
	}
}
