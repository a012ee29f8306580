// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/chat/all", "200"))

	RecordAPIRequest("GET", "/api/v1/chat/all", "200", 15*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/chat/all", "200"))
	if after-before != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active requests = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active requests = %v, want %v", got, before)
	}
}

func TestRecordWSMessagesSent(t *testing.T) {
	before := testutil.ToFloat64(WSMessagesSent.WithLabelValues("newMessage"))

	RecordWSMessagesSent("newMessage", 3)
	RecordWSMessagesSent("newMessage", 0)
	RecordWSMessagesSent("newMessage", -1)

	if got := testutil.ToFloat64(WSMessagesSent.WithLabelValues("newMessage")) - before; got != 3 {
		t.Errorf("delta = %v, want 3", got)
	}
}

func TestRecordWSEventDropped(t *testing.T) {
	before := testutil.ToFloat64(WSEventsDropped.WithLabelValues("typing", "malformed"))
	RecordWSEventDropped("typing", "malformed")
	if got := testutil.ToFloat64(WSEventsDropped.WithLabelValues("typing", "malformed")) - before; got != 1 {
		t.Errorf("delta = %v, want 1", got)
	}
}

func TestRecordChatOperation(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		err       error
		wantErr   float64
	}{
		{name: "success", operation: "send_message", err: nil, wantErr: 0},
		{name: "failure", operation: "send_message", err: errors.New("store closed"), wantErr: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(ChatOperationErrors.WithLabelValues(tt.operation))
			RecordChatOperation(tt.operation, time.Millisecond, tt.err)
			after := testutil.ToFloat64(ChatOperationErrors.WithLabelValues(tt.operation))
			if after-before != tt.wantErr {
				t.Errorf("error delta = %v, want %v", after-before, tt.wantErr)
			}
		})
	}
}

func TestRecordMessagesMarkedSeen(t *testing.T) {
	before := testutil.ToFloat64(MessagesMarkedSeen)
	RecordMessagesMarkedSeen(4)
	RecordMessagesMarkedSeen(0)
	if got := testutil.ToFloat64(MessagesMarkedSeen) - before; got != 4 {
		t.Errorf("delta = %v, want 4", got)
	}
}

func TestRecordNATSPublish(t *testing.T) {
	okBefore := testutil.ToFloat64(NATSMessagesPublished.WithLabelValues("send_otp"))
	errBefore := testutil.ToFloat64(NATSPublishErrors.WithLabelValues("send_otp"))

	RecordNATSPublish("send_otp", nil)
	RecordNATSPublish("send_otp", errors.New("nats: timeout"))

	if got := testutil.ToFloat64(NATSMessagesPublished.WithLabelValues("send_otp")) - okBefore; got != 1 {
		t.Errorf("published delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(NATSPublishErrors.WithLabelValues("send_otp")) - errBefore; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestRecordMailSent(t *testing.T) {
	before := testutil.ToFloat64(MailSent.WithLabelValues("success"))
	RecordMailSent("success", 120*time.Millisecond)
	RecordMailSent("malformed", 0)
	if got := testutil.ToFloat64(MailSent.WithLabelValues("success")) - before; got != 1 {
		t.Errorf("delta = %v, want 1", got)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.0.0", "go1.24")
	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.0.0", "go1.24")); got != 1 {
		t.Errorf("app_info = %v, want 1", got)
	}

	UpdateUptime(time.Now().Add(-time.Minute))
	if got := testutil.ToFloat64(AppUptime); got < 59 {
		t.Errorf("uptime = %v, want >= 59", got)
	}
}

func TestConcurrentRecording(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RecordWSEventReceived("typing")
			RecordPresenceBroadcast()
			RecordFanout("newMessage", "delivered")
			RecordOTPRequest("issued")
			RecordOTPVerification("success")
			RecordChatCreated()
			RecordMessagePersisted("text")
			RecordStoreGC("noop")
			RecordRateLimitHit("/api/v1/message")
			RecordNATSConsume("send_otp")
			RecordWSSlowClientEvicted()
		}()
	}
	wg.Wait()
}
