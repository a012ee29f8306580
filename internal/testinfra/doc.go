// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

// Package testinfra provides container helpers for integration tests.
//
// Tests in this package are built only with the integration tag:
//
//	go test -tags integration ./internal/testinfra/...
//
// # NATS Container
//
// NATSContainer runs a standalone JetStream-enabled NATS server so the
// message bus can be exercised against an external broker instead of the
// embedded one:
//
//	nats, err := testinfra.NewNATSContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, nats.Container)
//
//	bus, err := messaging.Open(&config.NATSConfig{
//	    Enabled: true,
//	    URL:     nats.URL,
//	    // ...
//	})
//
// Tests skip when Docker is unavailable. The first run pulls the image.
package testinfra
