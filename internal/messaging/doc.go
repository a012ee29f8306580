// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

/*
Package messaging provides the asynchronous work queue between the identity
service and the mail worker.

Two backends share the watermill message.Publisher / message.Subscriber
interfaces:

  - NATS JetStream (watermill-nats), optionally against an embedded
    nats-server for single-node deployments
  - an in-process watermill gochannel when NATS is disabled

Publishing goes through a circuit breaker so a broker outage fails login
requests fast instead of hanging them.

Consumers acknowledge on success, negatively acknowledge on failure so the
broker redelivers, and acknowledge malformed payloads after logging them
because a retry can never succeed.
*/
package messaging
