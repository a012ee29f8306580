// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

/*
Package services provides suture.Service wrappers for RelayChat components.

Each wrapper translates a component's lifecycle (RunWithContext, Run,
ListenAndServe, Close, periodic tasks) into suture's context-aware Serve
pattern and names itself through fmt.Stringer for supervisor logs.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Configurable shutdown timeout for draining connections

Realtime Hub (HubService):
  - Delegates to realtime.Hub.RunWithContext
  - A restarted hub begins with no connections; clients reconnect

Consumers (ConsumerService):
  - Wraps a message consumer such as the OTP mail worker
  - A closed subscription is reported as a failure so suture resubscribes

Message Bus (BusService):
  - Watches bus health and closes publisher, subscriber and embedded
    NATS server on shutdown

Periodic tasks (PeriodicService, NewStoreGCService, NewUptimeService):
  - Runs a task on a ticker; task errors are logged, never fatal

# Usage Example

	tree, _ := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewStoreGCService(st, cfg.Database.GCInterval))
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddMessagingService(services.NewConsumerService(mailWorker))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	_ = tree.Serve(ctx)
*/
package services
