// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

/*
Package main is the entry point for the RelayChat server.

RelayChat tracks which users are online, which conversation each connection
is viewing and who is typing, and delivers new messages and read receipts to
connected clients over WebSocket. Conversations and users are persisted in
BadgerDB; login codes are mailed through a message bus consumer.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("relaychat")
	├── DataSupervisor ("data-layer")
	│   ├── store-gc (BadgerDB value log GC)
	│   └── uptime (metrics gauge)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── message-bus (NATS JetStream or in-process gochannel)
	│   ├── realtime-hub (presence, rooms, typing, fan-out)
	│   └── mail-worker (send_otp consumer)
	└── APISupervisor ("api-layer")
	    └── http-server (Chi router, REST + WebSocket)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, optional YAML file and environment
 2. Logging: zerolog with JSON/console output modes
 3. Store: BadgerDB (on disk or in memory)
 4. Message bus: Watermill over NATS JetStream (embedded or external) or gochannel
 5. Authentication: JWT (HS256)
 6. Realtime hub, identity service, chat service and mail worker
 7. Supervisor tree and HTTP server

# Configuration

Priority: environment variables > config file > defaults.

	# Server
	PORT=5002
	SHUTDOWN_TIMEOUT=10s
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Authentication
	JWT_SECRET=<32+ chars>
	TOKEN_TTL=168h
	CORS_ORIGINS=*
	DISABLE_RATE_LIMIT=false

	# Storage
	DB_PATH=/data/relaychat
	DB_IN_MEMORY=false

	# Message bus (gochannel when disabled)
	NATS_ENABLED=false
	NATS_EMBEDDED=true
	NATS_URL=nats://127.0.0.1:4222
	NATS_STORE_DIR=/data/nats/jetstream

	# Login codes
	OTP_TTL=5m
	OTP_MAX_ATTEMPTS=5
	MAIL_ENABLED=true
	SMTP_HOST=smtp.gmail.com
	SMTP_PORT=587
	SMTP_USER=<user>
	SMTP_PASSWORD=<password>

	# Optional remote user directory for chat participant lookup
	USER_SERVICE_URL=

# Graceful Shutdown

SIGINT or SIGTERM cancels the root context. The supervisor stops the HTTP
server, then the mail worker, the hub (closing every WebSocket connection)
and finally the bus. The store is closed after the tree has stopped.
*/
package main
