// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/relaychat/internal/api"
	"github.com/tomtom215/relaychat/internal/auth"
	"github.com/tomtom215/relaychat/internal/chat"
	"github.com/tomtom215/relaychat/internal/config"
	"github.com/tomtom215/relaychat/internal/identity"
	"github.com/tomtom215/relaychat/internal/logging"
	"github.com/tomtom215/relaychat/internal/mail"
	"github.com/tomtom215/relaychat/internal/messaging"
	"github.com/tomtom215/relaychat/internal/metrics"
	"github.com/tomtom215/relaychat/internal/realtime"
	"github.com/tomtom215/relaychat/internal/store"
	"github.com/tomtom215/relaychat/internal/supervisor"
	"github.com/tomtom215/relaychat/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	startTime := time.Now()

	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Bool("mail_enabled", cfg.Mail.Enabled).
		Msg("Starting RelayChat with supervisor tree")
	metrics.SetAppInfo(version, runtime.Version())

	st, err := store.Open(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	// Closed last, after every service using it has stopped.
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	bus, err := messaging.Open(&cfg.NATS)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open message bus")
		return
	}
	logging.Info().Str("backend", bus.Backend()).Msg("Message bus ready")

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize JWT manager")
		return
	}
	authMiddleware := auth.NewMiddleware(jwtManager)

	hub := realtime.NewHub(realtime.OptionsFromConfig(&cfg.WebSocket))

	identitySvc := identity.NewService(st, bus.Publisher, jwtManager, cfg.OTP)
	chatSvc := chat.NewService(st, chat.NewDirectory(cfg.Chat, st), hub)
	if cfg.Chat.UserServiceURL != "" {
		logging.Info().Str("url", cfg.Chat.UserServiceURL).Msg("Resolving chat participants from remote user service")
	}

	mailWorker := mail.NewWorker(bus.Subscriber, mail.NewSender(cfg.Mail))
	if !cfg.Mail.Enabled {
		logging.Warn().Msg("SMTP disabled: OTP mails are logged instead of sent")
	}

	handler := api.NewHandler(api.Dependencies{
		Config:   cfg,
		Identity: identitySvc,
		Chats:    chatSvc,
		Hub:      hub,
		Auth:     authMiddleware,
		Bus:      bus,
		Version:  version,
	})
	chiMiddleware := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security))
	router := api.NewRouter(handler, authMiddleware, chiMiddleware)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Bridges zerolog to slog for sutureslog.
	treeConfig := supervisor.DefaultTreeConfig()
	treeConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeConfig)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return
	}

	tree.AddDataService(services.NewStoreGCService(st, cfg.Database.GCInterval))
	tree.AddDataService(services.NewUptimeService(startTime, 15*time.Second))

	// Suture stops services in reverse order, so the bus outlives its consumer.
	tree.AddMessagingService(services.NewBusService(bus, 30*time.Second, cfg.Server.ShutdownTimeout))
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddMessagingService(services.NewConsumerService(mailWorker))
	logging.Info().Msg("Message bus, realtime hub and mail worker added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		stop()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
