package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dealdesk/dealdesk/internal/auth"
	"github.com/dealdesk/dealdesk/internal/config"
	"github.com/dealdesk/dealdesk/internal/httpapi"
	"github.com/dealdesk/dealdesk/internal/logging"
	"github.com/dealdesk/dealdesk/internal/storage"
	"github.com/dealdesk/dealdesk/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file, e.g. ./config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("load config: %v", err)
	}

	logger := logging.New(logging.Options{
		Level: cfg.Logger.Level,
		JSON:  cfg.Logger.JSON,
	})

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration: %v", err)
		os.Exit(1)
	}

	if !cfg.RetentionCoversRefresh() {
		// A revoked token outliving its denylist entry decodes successfully
		// again once the entry is purged.
		logger.Warn("denylist retention (%s) is shorter than refresh token lifetime (%s); revocation does not cover the full token validity window",
			cfg.Auth.DenylistRetention, cfg.Auth.RefreshTTL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.Connect(ctx, cfg.Mongo)
	if err != nil {
		logger.Error("mongo: %v", err)
		os.Exit(1)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(disconnectCtx); err != nil {
			logger.Warn("mongo disconnect: %v", err)
		}
	}()

	if err := store.EnsureIndexes(ctx, db, cfg.Auth.DenylistRetention); err != nil {
		logger.Error("mongo indexes: %v", err)
		os.Exit(1)
	}

	files, err := storage.NewS3(ctx, cfg.Storage)
	if err != nil {
		logger.Error("storage: %v", err)
		os.Exit(1)
	}

	codec := auth.NewCodec(logger)
	denylist := store.NewDenylist(db)
	authService := auth.NewService(store.NewUsers(db), denylist, codec, cfg.Auth, logger)

	server := httpapi.New(httpapi.Deps{
		Config:      cfg,
		Logger:      logger,
		Auth:        authService,
		Codec:       codec,
		Denylist:    denylist,
		Files:       files,
		Offers:      store.NewOffers(db),
		Invitations: store.NewInvitations(db),
		Protocols:   store.NewProtocols(db),
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("shutting down")
		if err := server.Shutdown(10 * time.Second); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}()

	if err := server.Listen(); err != nil {
		logger.Error("server: %v", err)
		os.Exit(1)
	}
}

func fatal(format string, args ...any) {
	logging.New(logging.Options{}).Error(format, args...)
	os.Exit(1)
}
