package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eliseohh/zipperbot/internal/bot"
	"github.com/eliseohh/zipperbot/internal/config"
	"github.com/eliseohh/zipperbot/internal/ledger"
	"github.com/eliseohh/zipperbot/internal/logging"
	"github.com/eliseohh/zipperbot/internal/session"
	"github.com/eliseohh/zipperbot/internal/staging"
	"github.com/eliseohh/zipperbot/internal/transfer"
	"github.com/sirupsen/logrus"
)

const (
	sweepInterval = time.Minute
	shutdownGrace = 2 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("Logger init failed: %v", err)
	}
	log.WithField("authorized", cfg.Authorized.Len()).Info("Zipper Bot starting")

	// 1. Ledger
	db, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("Fatal: %v", err)
	}
	defer db.Close()

	// 2. Staging root, cleared of anything left by a previous run
	stage := staging.New(cfg.StagingDir)
	if n, err := stage.Purge(); err != nil {
		log.WithError(err).Warn("could not clear staging root")
	} else if n > 0 {
		log.WithField("dirs", n).Info("removed stale staging directories")
	}

	// 3. Bot API and bulk transfer
	api, err := bot.NewAPI(bot.Config{Token: cfg.Token})
	if err != nil {
		log.Fatalf("Bot init failed: %v", err)
	}

	var tr transfer.Client
	if cfg.UseMTProto() {
		mt := transfer.NewMTProto(transfer.MTProtoConfig{
			AppID:       cfg.AppID,
			AppHash:     cfg.AppHash,
			BotToken:    cfg.Token,
			SessionFile: cfg.SessionFile,
		}, log)
		defer mt.Close()
		tr = mt
	} else {
		log.Warn("API_ID/API_HASH not set, delivering through the Bot API")
		tr = transfer.NewBotAPI(api)
	}

	// 4. Workflow
	manager := bot.NewManager(bot.ManagerConfig{
		Auth:        cfg.Authorized,
		ArchiveName: cfg.ArchiveName,
		MaxPartSize: cfg.MaxPartSize,
		SessionTTL:  cfg.SessionTTL,
	}, session.NewStore(), stage, bot.NewGateway(api), tr, db, log)

	b := bot.New(api, manager, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Sweep loop
	swept := make(chan struct{})
	go func() {
		defer close(swept)
		sweep(ctx, manager, db, cfg.Retention, log)
	}()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		log.Info("shutting down")
		b.Stop(shutdownGrace)
	}()

	b.Start()

	// Start returns as soon as polling ends; the ledger and the transfer
	// client stay open until queued work is done.
	<-stopped
	<-swept
	log.Info("bye")
}

func sweep(ctx context.Context, m *bot.Manager, db *ledger.DB, retention time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n := m.Expire(ctx); n > 0 {
			log.WithField("sessions", n).Info("expired idle sessions")
		}
		if retention > 0 {
			if n, err := db.Prune(ctx, time.Now().Add(-retention)); err != nil {
				log.WithError(err).Warn("ledger prune failed")
			} else if n > 0 {
				log.WithField("rows", n).Info("pruned ledger")
			}
		}
	}
}
