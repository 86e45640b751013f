package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"greenloop/internal/db"
	"greenloop/internal/dispatch"
	"greenloop/internal/pickup"
	"greenloop/internal/reminder"
	"greenloop/internal/server"
	"greenloop/internal/store"
	"greenloop/internal/support"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig()
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	pickupRepo := store.NewPickupRepository(pool)
	supportRepo := store.NewSupportRepository(pool)
	postRepo := store.NewPostRepository(pool)
	partyRepo := store.NewPartyRepository(pool)
	progressRepo := store.NewProgressRepository(pool)

	var dispatcher dispatch.Dispatcher
	if len(config.KafkaBrokers) > 0 {
		kafkaDispatcher := dispatch.NewKafkaDispatcher(config.KafkaBrokers, config.KafkaEventTopic, config.KafkaDLQTopic, logger)
		defer kafkaDispatcher.Close()
		dispatcher = kafkaDispatcher
	} else {
		logger.Warn("no kafka brokers configured, events are logged only")
		dispatcher = dispatch.NewLogDispatcher(logger)
	}

	pickupService := pickup.New(logger, pickupRepo, postRepo, partyRepo, dispatcher)
	supportService := support.New(logger, supportRepo, postRepo, partyRepo, pickupRepo, progressRepo, dispatcher)

	var jwkCache *jwk.Cache
	var jwksURL string
	if config.AuthIssuerURL != "" {
		jwkCache, err = jwk.NewCache(context.Background(), httprc.NewClient())
		if err != nil {
			return fmt.Errorf("failed to initialize jwk cache: %w", err)
		}

		jwksURL = fmt.Sprintf("%s/.well-known/jwks.json", config.AuthIssuerURL)

		if err := jwkCache.Register(context.Background(), jwksURL); err != nil {
			return fmt.Errorf("failed to register jwks url with cache: %w", err)
		}
	} else {
		logger.Warn("no auth issuer configured, trusting X-Party-ID header")
	}

	if config.ReminderEnabled {
		sweeper := reminder.New(logger, pickupRepo, dispatcher, time.Duration(config.ReminderSweepSec)*time.Second)
		go sweeper.Run(ctx)
	}

	srv := server.New(
		config,
		logger,
		pickupService,
		supportService,
		pickupRepo,
		supportRepo,
		progressRepo,
		jwkCache,
		jwksURL,
	)

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
