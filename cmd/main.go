package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"noshow-service/internal/alert"
	"noshow-service/internal/api"
	"noshow-service/internal/config"
	"noshow-service/internal/db"
	"noshow-service/internal/kafka"
	"noshow-service/internal/logging"
	"noshow-service/internal/notification"
	"noshow-service/internal/providers"
	"noshow-service/internal/resolution"
	"noshow-service/internal/services"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer logger.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Connect to DB
	dbConn, err := db.New(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Errorf("DB connect failed: %v", err)
		log.Fatalf("DB connect failed: %v", err)
	}
	defer dbConn.Close()
	if err := dbConn.EnsureSchema(ctx); err != nil {
		logger.Errorf("Schema check failed: %v", err)
		log.Fatalf("Schema check failed: %v", err)
	}

	// Live push and notifications
	hub := notification.NewHub(logger)
	var notifyProviders []notification.Provider
	if cfg.Telegram.BotToken != "" {
		tg, err := providers.NewTelegram(cfg, logger)
		if err != nil {
			log.Fatalf("Telegram provider init failed: %v", err)
		}
		notifyProviders = append(notifyProviders, tg)
	} else {
		logger.Warnf("TELEGRAM_BOT_TOKEN not set, staff chat escalation disabled")
	}
	notifier := notification.New(logger, cfg, hub, notifyProviders...)
	var wg sync.WaitGroup
	notifier.Start(&wg)

	// Resolution path
	producer := kafka.NewProducer(cfg)
	resolver := resolution.New(dbConn, producer, logger, nil)

	board := alert.NewBoard(resolver, notifier, hub, logger, alert.Options{
		TickInterval: cfg.Alerts.TickInterval,
		UrgentWindow: cfg.Alerts.UrgentWindow,
	})
	alerts := services.NewAlertService(dbConn, board, logger)
	if _, err := alerts.Restore(ctx); err != nil {
		logger.Errorf("Restore failed: %v", err)
	}

	// Start Kafka consumer
	consumer := kafka.NewConsumer(cfg, alerts, logger)
	consumer.Start(ctx, &wg)

	// Start API server
	h := api.NewHandler(board, alerts, logger)
	rt := api.NewRealtimeHandler(hub, board, logger)
	srv := &http.Server{
		Addr:              cfg.API.Port,
		Handler:           api.NewRouter(logger, cfg, h, rt),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("API started on %s", cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API run failed: %v", err)
			cancel()
		}
	}()

	// Handle graceful shutdown
	<-ctx.Done()
	logger.Infof("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API shutdown failed: %v", err)
	}
	hub.Close()
	board.Close()
	if err := consumer.Close(); err != nil {
		logger.Errorf("Kafka consumer close failed: %v", err)
	}
	notifier.Stop()
	wg.Wait()
	if err := producer.Close(); err != nil {
		logger.Errorf("Kafka producer close failed: %v", err)
	}
	logger.Infof("Service stopped")
}
