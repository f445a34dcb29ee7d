package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"NetSentryAPI/internal/auth"
	"NetSentryAPI/internal/config"
	"NetSentryAPI/internal/database"
	"NetSentryAPI/internal/events"
	"NetSentryAPI/internal/handler"
	"NetSentryAPI/internal/ingest"
	"NetSentryAPI/internal/mqtt"
	"NetSentryAPI/internal/repository"
	"NetSentryAPI/internal/server"
	"NetSentryAPI/internal/service"
	"NetSentryAPI/internal/websocket"
	"NetSentryAPI/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("configuration validation failed", zap.Error(err))
	}

	log.Info("starting NetSentry API server",
		zap.String("environment", cfg.Server.Environment))

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Health(ctx); err != nil {
		log.Fatal("database health check failed", zap.Error(err))
	}
	log.Info("database connected")

	alertRepo := repository.NewAlertRepository(db.DB)

	// Realtime plumbing: hub for per-user channels, bounded pool and
	// publisher for the async boundary between correlator and fanout.
	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	pool := worker.NewPool(cfg.Alerting.PoolWorkers, cfg.Alerting.PoolQueueSize, log)
	publisher := events.NewPublisher(cfg.Alerting.EventBufferSize, log)

	correlator := service.NewAlertCorrelator(alertRepo, publisher, cfg.Alerting.SuppressionWindow, log)
	fanout := service.NewNotificationFanout(publisher.Events(), pool, hub, alertRepo, log)
	go fanout.Run()

	gate := auth.NewGate(cfg.Security.JWTSecret)

	mqttClient, err := mqtt.NewClient(&cfg.MQTT, log)
	if err != nil {
		log.Fatal("failed to create mqtt client", zap.Error(err))
	}
	if err := mqttClient.Connect(); err != nil {
		log.Fatal("failed to connect to mqtt broker", zap.Error(err))
	}
	defer mqttClient.Disconnect()

	monitor := ingest.NewMonitor(correlator, fanout, log)
	if err := monitor.Start(mqttClient, cfg.MQTT.DeviceStatusTopic, cfg.MQTT.TrapTopic); err != nil {
		log.Fatal("failed to start monitor ingestion", zap.Error(err))
	}
	log.Info("monitor subscriptions active")

	alertHandler := handler.NewAlertHandler(correlator, log)
	healthHandler := handler.NewHealthHandler(db, mqttClient, hub, log)

	srv := server.New(cfg, log)
	srv.RegisterHandlers(gate, hub, alertHandler, healthHandler)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	log.Info("api server ready",
		zap.String("host", cfg.Server.Host), zap.Int("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	// Stop producers first, then drain the async delivery path.
	cancel()
	publisher.Close()
	pool.Shutdown(cfg.Alerting.PoolShutdownTimeout)

	log.Info("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
