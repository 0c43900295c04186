package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"taskboard-api/api"
	"taskboard-api/config"
	"taskboard-api/storage"
)

func main() {
	cfg, err := config.Read()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	base := storage.New()
	if cfg.SeedFile != "" {
		seed, err := storage.ReadSeedFile(cfg.SeedFile)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		if err := base.Load(seed); err != nil {
			log.Fatalf("seed: %v", err)
		}
		logger.Infof("loaded %d boards from %s", len(seed.Boards), cfg.SeedFile)
	}

	var store api.Storage = base
	if cfg.Redis.ConnectionString != "" {
		rc := redis.NewClient(config.RedisOptions(cfg.Redis.ConnectionString))
		defer rc.Close()
		store = storage.NewCache(base, rc, cfg.Redis.CacheTTL)
		logger.Infof("redis listing cache enabled, ttl: %v", cfg.Redis.CacheTTL)
	}

	hub := api.NewHub(logger)
	sinks := []api.Sink{hub}
	if cfg.Events.QueueEnabled() {
		queue, err := storage.NewEventQueue(cfg.Events.StorageConnectionString, cfg.Events.Queue)
		if err != nil {
			log.Fatalf("event queue: %v", err)
		}
		sinks = append(sinks, queue)
	}
	outbox := api.NewOutbox(api.OutboxConfig{
		BufferSize:     cfg.Events.Buffer,
		Workers:        cfg.Events.Workers,
		HandoffTimeout: cfg.Events.HandoffTimeout,
		DeliverTimeout: cfg.Events.DeliverTimeout,
		RetryInitial:   cfg.Events.RetryInitial,
		RetryMax:       cfg.Events.RetryMax,
		MaxAttempts:    cfg.Events.MaxAttempts,
	}, logger, sinks...)
	outbox.Start()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding},
	}))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(api.GzipRequestMiddleware())
	e.Use(api.RequestMetrics(logger))

	api.Register(e, store, outbox, hub, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("server shutdown")
	}
	outbox.Shutdown()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("tracer shutdown")
	}
}
