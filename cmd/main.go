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

	"github.com/gin-gonic/gin"

	"volunteer-service/internal/api"
	"volunteer-service/internal/auth"
	"volunteer-service/internal/config"
	"volunteer-service/internal/db"
	"volunteer-service/internal/db/memstore"
	"volunteer-service/internal/kafka"
	"volunteer-service/internal/logging"
	"volunteer-service/internal/notification"
	"volunteer-service/internal/services"
	"volunteer-service/internal/utils"
)

// store is everything the services and the hub read and write.
type store interface {
	services.ApplicationStore
	services.ReviewStore
	services.EventLookup
	services.OrgLookup
	services.UserLookup
	notification.Store
}

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	var st store
	switch cfg.DB.Driver {
	case "memory":
		logger.Warn("Using in-memory storage; data is lost on restart")
		st = memstore.New()
	default:
		dbConn, err := db.New(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Fatalf("Database connection failed: %v", err)
		}
		defer dbConn.Close()

		if err := utils.Retry(ctx, logger, "database ping", 5, 2*time.Second, dbConn.Ping); err != nil {
			logger.Fatalf("Database unreachable: %v", err)
		}
		if err := dbConn.RunMigrations(ctx); err != nil {
			logger.Fatalf("Migrations failed: %v", err)
		}
		st = dbConn
	}

	// Notifications
	registry := notification.NewRegistry(cfg.Notification.MaxConnections, logger)
	hub := notification.NewHub(st, registry, logger)

	var wg sync.WaitGroup
	if cfg.RelayEnabled() {
		kcfg := kafka.Config{Broker: cfg.Kafka.Broker, Topic: cfg.Kafka.Topic, GroupID: cfg.Kafka.GroupID}
		producer := kafka.NewProducer(kcfg)
		defer producer.Close()
		consumer := kafka.NewConsumer(kcfg, hub, logger)
		defer consumer.Close()

		hub.SetRelay(producer)
		consumer.Start(ctx, &wg)
		logger.Infof("Kafka relay enabled with topic: %s", cfg.Kafka.Topic)
	}

	// Services
	snapshots := services.NewSnapshotProjector(st)
	apps := services.NewApplicationManager(st, st, st, st, snapshots, hub, logger)
	reviews := services.NewReviewEngine(st, st, st, st, st, logger)

	// API
	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(apps, reviews, hub, logger, cfg)
	router := api.NewRouter(handler, auth.NewVerifier(cfg.Auth.JWTSecret), logger)
	srv := &http.Server{
		Addr:              cfg.API.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API shutdown failed: %v", err)
	}
	wg.Wait()
	logger.Info("Service stopped")
}
