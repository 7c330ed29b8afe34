package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"peerprep/backend/internal/api/handler"
	"peerprep/backend/internal/config"
	"peerprep/backend/internal/matchhub"
	"peerprep/backend/internal/matching"
	"peerprep/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	if cfg.RedisAddr == "" {
		log.Println("WARNING: REDIS_ADDR is empty, running without Redis")
		return db, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("WARNING: Failed to connect Redis at %s, running without it: %v", cfg.RedisAddr, err)
		_ = rdb.Close()
		return db, nil
	}

	log.Println("Database and Redis connections established.")
	return db, rdb
}

func main() {
	log.Println("Starting matching service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, rdb := setupDependencies(&cfg)
	store := storage.NewStorageService(db, rdb)
	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var publisher matchhub.Publisher
	if rdb != nil {
		publisher = store
	}
	hub := matchhub.NewHub(nil, publisher)
	hub.CancelOnDisconnect = cfg.CancelOnDisconnect

	opts := matching.OptionsFromConfig(&cfg)
	opts.Recorder = storage.NewEventRecorder(store)
	opts.Notifier = hub
	coordinator := matching.New(opts)
	hub.Commands = coordinator

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The hub and the journal outlive the signal so shutdown events still reach sockets.
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go coordinator.Run(runCtx)
	go hub.Run(runCtx)

	r := gin.Default()
	h := handler.NewHandler(coordinator, hub, store)
	h.JWTSecret = []byte(cfg.JWTSecret)
	h.AllowedOrigins = cfg.CORSOrigins
	h.RegisterRoutes(r)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	// No WriteTimeout: long-poll holds run up to config.MaxConnectHold.
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Printf("INFO: Listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Resolve matching first so held requests answer before the server closes.
	if err := coordinator.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARNING: matching shutdown: %v", err)
	}
	stopRun()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARNING: HTTP shutdown: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Println("INFO: Stopped")
}
