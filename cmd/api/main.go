package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shubham-shewale/fx-platform/cmd/api/internal/api"
	"github.com/shubham-shewale/fx-platform/pkg/config"
	"github.com/shubham-shewale/fx-platform/pkg/configuration"
	"github.com/shubham-shewale/fx-platform/pkg/notify"
	"github.com/shubham-shewale/fx-platform/pkg/ratelimit"
	"github.com/shubham-shewale/fx-platform/pkg/storage"
)

func main() {
	// 1. Config & Logger
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()
	logger = logger.Named("api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage & services
	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	handler := api.NewHandler(
		db.Instruments(),
		configuration.NewService(db.Instruments(), db.Configurations(), logger.Named("configuration")),
		notify.NewService(db.Notifications(), logger.Named("notify")),
		cfg.API.UserHeader,
		logger.Named("http"),
	)

	// 3. HTTP
	router := handler.Router()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods("GET")

	if cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		router.Use(ratelimit.New(rdb, "api", cfg.RateLimit.Connections, cfg.RateLimit.Window, logger.Named("ratelimit")).Middleware)
	}

	srv := &http.Server{Addr: cfg.API.Port, Handler: router}

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.API.Port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	// 4. Shutdown
	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	logger.Info("Shutdown Complete")
}
