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

	"github.com/shubham-shewale/fx-platform/cmd/configsvc/internal/ingest"
	"github.com/shubham-shewale/fx-platform/pkg/config"
	"github.com/shubham-shewale/fx-platform/pkg/configuration"
	"github.com/shubham-shewale/fx-platform/pkg/hub"
	"github.com/shubham-shewale/fx-platform/pkg/notify"
	"github.com/shubham-shewale/fx-platform/pkg/ratelimit"
	"github.com/shubham-shewale/fx-platform/pkg/storage"
	"github.com/shubham-shewale/fx-platform/pkg/wsconn"
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
	logger = logger.Named("configsvc")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage & services
	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	configs := configuration.NewService(db.Instruments(), db.Configurations(), logger.Named("configuration"))
	notifications := notify.NewService(db.Notifications(), logger.Named("notify"))

	wsHub := hub.NewHub(logger.Named("hub"))
	server := ingest.NewServer(configs, notifications, wsHub, ingest.Options{
		MessagesPerSecond: cfg.Ingest.MessagesPerSecond,
		Burst:             cfg.Ingest.Burst,
	}, logger.Named("websocket"))

	// 3. HTTP
	var wsHandler http.Handler = server.ServeWS(ctx, wsconn.DefaultOptions())
	if cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		wsHandler = ratelimit.New(rdb, "configurations", cfg.RateLimit.Connections, cfg.RateLimit.Window, logger.Named("ratelimit")).Middleware(wsHandler)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "connections": wsHub.Len()})
	})
	mux.Handle("/", wsHandler)

	srv := &http.Server{Addr: cfg.Ingest.Port, Handler: mux}

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.Ingest.Port))
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
	wsHub.CloseAll()
	logger.Info("Shutdown Complete")
}
