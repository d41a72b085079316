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
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/fx-platform/cmd/streamer/internal/alerts"
	"github.com/shubham-shewale/fx-platform/cmd/streamer/internal/pricesource"
	"github.com/shubham-shewale/fx-platform/cmd/streamer/internal/streamer"
	"github.com/shubham-shewale/fx-platform/pkg/config"
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
	logger = logger.Named("streamer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	// 3. Loop
	wsHub := hub.NewHub(logger.Named("hub"))
	deps := streamer.Deps{
		Source:        pricesource.New(cfg.Streamer.PriceSourceURL, cfg.Streamer.FetchTimeout),
		Instruments:   db.Instruments(),
		Configs:       db.Configurations(),
		Notifications: notify.NewService(db.Notifications(), logger.Named("notify")),
		Hub:           wsHub,
	}

	if cfg.Kafka.Enabled {
		tc := alerts.NewTopicCreator(logger.Named("kafka"), &alerts.RealKafkaDialer{Dialer: kafka.DefaultDialer}, alerts.RealClock{})
		tc.Create(ctx, cfg.Kafka.Brokers, cfg.Kafka.AlertsTopic)

		publisher := alerts.NewPublisher(alerts.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.AlertsTopic), logger.Named("kafka"))
		defer func() {
			// Flush the async writer buffer
			if err := publisher.Close(); err != nil {
				logger.Error("Error closing Kafka writer", zap.Error(err))
			}
		}()
		deps.Publisher = publisher
	}

	loop := streamer.NewLoop(deps, streamer.Options{
		InitialDelay: cfg.Streamer.InitialDelay,
		Interval:     cfg.Streamer.Interval,
		FetchTimeout: cfg.Streamer.FetchTimeout,
	}, logger.Named("prices"))

	// 4. HTTP
	var wsHandler http.Handler = loop.ServeWS(wsconn.DefaultOptions())
	if cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		wsHandler = ratelimit.New(rdb, "prices", cfg.RateLimit.Connections, cfg.RateLimit.Window, logger.Named("ratelimit")).Middleware(wsHandler)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "connections": wsHub.Len()})
	})
	mux.Handle("/", wsHandler)

	srv := &http.Server{Addr: cfg.Streamer.Port, Handler: mux}

	go loop.Run(ctx)
	go func() {
		logger.Info("Server Started", zap.String("port", cfg.Streamer.Port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	// 5. Shutdown
	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	wsHub.CloseAll()
	logger.Info("Shutdown Complete")
}
