package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/fx-platform/cmd/pricegen/internal/generator"
	"github.com/shubham-shewale/fx-platform/pkg/config"
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
	logger = logger.Named("pricegen")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Instruments
	instruments := generator.DefaultInstruments
	if cfg.Generator.InstrumentsFile != "" {
		instruments, err = generator.LoadInstruments(cfg.Generator.InstrumentsFile)
		if err != nil {
			logger.Fatal("Failed to load instruments", zap.Error(err))
		}
	}
	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.Symbol)
	}

	rnd := generator.RealRand{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
	gen := generator.New(instruments, rnd, generator.RealClock{})

	// 3. HTTP
	srv := &http.Server{Addr: cfg.Generator.Port, Handler: generator.Router(gen, logger)}

	go func() {
		logger.Info("Generator Started", zap.String("port", cfg.Generator.Port), zap.Strings("instruments", symbols))
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
