package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/shubham-shewale/fx-platform/cmd/fxctl/internal/commands"
	"github.com/shubham-shewale/fx-platform/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	if err := commands.New(cfg.Database, logger.Named("fxctl")).Run(context.Background(), os.Args); err != nil {
		logger.Fatal("Command failed", zap.Error(err))
	}
}
