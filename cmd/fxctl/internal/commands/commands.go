// Package commands holds the operator CLI: schema migration and instrument seeding.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/shubham-shewale/fx-platform/pkg/config"
	"github.com/shubham-shewale/fx-platform/pkg/models"
	"github.com/shubham-shewale/fx-platform/pkg/storage"
)

// DefaultInstruments is seeded when no file is given.
var DefaultInstruments = []models.Instrument{
	{Symbol: "EUR/USD", Name: "Euro / Dólar Estadounidense", BaseCurrency: "EUR", QuoteCurrency: "USD"},
	{Symbol: "ARG/USD", Name: "Peso Argentino / Dólar Estadounidense", BaseCurrency: "ARG", QuoteCurrency: "USD"},
	{Symbol: "ARG/EUR", Name: "Peso Argentino / Euro", BaseCurrency: "ARG", QuoteCurrency: "EUR"},
}

type seedFile struct {
	Instruments []seedInstrument `yaml:"instruments" validate:"required,min=1,dive"`
}

type seedInstrument struct {
	Symbol        string `yaml:"symbol" validate:"required,max=20"`
	Name          string `yaml:"name" validate:"required,max=100"`
	BaseCurrency  string `yaml:"base_currency" validate:"required,len=3,alpha"`
	QuoteCurrency string `yaml:"quote_currency" validate:"required,len=3,alpha"`
}

// New builds the root command. db holds the connection defaults the
// --driver and --dsn flags start from.
func New(db config.DatabaseConfig, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "fxctl",
		Usage: "Operate the FX platform database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "driver",
				Usage: "Database driver (duckdb or mysql)",
				Value: db.Driver,
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "Database DSN",
				Value: db.DSN,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the schema if it does not exist",
				Action: withDB(logger, migrateAction),
			},
			{
				Name:  "seed",
				Usage: "Migrate, then insert or refresh instruments",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "YAML file with an `instruments` list; defaults to the built-in pairs",
					},
				},
				Action: withDB(logger, seedAction),
			},
		},
	}
}

type dbAction func(ctx context.Context, cmd *cli.Command, db *storage.DB, logger *zap.Logger) error

func withDB(logger *zap.Logger, action dbAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		db, err := storage.Open(ctx, config.DatabaseConfig{
			Driver: cmd.String("driver"),
			DSN:    cmd.String("dsn"),
		})
		if err != nil {
			return err
		}
		defer db.Close()
		return action(ctx, cmd, db, logger)
	}
}

func migrateAction(ctx context.Context, cmd *cli.Command, db *storage.DB, logger *zap.Logger) error {
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("Migrations completed", zap.String("driver", cmd.String("driver")))
	return nil
}

func seedAction(ctx context.Context, cmd *cli.Command, db *storage.DB, logger *zap.Logger) error {
	instruments := DefaultInstruments
	if path := cmd.String("file"); path != "" {
		var err error
		if instruments, err = LoadSeed(path); err != nil {
			return err
		}
	}

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	for _, inst := range instruments {
		stored, err := db.Instruments().Upsert(ctx, inst)
		if err != nil {
			return err
		}
		logger.Info("Instrument seeded", zap.String("symbol", stored.Symbol), zap.Int64("id", stored.ID))
	}
	logger.Info("Seed completed", zap.Int("instruments", len(instruments)))
	return nil
}

// LoadSeed reads and validates a seed file.
func LoadSeed(path string) ([]models.Instrument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}

	out := make([]models.Instrument, 0, len(f.Instruments))
	for _, s := range f.Instruments {
		out = append(out, models.Instrument{
			Symbol:        s.Symbol,
			Name:          s.Name,
			BaseCurrency:  s.BaseCurrency,
			QuoteCurrency: s.QuoteCurrency,
		})
	}
	return out, nil
}
