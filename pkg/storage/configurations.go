package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"

	"github.com/shubham-shewale/fx-platform/pkg/models"
)

var configurationColumns = []string{
	"id", "user_id", "instrument_id", "target_price", "operation_type", "is_active", "created_at", "updated_at",
}

type ConfigurationStore struct {
	db *DB
}

// Save creates or updates the row for (UserID, InstrumentID) and returns it as stored.
// The lookup-then-write sequence is backed by the table's unique key: when a
// concurrent writer inserts the same pair first, our insert fails and the
// second pass turns into an update of their row.
func (s *ConfigurationStore) Save(ctx context.Context, cfg models.UserConfiguration) (models.UserConfiguration, error) {
	for attempt := 0; ; attempt++ {
		existing, err := s.findPair(ctx, cfg.UserID, cfg.InstrumentID)
		switch {
		case err == nil:
			if err := s.update(ctx, existing.ID, cfg); err != nil {
				return models.UserConfiguration{}, err
			}
			return s.FindByID(ctx, existing.ID)
		case !errors.Is(err, ErrNotFound):
			return models.UserConfiguration{}, err
		}

		id, err := s.db.insert(ctx, "user_configurations",
			[]string{"user_id", "instrument_id", "target_price", "operation_type", "is_active", "created_at"},
			[]interface{}{cfg.UserID, cfg.InstrumentID, targetValue(cfg.TargetPrice), string(cfg.OperationType), true, s.db.now()})
		if err == nil {
			return s.FindByID(ctx, id)
		}
		if attempt > 0 {
			return models.UserConfiguration{}, fmt.Errorf("failed to insert configuration: %w", err)
		}
	}
}

// ActiveWithTarget returns every active configuration that has a target price.
func (s *ConfigurationStore) ActiveWithTarget(ctx context.Context) ([]models.UserConfiguration, error) {
	return s.list(ctx, squirrel.And{
		squirrel.Eq{"is_active": true},
		squirrel.NotEq{"target_price": nil},
	})
}

// ListByUser returns the user's active configurations.
func (s *ConfigurationStore) ListByUser(ctx context.Context, userID int64) ([]models.UserConfiguration, error) {
	return s.list(ctx, squirrel.Eq{"user_id": userID, "is_active": true})
}

func (s *ConfigurationStore) FindByID(ctx context.Context, id int64) (models.UserConfiguration, error) {
	return s.findOne(ctx, squirrel.Eq{"id": id})
}

// Deactivate soft-deletes the user's configuration for the instrument.
func (s *ConfigurationStore) Deactivate(ctx context.Context, userID, instrumentID int64) error {
	existing, err := s.findPair(ctx, userID, instrumentID)
	if err != nil {
		return err
	}
	if !existing.IsActive {
		return ErrNotFound
	}
	return s.db.exec(ctx, s.db.sq.Update("user_configurations").
		Set("is_active", false).
		Set("updated_at", s.db.now()).
		Where(squirrel.Eq{"id": existing.ID}))
}

// findPair ignores is_active: a soft-deleted row still owns the pair.
func (s *ConfigurationStore) findPair(ctx context.Context, userID, instrumentID int64) (models.UserConfiguration, error) {
	return s.findOne(ctx, squirrel.Eq{"user_id": userID, "instrument_id": instrumentID})
}

func (s *ConfigurationStore) update(ctx context.Context, id int64, cfg models.UserConfiguration) error {
	err := s.db.exec(ctx, s.db.sq.Update("user_configurations").
		Set("target_price", targetValue(cfg.TargetPrice)).
		Set("operation_type", string(cfg.OperationType)).
		Set("is_active", true).
		Set("updated_at", s.db.now()).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to update configuration %d: %w", id, err)
	}
	return nil
}

func (s *ConfigurationStore) list(ctx context.Context, where squirrel.Sqlizer) ([]models.UserConfiguration, error) {
	rows, err := s.db.query(ctx, s.db.sq.
		Select(configurationColumns...).
		From("user_configurations").
		Where(where).
		OrderBy("user_id", "instrument_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to query configurations: %w", err)
	}
	defer rows.Close()

	var out []models.UserConfiguration
	for rows.Next() {
		c, err := scanConfiguration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan configuration: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ConfigurationStore) findOne(ctx context.Context, where squirrel.Sqlizer) (models.UserConfiguration, error) {
	row, err := s.db.queryRow(ctx, s.db.sq.Select(configurationColumns...).From("user_configurations").Where(where))
	if err != nil {
		return models.UserConfiguration{}, err
	}
	c, err := scanConfiguration(row)
	if err != nil {
		return models.UserConfiguration{}, notFound(err)
	}
	return c, nil
}

func scanConfiguration(r rowScanner) (models.UserConfiguration, error) {
	var (
		c       models.UserConfiguration
		target  sql.NullFloat64
		op      string
		updated sql.NullTime
	)
	if err := r.Scan(&c.ID, &c.UserID, &c.InstrumentID, &target, &op, &c.IsActive, &c.CreatedAt, &updated); err != nil {
		return c, err
	}

	c.OperationType = models.OperationType(op)
	c.TargetPrice = optional.None[float64]()
	if target.Valid {
		c.TargetPrice = optional.Some(target.Float64)
	}
	c.UpdatedAt = optional.None[time.Time]()
	if updated.Valid {
		c.UpdatedAt = optional.Some(updated.Time)
	}
	return c, nil
}

func targetValue(o optional.Option[float64]) interface{} {
	if o.IsSome() {
		return o.Unwrap()
	}
	return nil
}
