package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/shubham-shewale/fx-platform/pkg/models"
)

var instrumentColumns = []string{"id", "symbol", "name", "base_currency", "quote_currency", "is_active", "created_at"}

type InstrumentStore struct {
	db *DB
}

// ListActive returns the active instruments ordered by symbol.
func (s *InstrumentStore) ListActive(ctx context.Context) ([]models.Instrument, error) {
	rows, err := s.db.query(ctx, s.db.sq.
		Select(instrumentColumns...).
		From("instruments").
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("symbol"))
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	var out []models.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// SymbolIndex maps the symbol of every active instrument to its id.
func (s *InstrumentStore) SymbolIndex(ctx context.Context) (map[string]int64, error) {
	list, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int64, len(list))
	for _, inst := range list {
		index[inst.Symbol] = inst.ID
	}
	return index, nil
}

func (s *InstrumentStore) FindByID(ctx context.Context, id int64) (models.Instrument, error) {
	return s.findOne(ctx, squirrel.Eq{"id": id})
}

func (s *InstrumentStore) FindBySymbol(ctx context.Context, symbol string) (models.Instrument, error) {
	return s.findOne(ctx, squirrel.Eq{"symbol": symbol})
}

// Upsert inserts the instrument or refreshes the descriptive fields of the
// row with the same symbol. The stored row is returned.
func (s *InstrumentStore) Upsert(ctx context.Context, inst models.Instrument) (models.Instrument, error) {
	existing, err := s.FindBySymbol(ctx, inst.Symbol)
	switch {
	case err == nil:
		err = s.db.exec(ctx, s.db.sq.Update("instruments").
			Set("name", inst.Name).
			Set("base_currency", inst.BaseCurrency).
			Set("quote_currency", inst.QuoteCurrency).
			Set("is_active", true).
			Where(squirrel.Eq{"id": existing.ID}))
		if err != nil {
			return models.Instrument{}, fmt.Errorf("failed to update instrument %s: %w", inst.Symbol, err)
		}
		return s.FindByID(ctx, existing.ID)
	case !errors.Is(err, ErrNotFound):
		return models.Instrument{}, err
	}

	id, err := s.db.insert(ctx, "instruments",
		[]string{"symbol", "name", "base_currency", "quote_currency", "is_active", "created_at"},
		[]interface{}{inst.Symbol, inst.Name, inst.BaseCurrency, inst.QuoteCurrency, true, s.db.now()})
	if err != nil {
		return models.Instrument{}, fmt.Errorf("failed to insert instrument %s: %w", inst.Symbol, err)
	}
	return s.FindByID(ctx, id)
}

func (s *InstrumentStore) findOne(ctx context.Context, where squirrel.Sqlizer) (models.Instrument, error) {
	row, err := s.db.queryRow(ctx, s.db.sq.Select(instrumentColumns...).From("instruments").Where(where))
	if err != nil {
		return models.Instrument{}, err
	}
	inst, err := scanInstrument(row)
	if err != nil {
		return models.Instrument{}, notFound(err)
	}
	return inst, nil
}

func scanInstrument(r rowScanner) (models.Instrument, error) {
	var inst models.Instrument
	err := r.Scan(&inst.ID, &inst.Symbol, &inst.Name, &inst.BaseCurrency, &inst.QuoteCurrency, &inst.IsActive, &inst.CreatedAt)
	return inst, err
}
