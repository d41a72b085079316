// Package evaluator decides which target configurations fire against a price snapshot.
package evaluator

import (
	"github.com/shubham-shewale/fx-platform/pkg/models"
)

// Fires applies the target rule: buy fires at or above the target, sell at or below.
// Unknown operation types never fire.
func Fires(op models.OperationType, current, target float64) bool {
	switch op {
	case models.OperationBuy:
		return current >= target
	case models.OperationSell:
		return current <= target
	default:
		return false
	}
}

type quote struct {
	symbol string
	price  float64
}

// Evaluate returns one AlertEvent per active configuration whose target is met.
// index maps snapshot symbols to instrument ids; prices for unknown symbols are
// ignored. When a symbol repeats in the snapshot the last entry wins.
// There is no memory between calls: a target that stays met fires every time.
func Evaluate(snap models.PriceSnapshot, index map[string]int64, configs []models.UserConfiguration) []models.AlertEvent {
	quotes := make(map[int64]quote, len(snap))
	for _, p := range snap {
		id, ok := index[p.Symbol]
		if !ok {
			continue
		}
		quotes[id] = quote{symbol: p.Symbol, price: p.Price}
	}

	var events []models.AlertEvent
	for _, cfg := range configs {
		if !cfg.IsActive || cfg.TargetPrice.IsNone() {
			continue
		}
		q, ok := quotes[cfg.InstrumentID]
		if !ok {
			continue
		}
		target := cfg.TargetPrice.Unwrap()
		if !Fires(cfg.OperationType, q.price, target) {
			continue
		}
		events = append(events, models.AlertEvent{
			UserID:        cfg.UserID,
			InstrumentID:  cfg.InstrumentID,
			Symbol:        q.symbol,
			OperationType: cfg.OperationType,
			CurrentPrice:  q.price,
			TargetPrice:   target,
		})
	}
	return events
}
