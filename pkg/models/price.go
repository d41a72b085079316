package models

import "time"

// Price is one instrument quote inside a snapshot.
type Price struct {
	Symbol     string    `json:"instrument"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"timestamp"`
}

// PriceSnapshot is the full set of quotes fetched on one tick, in source order.
type PriceSnapshot []Price

// Symbols returns the instrument symbols of the snapshot in order.
func (s PriceSnapshot) Symbols() []string {
	out := make([]string, 0, len(s))
	for _, p := range s {
		out = append(out, p.Symbol)
	}
	return out
}
