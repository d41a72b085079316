package generator

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TimestampLayout is ISO 8601 with microseconds and no zone.
const TimestampLayout = "2006-01-02T15:04:05.000000"

type quote struct {
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
	Timestamp  string  `json:"timestamp"`
}

type pricesResponse struct {
	Success   bool    `json:"success"`
	Prices    []quote `json:"prices"`
	Timestamp string  `json:"timestamp"`
}

// Router serves GET /prices, which advances the walks on every call, and GET /health.
func Router(g *Generator, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/prices", func(w http.ResponseWriter, r *http.Request) {
		snap := g.Next()
		resp := pricesResponse{Success: true, Prices: make([]quote, 0, len(snap))}
		for _, p := range snap {
			resp.Prices = append(resp.Prices, quote{
				Instrument: p.Symbol,
				Price:      p.Price,
				Timestamp:  p.ObservedAt.Format(TimestampLayout),
			})
		}
		resp.Timestamp = g.clock.Now().Format(TimestampLayout)

		logger.Debug("Served prices", zap.Strings("instruments", snap.Symbols()))
		writeJSON(w, resp)
	}).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"status":    "ok",
			"service":   "price-generator",
			"timestamp": g.clock.Now().Format(TimestampLayout),
		})
	}).Methods("GET")

	return router
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
