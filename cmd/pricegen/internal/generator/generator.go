// Package generator simulates FX quotes with a random walk and serves them
// the way the streaming engine expects to poll them.
package generator

import (
	"math"
	"sync"

	"github.com/shubham-shewale/fx-platform/pkg/models"
)

// Instrument seeds one walk. Volatility is the standard deviation of a
// single step and Trend its drift.
type Instrument struct {
	Symbol     string  `yaml:"symbol"`
	Base       float64 `yaml:"base"`
	Volatility float64 `yaml:"volatility"`
	Trend      float64 `yaml:"trend"`
}

var DefaultInstruments = []Instrument{
	{Symbol: "EUR/USD", Base: 1.1000, Volatility: 0.0008, Trend: 0.0001},
	{Symbol: "ARG/USD", Base: 0.0012, Volatility: 0.0030, Trend: -0.0002},
	{Symbol: "ARG/EUR", Base: 0.0011, Volatility: 0.0025, Trend: -0.0001},
}

const (
	maxStep        = 0.05
	historySize    = 5
	smoothedWeight = 0.7

	eventEvery  = 100
	eventChance = 0.3
	trendChance = 0.05
	trendBound  = 0.0003
)

type walk struct {
	symbol     string
	price      float64
	volatility float64
	trend      float64
	history    []float64
	steps      int
}

type Generator struct {
	mu    sync.Mutex
	walks []*walk
	rand  Rand
	clock Clock
}

func New(instruments []Instrument, rnd Rand, clock Clock) *Generator {
	g := &Generator{rand: rnd, clock: clock}
	for _, inst := range instruments {
		g.walks = append(g.walks, &walk{
			symbol:     inst.Symbol,
			price:      inst.Base,
			volatility: inst.Volatility,
			trend:      inst.Trend,
			history:    []float64{inst.Base},
		})
	}
	return g
}

// Next advances every walk one step and returns the new quotes in
// instrument order, all stamped with the same instant.
func (g *Generator) Next() models.PriceSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	snap := make(models.PriceSnapshot, 0, len(g.walks))
	for _, w := range g.walks {
		snap = append(snap, models.Price{
			Symbol:     w.symbol,
			Price:      round6(g.step(w)),
			ObservedAt: now,
		})
	}
	return snap
}

// currentVolatility jitters the base volatility by ±20%. Every eventEvery
// steps there is a chance of a 2-4x spike instead.
func (g *Generator) currentVolatility(w *walk) float64 {
	w.steps++
	if w.steps > eventEvery {
		w.steps = 0
		if g.rand.Float64() < eventChance {
			return w.volatility * (2 + 2*g.rand.Float64())
		}
	}
	return w.volatility * (0.8 + 0.4*g.rand.Float64())
}

func (g *Generator) step(w *walk) float64 {
	base := w.price
	change := w.trend + g.rand.NormFloat64()*g.currentVolatility(w)
	next := base * (1 + change)

	if math.Abs(next-base)/base > maxStep {
		if next > base {
			next = base * (1 + maxStep)
		} else {
			next = base * (1 - maxStep)
		}
	}

	w.history = append(w.history, next)
	if len(w.history) > historySize {
		w.history = w.history[1:]
	}
	var sum float64
	for _, p := range w.history {
		sum += p
	}
	smoothed := sum / float64(len(w.history))

	w.price = smoothed*smoothedWeight + next*(1-smoothedWeight)

	if g.rand.Float64() < trendChance {
		w.trend = -trendBound + 2*trendBound*g.rand.Float64()
	}
	return w.price
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
