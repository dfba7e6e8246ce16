// Package engine generates the market: a loss-biased multiplicative random
// walk over a fixed set of fictional assets. The engine holds no timer of
// its own; an external trigger calls Tick at whatever cadence it likes.
package engine

import (
	"github.com/uhyunpark/rektsim/params"
)

// PriceEngine owns every asset's current price and bounded history.
// It is not safe for concurrent use; the simulator serializes access.
type PriceEngine struct {
	cfg    params.Market
	src    Source
	assets []*Asset          // stable boot order, for display
	byID   map[string]*Asset // id → asset
}

// NewPriceEngine seeds one asset per entry. Each asset boots with a full
// synthetic history so the chart already shows a decline before the user
// places their first trade.
func NewPriceEngine(cfg params.Market, src Source, specs []params.AssetSpec) *PriceEngine {
	e := &PriceEngine{
		cfg:  cfg,
		src:  src,
		byID: make(map[string]*Asset, len(specs)),
	}
	for _, s := range specs {
		hist := e.seedHistory(s.StartPrice)
		a := &Asset{
			ID:      s.ID,
			Name:    s.Name,
			Ticker:  s.Ticker,
			Price:   hist[len(hist)-1],
			History: hist,
		}
		e.assets = append(e.assets, a)
		e.byID[s.ID] = a
	}
	return e
}

// seedHistory fabricates the asset's backstory: start at 1.5× the listing
// price and decay multiplicatively with noise, floored at 0.1× so the
// chart never bottoms out flat.
//
//	next = current × (SeedDecay + U(−SeedJitter, +SeedJitter))
func (e *PriceEngine) seedHistory(start float64) []float64 {
	floor := start * 0.1
	hist := make([]float64, 0, e.cfg.HistoryWindow)
	price := start * 1.5
	for i := 0; i < e.cfg.HistoryWindow; i++ {
		price *= uniform(e.src, e.cfg.SeedDecay-e.cfg.SeedJitter, e.cfg.SeedDecay+e.cfg.SeedJitter)
		if price < floor {
			price = floor
		}
		hist = append(hist, price)
	}
	return hist
}

// Tick advances every asset one step.
func (e *PriceEngine) Tick() {
	for _, a := range e.assets {
		e.advance(a)
	}
}

// advance applies one step of the walk:
//
//	pump  (p = PumpProbability): price × (1 + U(0, PumpMax))
//	drift (otherwise):           price × (DriftBase + U(−DriftJitter, +DriftJitter))
//
// The result is floored at PriceFloor and appended to history, evicting
// the oldest point beyond the window.
func (e *PriceEngine) advance(a *Asset) {
	var mult float64
	if e.src.Float64() < e.cfg.PumpProbability {
		mult = 1 + uniform(e.src, 0, e.cfg.PumpMax)
	} else {
		mult = uniform(e.src, e.cfg.DriftBase-e.cfg.DriftJitter, e.cfg.DriftBase+e.cfg.DriftJitter)
	}
	p := a.Price * mult
	if p < e.cfg.PriceFloor {
		p = e.cfg.PriceFloor
	}
	a.Price = p
	a.pushHistory(p, e.cfg.HistoryWindow)
}

// Assets returns deep copies of all assets in boot order.
func (e *PriceEngine) Assets() []Asset {
	out := make([]Asset, 0, len(e.assets))
	for _, a := range e.assets {
		out = append(out, a.clone())
	}
	return out
}

// Asset returns a copy of one asset.
func (e *PriceEngine) Asset(id string) (Asset, bool) {
	a, ok := e.byID[id]
	if !ok {
		return Asset{}, false
	}
	return a.clone(), true
}

// Price returns the current price of an asset.
func (e *PriceEngine) Price(id string) (float64, bool) {
	a, ok := e.byID[id]
	if !ok {
		return 0, false
	}
	return a.Price, true
}

// Ticker returns the display ticker of an asset.
func (e *PriceEngine) Ticker(id string) (string, bool) {
	a, ok := e.byID[id]
	if !ok {
		return "", false
	}
	return a.Ticker, true
}
