// Package sim wires the price engine, ledger, and transaction log behind a
// single command/query surface. The core components are single-writer by
// design; the simulator's mutex is what lets the HTTP layer and the tick
// loop share them without interleaving composite updates.
package sim

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/rektsim/params"
	"github.com/uhyunpark/rektsim/pkg/engine"
	"github.com/uhyunpark/rektsim/pkg/ledger"
	"github.com/uhyunpark/rektsim/pkg/txlog"
	"github.com/uhyunpark/rektsim/pkg/util"
)

// ShockEvent is the transient presentation signal fired when the
// unrealized-loss figure jumps sharply. It is never stored.
type ShockEvent struct {
	Prev float64
	Cur  float64
}

// PortfolioSnapshot is a read-only view for presentation.
type PortfolioSnapshot struct {
	Balance        float64
	Holdings       []HoldingView
	InvestedValue  float64
	CurrentValue   float64
	UnrealizedLoss float64
}

// HoldingView is a holding enriched with the live price.
type HoldingView struct {
	AssetID       string
	Ticker        string
	Quantity      float64
	AvgCost       float64
	CurrentPrice  float64
	CurrentValue  float64
	UnrealizedPnL float64 // qty × (price − avgCost)
}

// Simulator owns the whole simulation. All commands and queries are
// serialized, so readers always observe fully-applied updates.
type Simulator struct {
	mu     sync.Mutex
	cfg    params.Config
	clock  util.Clock
	logger *zap.SugaredLogger

	engine *engine.PriceEngine
	ledger *ledger.Ledger
	txlog  *txlog.Log

	ticks uint64

	// OnTick fires after each price advance + revaluation, outside the
	// per-command critical section. Used to broadcast fresh snapshots.
	OnTick func()
	// OnShock forwards the ledger's shock signal.
	OnShock func(ev ShockEvent)
}

// New builds a simulator from config and a seedable random source.
func New(cfg params.Config, src engine.Source, clock util.Clock, logger *zap.SugaredLogger) *Simulator {
	tl := txlog.New(cfg.Log.Retention, clock)
	eng := engine.NewPriceEngine(cfg.Market, src, cfg.Assets)
	led := ledger.New(cfg.Ledger.StartingBalance, cfg.Ledger.ShockThreshold, eng, tl)

	s := &Simulator{
		cfg:    cfg,
		clock:  clock,
		logger: logger,
		engine: eng,
		ledger: led,
		txlog:  tl,
	}
	led.OnShock = func(prev, cur float64) {
		if s.OnShock != nil {
			s.OnShock(ShockEvent{Prev: prev, Cur: cur})
		}
	}
	return s
}

// Run ticks the market at the configured cadence until ctx is cancelled.
// Stopping the loop only halts price movement; trades remain valid.
func (s *Simulator) Run(ctx context.Context) error {
	s.logger.Infow("sim_loop_started", "tick_interval", s.cfg.Sim.TickInterval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("sim_loop_stopped", "ticks", s.Ticks())
			return ctx.Err()
		case <-s.clock.After(s.cfg.Sim.TickInterval):
			s.Tick()
		}
	}
}

// Tick advances every asset one step and revalues the portfolio.
func (s *Simulator) Tick() {
	s.mu.Lock()
	s.engine.Tick()
	s.ledger.Revalue()
	s.ticks++
	s.mu.Unlock()

	if s.OnTick != nil {
		s.OnTick()
	}
}

// Buy spends dollars on an asset. See ledger.Buy for the rules.
func (s *Simulator) Buy(assetID string, dollars float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Buy(assetID, dollars)
}

// Sell liquidates the entire position in an asset.
func (s *Simulator) Sell(assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Sell(assetID)
}

// Assets returns a snapshot of all assets in boot order.
func (s *Simulator) Assets() []engine.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Assets()
}

// Asset returns a snapshot of one asset.
func (s *Simulator) Asset(id string) (engine.Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Asset(id)
}

// Holding returns the open holding for an asset, if any.
func (s *Simulator) Holding(assetID string) (ledger.Holding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Holding(assetID)
}

// Balance returns the cash balance.
func (s *Simulator) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balance()
}

// UnrealizedLoss returns the displayed loss figure.
func (s *Simulator) UnrealizedLoss() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.UnrealizedLoss()
}

// RecentLog returns the retained log entries, oldest first.
func (s *Simulator) RecentLog() []txlog.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txlog.Recent()
}

// Ticks returns the number of completed ticks.
func (s *Simulator) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Portfolio assembles the full presentation snapshot in one critical
// section so balance, holdings, and prices are mutually consistent.
func (s *Simulator) Portfolio() PortfolioSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := PortfolioSnapshot{
		Balance:        s.ledger.Balance(),
		InvestedValue:  s.ledger.InvestedValue(),
		CurrentValue:   s.ledger.CurrentValue(),
		UnrealizedLoss: s.ledger.UnrealizedLoss(),
	}
	for _, a := range s.engine.Assets() {
		h, ok := s.ledger.Holding(a.ID)
		if !ok {
			continue
		}
		snap.Holdings = append(snap.Holdings, HoldingView{
			AssetID:       h.AssetID,
			Ticker:        a.Ticker,
			Quantity:      h.Quantity,
			AvgCost:       h.AvgCost,
			CurrentPrice:  a.Price,
			CurrentValue:  h.Quantity * a.Price,
			UnrealizedPnL: h.Quantity * (a.Price - h.AvgCost),
		})
	}
	return snap
}
