// Package ledger tracks the user's cash, open holdings, and losses.
//
// Accounting rules:
//   - buys merge into a holding with a dollar-weighted average cost:
//     newAvg = (oldAvg × oldQty + dollars) / (oldQty + unitsReceived)
//   - sells always liquidate the whole position; partial sells do not exist
//   - cash never goes negative; a buy larger than the balance is rejected
//     before any state changes
package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/uhyunpark/rektsim/pkg/txlog"
)

var (
	// ErrInvalidAmount rejects NaN, ±Inf, and non-positive buy amounts.
	// No state changes and nothing is logged.
	ErrInvalidAmount = errors.New("ledger: invalid amount")
	// ErrInsufficientFunds rejects a buy exceeding the cash balance.
	// No state changes; a rekt entry is logged for user feedback.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrUnknownAsset rejects a command naming an asset the market
	// does not carry. No state changes and nothing is logged.
	ErrUnknownAsset = errors.New("ledger: unknown asset")
	// ErrEmptyHolding rejects a sell with no open position.
	ErrEmptyHolding = errors.New("ledger: no open holding")
)

// PriceSource is the market view the ledger executes against.
// Satisfied by *engine.PriceEngine.
type PriceSource interface {
	Price(assetID string) (float64, bool)
	Ticker(assetID string) (string, bool)
}

// Holding is an open position in one asset. It exists only while
// Quantity > 0 and is removed entirely on sell.
type Holding struct {
	AssetID  string
	Quantity float64
	AvgCost  float64 // dollar-weighted average purchase price
}

// CostBasis returns Quantity × AvgCost.
func (h Holding) CostBasis() float64 { return h.Quantity * h.AvgCost }

// Ledger owns the cash balance and the set of open holdings.
// Not safe for concurrent use; the simulator serializes access.
type Ledger struct {
	cash     float64
	holdings map[string]Holding
	prices   PriceSource
	log      *txlog.Log

	// unrealizedLoss is the displayed loss figure. It is overwritten
	// only when the freshly computed loss is positive and frozen
	// otherwise, so it neither resets on recovery nor reflects a losing
	// position once sold. That recompute-from-scratch quirk is the
	// shipped behavior and is kept as-is.
	unrealizedLoss float64
	shockThreshold float64

	// OnShock fires when the loss figure jumps up by more than
	// shockThreshold in a single revaluation. Presentation-only signal;
	// it is not ledger state.
	OnShock func(prev, cur float64)
}

// New creates a ledger with the given starting cash.
func New(startingBalance, shockThreshold float64, prices PriceSource, log *txlog.Log) *Ledger {
	return &Ledger{
		cash:           startingBalance,
		holdings:       make(map[string]Holding),
		prices:         prices,
		log:            log,
		shockThreshold: shockThreshold,
	}
}

// Buy spends dollars on an asset at the current market price.
//
// Validation order matters: a malformed amount is rejected silently, an
// unknown asset is a no-op, and only a well-formed but unaffordable buy
// produces a rekt log entry. In every failure case no state mutates.
func (l *Ledger) Buy(assetID string, dollars float64) error {
	if math.IsNaN(dollars) || math.IsInf(dollars, 0) || dollars <= 0 {
		return ErrInvalidAmount
	}
	price, ok := l.prices.Price(assetID)
	if !ok {
		return ErrUnknownAsset
	}
	if dollars > l.cash {
		ticker, _ := l.prices.Ticker(assetID)
		l.log.Append(fmt.Sprintf("insufficient funds for %s", ticker), txlog.KindRekt)
		return ErrInsufficientFunds
	}

	units := dollars / price
	l.cash -= dollars

	if h, ok := l.holdings[assetID]; ok {
		newQty := h.Quantity + units
		h.AvgCost = (h.AvgCost*h.Quantity + dollars) / newQty
		h.Quantity = newQty
		l.holdings[assetID] = h
	} else {
		l.holdings[assetID] = Holding{AssetID: assetID, Quantity: units, AvgCost: price}
	}

	ticker, _ := l.prices.Ticker(assetID)
	l.log.Append(fmt.Sprintf("bought %.4f %s @ $%.8f", units, ticker, price), txlog.KindBuy)
	l.Revalue()
	return nil
}

// Sell liquidates the entire position in an asset at the current price.
// There is no partial sell: the holding is removed outright and the
// proceeds credited to cash.
func (l *Ledger) Sell(assetID string) error {
	h, ok := l.holdings[assetID]
	if !ok || h.Quantity <= 0 {
		return ErrEmptyHolding
	}
	price, ok := l.prices.Price(assetID)
	if !ok {
		return ErrUnknownAsset
	}

	proceeds := h.Quantity * price
	pnl := proceeds - h.CostBasis()
	l.cash += proceeds
	delete(l.holdings, assetID)

	ticker, _ := l.prices.Ticker(assetID)
	kind := txlog.KindSell
	if pnl < 0 {
		kind = txlog.KindRekt
	}
	l.log.Append(fmt.Sprintf("sold %s for $%.2f (pnl %+.2f)", ticker, proceeds, pnl), kind)
	l.Revalue()
	return nil
}

// Revalue recomputes the unrealized-loss figure from open holdings:
//
//	loss = Σ qty×avgCost − Σ qty×currentPrice
//
// The figure is overwritten only when loss > 0; otherwise it stays
// frozen at its last positive value. An upward jump larger than the
// shock threshold fires OnShock. Called internally after every trade
// and by the simulator after every price tick.
func (l *Ledger) Revalue() {
	var invested, current float64
	for id, h := range l.holdings {
		invested += h.CostBasis()
		if p, ok := l.prices.Price(id); ok {
			current += h.Quantity * p
		}
	}
	loss := invested - current
	if loss <= 0 {
		return
	}
	prev := l.unrealizedLoss
	l.unrealizedLoss = loss
	if loss-prev > l.shockThreshold && l.OnShock != nil {
		l.OnShock(prev, loss)
	}
}

// Balance returns the cash balance.
func (l *Ledger) Balance() float64 { return l.cash }

// UnrealizedLoss returns the displayed loss figure (see Revalue).
func (l *Ledger) UnrealizedLoss() float64 { return l.unrealizedLoss }

// Holding returns a copy of the open holding for an asset, if any.
func (l *Ledger) Holding(assetID string) (Holding, bool) {
	h, ok := l.holdings[assetID]
	return h, ok
}

// Holdings returns copies of all open holdings, keyed by asset id.
func (l *Ledger) Holdings() map[string]Holding {
	out := make(map[string]Holding, len(l.holdings))
	for id, h := range l.holdings {
		out[id] = h
	}
	return out
}

// InvestedValue returns Σ qty×avgCost over open holdings.
func (l *Ledger) InvestedValue() float64 {
	var v float64
	for _, h := range l.holdings {
		v += h.CostBasis()
	}
	return v
}

// CurrentValue returns Σ qty×currentPrice over open holdings.
func (l *Ledger) CurrentValue() float64 {
	var v float64
	for id, h := range l.holdings {
		if p, ok := l.prices.Price(id); ok {
			v += h.Quantity * p
		}
	}
	return v
}
