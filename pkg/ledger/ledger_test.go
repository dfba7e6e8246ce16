package ledger

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/uhyunpark/rektsim/pkg/txlog"
)

// stubPrices is a mutable market so tests can move prices between trades.
type stubPrices struct {
	prices  map[string]float64
	tickers map[string]string
}

func (s *stubPrices) Price(id string) (float64, bool) {
	p, ok := s.prices[id]
	return p, ok
}

func (s *stubPrices) Ticker(id string) (string, bool) {
	t, ok := s.tickers[id]
	return t, ok
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
func (c fixedClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.t
	return ch
}

func newTestLedger(balance float64) (*Ledger, *stubPrices, *txlog.Log) {
	prices := &stubPrices{
		prices:  map[string]float64{"clawstr": 0.00420, "ponzu": 13.37},
		tickers: map[string]string{"clawstr": "CLAW", "ponzu": "PNZU"},
	}
	log := txlog.New(50, fixedClock{t: time.Unix(1700000000, 0)})
	return New(balance, 10, prices, log), prices, log
}

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// TestBuyCreatesHolding is the reference scenario: $100 of clawstr at
// 0.00420 yields ≈23809.52 units and leaves $900 cash.
func TestBuyCreatesHolding(t *testing.T) {
	l, _, log := newTestLedger(1000)

	if err := l.Buy("clawstr", 100); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	if !approx(l.Balance(), 900, 1e-9) {
		t.Errorf("balance = %g, want 900", l.Balance())
	}
	h, ok := l.Holding("clawstr")
	if !ok {
		t.Fatal("holding missing after buy")
	}
	if !approx(h.Quantity, 100/0.00420, 1e-6) {
		t.Errorf("quantity = %g, want ≈%g", h.Quantity, 100/0.00420)
	}
	if h.AvgCost != 0.00420 {
		t.Errorf("avg cost = %g, want 0.00420", h.AvgCost)
	}

	entries := log.Recent()
	if len(entries) != 1 || entries[0].Kind != txlog.KindBuy {
		t.Fatalf("expected one buy log entry, got %+v", entries)
	}
}

// TestBuyWeightedAverage buys twice with the price doubled in between and
// checks the dollar-weighted mean exactly.
func TestBuyWeightedAverage(t *testing.T) {
	l, prices, _ := newTestLedger(1000)

	p := prices.prices["clawstr"]
	if err := l.Buy("clawstr", 50); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	qty1 := 50 / p

	prices.prices["clawstr"] = 2 * p
	if err := l.Buy("clawstr", 50); err != nil {
		t.Fatalf("second buy: %v", err)
	}
	qty2 := 50 / (2 * p)

	h, _ := l.Holding("clawstr")
	if !approx(h.Quantity, qty1+qty2, 1e-9) {
		t.Errorf("quantity = %g, want %g", h.Quantity, qty1+qty2)
	}
	want := (qty1*p + qty2*2*p) / (qty1 + qty2)
	if !approx(h.AvgCost, want, 1e-12) {
		t.Errorf("avg cost = %g, want %g", h.AvgCost, want)
	}
	// same thing stated as dollars over units
	if !approx(h.AvgCost, 100/(qty1+qty2), 1e-12) {
		t.Errorf("avg cost = %g, want %g", h.AvgCost, 100/(qty1+qty2))
	}
}

// TestBuyInvalidAmounts checks every malformed amount is a clean no-op:
// no balance change, no holding, no log entry.
func TestBuyInvalidAmounts(t *testing.T) {
	amounts := []float64{-5, 0, math.NaN(), math.Inf(1), math.Inf(-1)}

	for _, amt := range amounts {
		l, _, log := newTestLedger(1000)
		err := l.Buy("clawstr", amt)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Buy(%g) error = %v, want ErrInvalidAmount", amt, err)
		}
		if l.Balance() != 1000 {
			t.Errorf("Buy(%g) mutated balance to %g", amt, l.Balance())
		}
		if len(l.Holdings()) != 0 {
			t.Errorf("Buy(%g) created a holding", amt)
		}
		if log.Len() != 0 {
			t.Errorf("Buy(%g) appended a log entry", amt)
		}
	}
}

// TestBuyInsufficientFunds checks the rejected buy mutates nothing but
// leaves a rekt entry naming the ticker.
func TestBuyInsufficientFunds(t *testing.T) {
	l, _, log := newTestLedger(50)

	err := l.Buy("clawstr", 100)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}
	if l.Balance() != 50 {
		t.Errorf("balance = %g, want 50", l.Balance())
	}
	if len(l.Holdings()) != 0 {
		t.Error("holdings mutated by rejected buy")
	}

	entries := log.Recent()
	if len(entries) != 1 || entries[0].Kind != txlog.KindRekt {
		t.Fatalf("expected one rekt entry, got %+v", entries)
	}
	if entries[0].Message != "insufficient funds for CLAW" {
		t.Errorf("message = %q", entries[0].Message)
	}
}

func TestBuyUnknownAsset(t *testing.T) {
	l, _, log := newTestLedger(1000)

	if err := l.Buy("ghost", 100); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("error = %v, want ErrUnknownAsset", err)
	}
	if l.Balance() != 1000 || log.Len() != 0 {
		t.Error("unknown-asset buy was not a no-op")
	}
}

// TestSellAtLoss is the reference scenario: buy $100 at 0.00420, price
// halves, sell → proceeds ≈50, pnl ≈−50, balance 950, rekt entry.
func TestSellAtLoss(t *testing.T) {
	l, prices, log := newTestLedger(1000)

	if err := l.Buy("clawstr", 100); err != nil {
		t.Fatalf("buy: %v", err)
	}
	prices.prices["clawstr"] = 0.00210

	if err := l.Sell("clawstr"); err != nil {
		t.Fatalf("sell: %v", err)
	}

	if !approx(l.Balance(), 950, 1e-6) {
		t.Errorf("balance = %g, want ≈950", l.Balance())
	}
	if _, ok := l.Holding("clawstr"); ok {
		t.Error("holding still present after sell")
	}

	entries := log.Recent()
	last := entries[len(entries)-1]
	if last.Kind != txlog.KindRekt {
		t.Errorf("losing sell logged as %s, want rekt", last.Kind)
	}
}

func TestSellAtProfit(t *testing.T) {
	l, prices, log := newTestLedger(1000)

	if err := l.Buy("ponzu", 100); err != nil {
		t.Fatalf("buy: %v", err)
	}
	prices.prices["ponzu"] = 2 * 13.37

	if err := l.Sell("ponzu"); err != nil {
		t.Fatalf("sell: %v", err)
	}

	if !approx(l.Balance(), 1100, 1e-6) {
		t.Errorf("balance = %g, want ≈1100", l.Balance())
	}

	entries := log.Recent()
	last := entries[len(entries)-1]
	if last.Kind != txlog.KindSell {
		t.Errorf("winning sell logged as %s, want sell", last.Kind)
	}
}

func TestSellEmptyHolding(t *testing.T) {
	l, _, log := newTestLedger(1000)

	if err := l.Sell("clawstr"); !errors.Is(err, ErrEmptyHolding) {
		t.Fatalf("error = %v, want ErrEmptyHolding", err)
	}
	if l.Balance() != 1000 || log.Len() != 0 {
		t.Error("empty sell was not a no-op")
	}
}

// TestBalanceNeverNegative hammers buys against a small balance; cash must
// never go below zero whatever the sequence.
func TestBalanceNeverNegative(t *testing.T) {
	l, _, _ := newTestLedger(100)

	for _, amt := range []float64{60, 60, 30, 30, 30, 1000} {
		l.Buy("clawstr", amt)
		if l.Balance() < 0 {
			t.Fatalf("balance went negative: %g", l.Balance())
		}
	}
}

// TestRevalueRatchet pins the frozen-ratchet behavior of the loss figure:
// it is overwritten only while the computed loss is positive, it does not
// reset when holdings recover, and it survives selling the loser.
func TestRevalueRatchet(t *testing.T) {
	l, prices, _ := newTestLedger(1000)

	if err := l.Buy("clawstr", 100); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if l.UnrealizedLoss() != 0 {
		t.Fatalf("loss = %g right after buy, want 0", l.UnrealizedLoss())
	}

	// price halves: loss = invested − current = 100 − 50 = 50
	prices.prices["clawstr"] = 0.00210
	l.Revalue()
	if !approx(l.UnrealizedLoss(), 50, 1e-6) {
		t.Fatalf("loss = %g, want ≈50", l.UnrealizedLoss())
	}

	// full recovery: loss goes non-positive, figure stays frozen at 50
	prices.prices["clawstr"] = 0.00840
	l.Revalue()
	if !approx(l.UnrealizedLoss(), 50, 1e-6) {
		t.Errorf("loss = %g after recovery, want frozen at 50", l.UnrealizedLoss())
	}

	// selling removes the position; figure still frozen
	if err := l.Sell("clawstr"); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !approx(l.UnrealizedLoss(), 50, 1e-6) {
		t.Errorf("loss = %g after sell, want frozen at 50", l.UnrealizedLoss())
	}
}

// TestShockSignal checks OnShock fires only on jumps above the threshold.
func TestShockSignal(t *testing.T) {
	l, prices, _ := newTestLedger(1000)

	var events [][2]float64
	l.OnShock = func(prev, cur float64) {
		events = append(events, [2]float64{prev, cur})
	}

	if err := l.Buy("clawstr", 100); err != nil {
		t.Fatalf("buy: %v", err)
	}

	// small dip: loss ≈ 5, jump 5 ≤ threshold 10, no shock
	prices.prices["clawstr"] = 0.00420 * 0.95
	l.Revalue()
	if len(events) != 0 {
		t.Fatalf("shock fired on small dip: %v", events)
	}

	// crash: loss ≈ 50, jump ≈ 45 > 10, one shock
	prices.prices["clawstr"] = 0.00210
	l.Revalue()
	if len(events) != 1 {
		t.Fatalf("shock events = %d, want 1", len(events))
	}
	if !approx(events[0][0], 5, 1e-6) || !approx(events[0][1], 50, 1e-6) {
		t.Errorf("shock = %v, want (≈5, ≈50)", events[0])
	}

	// same price again: loss unchanged, no new shock
	l.Revalue()
	if len(events) != 1 {
		t.Errorf("shock fired without a jump")
	}
}

// TestHoldingsReturnsCopy verifies the holdings map can't be mutated from
// outside the ledger.
func TestHoldingsReturnsCopy(t *testing.T) {
	l, _, _ := newTestLedger(1000)
	if err := l.Buy("clawstr", 100); err != nil {
		t.Fatalf("buy: %v", err)
	}

	got := l.Holdings()
	delete(got, "clawstr")

	if _, ok := l.Holding("clawstr"); !ok {
		t.Error("Holdings exposes internal map")
	}
}
