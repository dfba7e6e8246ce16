package engine

// Asset is one tradable instrument: current price plus a bounded price
// history (oldest first). The engine owns all mutation; everything handed
// out through queries is a copy.
//
// Invariants:
//   - Price > 0 (floored, never zero)
//   - len(History) <= the configured window
//   - History[len-1] == Price after every advance
type Asset struct {
	ID      string
	Name    string
	Ticker  string
	Price   float64
	History []float64
}

// PctChange returns the percent move of the current price against the
// oldest retained history point. Zero when there is not enough history.
//
// Formula: (current − oldest) / oldest × 100
func (a *Asset) PctChange() float64 {
	if len(a.History) < 2 {
		return 0
	}
	oldest := a.History[0]
	return (a.Price - oldest) / oldest * 100
}

// pushHistory appends p and evicts from the front beyond window.
func (a *Asset) pushHistory(p float64, window int) {
	a.History = append(a.History, p)
	if n := len(a.History); n > window {
		a.History = a.History[n-window:]
	}
}

// clone returns a deep copy safe to hand to readers.
func (a *Asset) clone() Asset {
	c := *a
	c.History = append([]float64(nil), a.History...)
	return c
}
