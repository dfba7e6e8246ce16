package api

// API request/response types for REST endpoints and WebSocket frames.
// The frontend only ever sees these copies; engine state never leaks.

// ==============================
// REST Types
// ==============================

// AssetInfo is one asset's market state.
type AssetInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Ticker    string    `json:"ticker"`
	Price     float64   `json:"price"`
	PctChange float64   `json:"pctChange"` // vs oldest retained history point
	History   []float64 `json:"history"`   // oldest first, bounded
}

// HoldingInfo is one open position enriched with the live price.
type HoldingInfo struct {
	AssetID       string  `json:"assetId"`
	Ticker        string  `json:"ticker"`
	Quantity      float64 `json:"quantity"`
	AvgCost       float64 `json:"avgCost"`
	CurrentPrice  float64 `json:"currentPrice"`
	CurrentValue  float64 `json:"currentValue"`
	UnrealizedPnL float64 `json:"unrealizedPnl"`
}

// PortfolioInfo is the full ledger view.
type PortfolioInfo struct {
	Balance        float64       `json:"balance"`
	Holdings       []HoldingInfo `json:"holdings"`
	InvestedValue  float64       `json:"investedValue"`
	CurrentValue   float64       `json:"currentValue"`
	UnrealizedLoss float64       `json:"unrealizedLoss"` // frozen-ratchet figure
}

// LogEntryInfo is one transaction-log line.
type LogEntryInfo struct {
	Seq       uint64 `json:"seq"`
	Message   string `json:"message"`
	Kind      string `json:"kind"`      // "buy", "sell", "rekt", "info"
	CreatedAt int64  `json:"createdAt"` // Unix milliseconds
}

// BuyRequest buys a dollar amount of an asset. Amount travels as a
// string so malformed input can be dropped exactly like a bad form field.
type BuyRequest struct {
	AssetID string `json:"assetId"`
	Amount  string `json:"amount"`
}

// SellRequest liquidates the whole position in an asset.
type SellRequest struct {
	AssetID string `json:"assetId"`
}

// TradeResponse acknowledges an accepted command.
type TradeResponse struct {
	Status  string  `json:"status"` // "ok"
	Balance float64 `json:"balance"`
}

// ErrorResponse carries a rejected command's reason.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket Frames
// ==============================

// WSSubscribeRequest is sent by the client to manage channel subscriptions.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // "ticker", "shock", "log"
}

// TickerUpdate is broadcast on every tick.
type TickerUpdate struct {
	Type      string        `json:"type"` // "ticker"
	Assets    []AssetInfo   `json:"assets"`
	Portfolio PortfolioInfo `json:"portfolio"`
	Tick      uint64        `json:"tick"`
	Timestamp int64         `json:"timestamp"` // Unix milliseconds
}

// ShockUpdate is broadcast when the loss figure jumps sharply. Transient:
// the frontend uses it for a glitch effect, nothing stores it.
type ShockUpdate struct {
	Type      string  `json:"type"` // "shock"
	PrevLoss  float64 `json:"prevLoss"`
	CurLoss   float64 `json:"curLoss"`
	Timestamp int64   `json:"timestamp"`
}

// LogUpdate is broadcast when a new transaction-log entry lands.
type LogUpdate struct {
	Type  string       `json:"type"` // "log"
	Entry LogEntryInfo `json:"entry"`
}
