// Package api exposes the simulator to the presentation layer: a small
// REST surface for queries and trade commands, plus a WebSocket feed that
// pushes ticker, shock, and log frames. It renders nothing itself.
package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/rektsim/params"
	"github.com/uhyunpark/rektsim/pkg/engine"
	"github.com/uhyunpark/rektsim/pkg/ledger"
	"github.com/uhyunpark/rektsim/pkg/sim"
	"github.com/uhyunpark/rektsim/pkg/txlog"
)

// Server handles REST and WebSocket connections against one simulator.
type Server struct {
	sim    *sim.Simulator
	cfg    params.API
	router *mux.Router
	hub    *Hub
	logger *zap.SugaredLogger

	lastLogSeq uint64 // high-water mark for log broadcasts
}

func NewServer(s *sim.Simulator, cfg params.API, logger *zap.SugaredLogger) *Server {
	srv := &Server{
		sim:    s,
		cfg:    cfg,
		router: mux.NewRouter(),
		hub:    NewHub(logger),
		logger: logger,
	}
	srv.setupRoutes()
	return srv
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Queries
	api.HandleFunc("/assets", s.handleGetAssets).Methods("GET")
	api.HandleFunc("/assets/{id}", s.handleGetAsset).Methods("GET")
	api.HandleFunc("/portfolio", s.handleGetPortfolio).Methods("GET")
	api.HandleFunc("/log", s.handleGetLog).Methods("GET")

	// Commands
	api.HandleFunc("/trade/buy", s.handleBuy).Methods("POST")
	api.HandleFunc("/trade/sell", s.handleSell).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and blocks serving HTTP.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	s.logger.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetAssets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, toAssetInfos(s.sim.Assets()))
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a, ok := s.sim.Asset(id)
	if !ok {
		respondError(w, http.StatusNotFound, "asset not found", id)
		return
	}
	respondJSON(w, toAssetInfo(a))
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, toPortfolioInfo(s.sim.Portfolio()))
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	entries := s.sim.RecentLog()
	out := make([]LogEntryInfo, len(entries))
	for i, e := range entries {
		out[i] = toLogEntryInfo(e)
	}
	respondJSON(w, out)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	// Malformed amounts become NaN and are rejected by the ledger with
	// no state change, matching a dropped form field.
	amount, err := strconv.ParseFloat(req.Amount, 64)
	if err != nil {
		amount = math.NaN()
	}

	if err := s.sim.Buy(req.AssetID, amount); err != nil {
		respondError(w, tradeStatus(err), err.Error(), "")
		return
	}

	s.logger.Infow("buy_accepted", "asset", req.AssetID, "amount", amount)
	respondJSON(w, TradeResponse{Status: "ok", Balance: s.sim.Balance()})
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := s.sim.Sell(req.AssetID); err != nil {
		respondError(w, tradeStatus(err), err.Error(), "")
		return
	}

	s.logger.Infow("sell_accepted", "asset", req.AssetID)
	respondJSON(w, TradeResponse{Status: "ok", Balance: s.sim.Balance()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// tradeStatus maps ledger rejections onto HTTP statuses. Every rejection
// is a clean no-op on the ledger side.
func tradeStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnknownAsset):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// ==============================
// Broadcast Methods (called from the sim loop)
// ==============================

// BroadcastTicker pushes a fresh market + portfolio snapshot.
func (s *Server) BroadcastTicker() {
	update := TickerUpdate{
		Type:      "ticker",
		Assets:    toAssetInfos(s.sim.Assets()),
		Portfolio: toPortfolioInfo(s.sim.Portfolio()),
		Tick:      s.sim.Ticks(),
		Timestamp: time.Now().UnixMilli(),
	}
	s.hub.BroadcastToChannel("ticker", update)
}

// BroadcastShock pushes the transient glitch-effect trigger.
func (s *Server) BroadcastShock(ev sim.ShockEvent) {
	update := ShockUpdate{
		Type:      "shock",
		PrevLoss:  ev.Prev,
		CurLoss:   ev.Cur,
		Timestamp: time.Now().UnixMilli(),
	}
	s.hub.BroadcastToChannel("shock", update)
}

// BroadcastLogTail pushes every log entry appended since the last call.
// Only the sim loop goroutine calls this, so lastLogSeq needs no lock.
func (s *Server) BroadcastLogTail() {
	for _, e := range s.sim.RecentLog() {
		if e.Seq <= s.lastLogSeq {
			continue
		}
		s.lastLogSeq = e.Seq
		s.hub.BroadcastToChannel("log", LogUpdate{Type: "log", Entry: toLogEntryInfo(e)})
	}
}

// ==============================
// Converters & Helpers
// ==============================

func toAssetInfo(a engine.Asset) AssetInfo {
	return AssetInfo{
		ID:        a.ID,
		Name:      a.Name,
		Ticker:    a.Ticker,
		Price:     a.Price,
		PctChange: a.PctChange(),
		History:   a.History,
	}
}

func toAssetInfos(assets []engine.Asset) []AssetInfo {
	out := make([]AssetInfo, len(assets))
	for i, a := range assets {
		out[i] = toAssetInfo(a)
	}
	return out
}

func toPortfolioInfo(p sim.PortfolioSnapshot) PortfolioInfo {
	holdings := make([]HoldingInfo, len(p.Holdings))
	for i, h := range p.Holdings {
		holdings[i] = HoldingInfo{
			AssetID:       h.AssetID,
			Ticker:        h.Ticker,
			Quantity:      h.Quantity,
			AvgCost:       h.AvgCost,
			CurrentPrice:  h.CurrentPrice,
			CurrentValue:  h.CurrentValue,
			UnrealizedPnL: h.UnrealizedPnL,
		}
	}
	return PortfolioInfo{
		Balance:        p.Balance,
		Holdings:       holdings,
		InvestedValue:  p.InvestedValue,
		CurrentValue:   p.CurrentValue,
		UnrealizedLoss: p.UnrealizedLoss,
	}
}

func toLogEntryInfo(e txlog.Entry) LogEntryInfo {
	return LogEntryInfo{
		Seq:       e.Seq,
		Message:   e.Message,
		Kind:      e.Kind.String(),
		CreatedAt: e.CreatedAt.UnixMilli(),
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: error, Message: message})
}
