package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/uhyunpark/rektsim/params"
	"github.com/uhyunpark/rektsim/pkg/api"
	"github.com/uhyunpark/rektsim/pkg/engine"
	"github.com/uhyunpark/rektsim/pkg/sim"
	"github.com/uhyunpark/rektsim/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	// Setup logging (write to both console and file)
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/rektsim.log"
	}

	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	// ---- Randomness ----
	// Seedable for reproducible markets; default is wall-clock entropy.
	seed := time.Now().UnixNano()
	if v := os.Getenv("MARKET_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			seed = n
		}
	}
	src := engine.NewSource(seed)

	// ---- Simulator: engine + ledger + tx log ----
	simulator := sim.New(cfg, src, util.RealClock{}, sugar)

	sugar.Infow("sim_initialized",
		"assets", len(cfg.Assets),
		"starting_balance", cfg.Ledger.StartingBalance,
		"tick_interval_ms", cfg.Sim.TickInterval.Milliseconds(),
		"seed", seed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	apiServer := api.NewServer(simulator, cfg.API, sugar)

	go func() {
		if err := apiServer.Start(cfg.API.Addr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	// Hook the sim loop to the feed: fresh snapshot every tick, shock
	// frames whenever the loss figure jumps.
	simulator.OnTick = func() {
		apiServer.BroadcastTicker()
		apiServer.BroadcastLogTail()
	}
	simulator.OnShock = func(ev sim.ShockEvent) {
		sugar.Infow("shock_triggered", "prev_loss", ev.Prev, "cur_loss", ev.Cur)
		apiServer.BroadcastShock(ev)
	}

	// Start the tick loop
	go func() {
		if err := simulator.Run(ctx); err != nil && ctx.Err() == nil {
			sugar.Fatalw("sim_loop_failed", "err", err)
		}
	}()

	// Progress logging loop
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sugar.Infow("shutting_down", "ticks", simulator.Ticks())
			return
		case <-ticker.C:
			sugar.Infow("sim_progress",
				"ticks", simulator.Ticks(),
				"balance", simulator.Balance(),
				"unrealized_loss", simulator.UnrealizedLoss())
		}
	}
}
