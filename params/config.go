package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AssetSpec describes one tradable asset at startup.
type AssetSpec struct {
	ID         string
	Name       string
	Ticker     string
	StartPrice float64
}

// Market controls price generation.
//
// Every draw is uniform. The walk is deliberately loss-biased:
//   - pump branch (probability PumpProbability): price × (1 + U(0, PumpMax))
//   - drift branch (otherwise):                  price × (DriftBase + U(-DriftJitter, +DriftJitter))
//
// With DriftBase < 1 the expected per-tick multiplier is below 1, so the
// user watches their bags bleed between rare green candles.
type Market struct {
	PumpProbability float64 // chance of an upward spike per tick
	PumpMax         float64 // upper bound of the pump multiplier offset
	DriftBase       float64 // center of the downward-biased multiplier
	DriftJitter     float64 // half-width of the drift noise band
	SeedDecay       float64 // center of the seeded-history decay multiplier
	SeedJitter      float64 // half-width of the seeded-history noise band
	PriceFloor      float64 // hard floor, prices never reach zero
	HistoryWindow   int     // max retained price points per asset
}

// Ledger controls cash and loss accounting.
type Ledger struct {
	StartingBalance float64 // cash handed to the user at boot
	ShockThreshold  float64 // loss-tracker jump that triggers a shock event
}

// Log controls the transaction log.
type Log struct {
	Retention int // max retained entries, oldest evicted first
}

// Sim controls the simulation loop.
type Sim struct {
	// TickInterval throttles price advancement. The engine itself is
	// cadence-agnostic; this only paces the external trigger.
	TickInterval time.Duration
}

// API controls the HTTP/WebSocket presentation surface.
type API struct {
	Addr           string
	AllowedOrigins []string
}

type Config struct {
	Market Market
	Ledger Ledger
	Log    Log
	Sim    Sim
	API    API
	Assets []AssetSpec
}

func Default() Config {
	return Config{
		Market: Market{
			PumpProbability: 0.08,
			PumpMax:         0.30,
			DriftBase:       0.985,
			DriftJitter:     0.04,
			SeedDecay:       0.97,
			SeedJitter:      0.075,
			PriceFloor:      1e-8,
			HistoryWindow:   50,
		},
		Ledger: Ledger{
			StartingBalance: 1000,
			ShockThreshold:  10,
		},
		Log: Log{
			Retention: 50,
		},
		Sim: Sim{
			TickInterval: 800 * time.Millisecond,
		},
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		Assets: DefaultAssets(),
	}
}

// DefaultAssets is the boot universe: four fictional coins priced so the
// user can feel rich in units while going broke in dollars.
func DefaultAssets() []AssetSpec {
	return []AssetSpec{
		{ID: "clawstr", Name: "Clawstr Coin", Ticker: "CLAW", StartPrice: 0.00420},
		{ID: "rugpull", Name: "RugPull Classic", Ticker: "RUG", StartPrice: 1.337},
		{ID: "moonboi", Name: "MoonBoi Inu", Ticker: "MOON", StartPrice: 0.069},
		{ID: "ponzu", Name: "Ponzu Protocol", Ticker: "PNZU", StartPrice: 13.37},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("SIM_TICK_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Sim.TickInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("LEDGER_STARTING_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Ledger.StartingBalance = f
		}
	}
	if v := os.Getenv("MARKET_PUMP_PROBABILITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.Market.PumpProbability = f
		}
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.API.Addr = v
	}

	return cfg
}
