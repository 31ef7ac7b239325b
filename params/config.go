package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	ClockSim  = "sim"
	ClockReal = "real"
)

type Sim struct {
	Rounds       int
	Seed         int64
	NoiseTraders int
	SpoofTraders int
	SpoofLayers  int
	// Interval paces rounds; zero runs them back to back.
	Interval time.Duration

	// Clock selects timestamps: "sim" advances ClockStep per reading from
	// Start, "real" reads the wall clock.
	Clock     string
	ClockStep time.Duration
	Start     time.Time
}

type Market struct {
	Symbol   string
	TickSize decimal.Decimal
	LotSize  int64
	// EnforceRules installs the market's lot and size checks on the book.
	EnforceRules bool
}

type Output struct {
	Parquet   string // empty disables
	Journal   string // empty disables
	PebbleDir string // empty disables
	Metrics   string // prometheus textfile, empty disables
	Kafka     Kafka
	LogFile   string
	Verbose   bool
}

type Kafka struct {
	Brokers []string // empty disables
	Topic   string
}

type Config struct {
	Sim    Sim
	Market Market
	Output Output
}

func Default() Config {
	return Config{
		Sim: Sim{
			Rounds:       500,
			Seed:         1,
			NoiseTraders: 5,
			SpoofTraders: 1,
			SpoofLayers:  3,
			Clock:        ClockSim,
			ClockStep:    time.Millisecond,
			Start:        time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC),
		},
		Market: Market{
			Symbol:   "SIM",
			TickSize: decimal.RequireFromString("0.01"),
			LotSize:  1,
		},
		Output: Output{
			Parquet: "data/simulation_events.parquet",
			Kafka:   Kafka{Topic: "l3sim.events"},
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
// Values that fail to parse leave the default in place.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	envInt("SIM_ROUNDS", &cfg.Sim.Rounds)
	envInt64("SIM_SEED", &cfg.Sim.Seed)
	envInt("SIM_NOISE_TRADERS", &cfg.Sim.NoiseTraders)
	envInt("SIM_SPOOF_TRADERS", &cfg.Sim.SpoofTraders)
	envInt("SIM_SPOOF_LAYERS", &cfg.Sim.SpoofLayers)
	envMillis("SIM_INTERVAL_MS", &cfg.Sim.Interval)
	envMillis("SIM_CLOCK_STEP_MS", &cfg.Sim.ClockStep)
	if clock := os.Getenv("SIM_CLOCK"); clock != "" {
		cfg.Sim.Clock = strings.ToLower(clock)
	}
	if start := os.Getenv("SIM_START"); start != "" {
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			cfg.Sim.Start = t.UTC()
		}
	}

	cfg.Market.Symbol = getEnv("MARKET_SYMBOL", cfg.Market.Symbol)
	if tick := os.Getenv("MARKET_TICK_SIZE"); tick != "" {
		if d, err := decimal.NewFromString(tick); err == nil {
			cfg.Market.TickSize = d
		}
	}
	envInt64("MARKET_LOT_SIZE", &cfg.Market.LotSize)
	envBool("MARKET_ENFORCE_RULES", &cfg.Market.EnforceRules)

	cfg.Output.Parquet = getEnv("OUTPUT_PARQUET", cfg.Output.Parquet)
	cfg.Output.Journal = getEnv("OUTPUT_JOURNAL", cfg.Output.Journal)
	cfg.Output.PebbleDir = getEnv("OUTPUT_PEBBLE_DIR", cfg.Output.PebbleDir)
	cfg.Output.Metrics = getEnv("OUTPUT_METRICS", cfg.Output.Metrics)
	cfg.Output.LogFile = getEnv("LOG_FILE", cfg.Output.LogFile)
	envBool("VERBOSE", &cfg.Output.Verbose)

	// Brokers from comma-separated list
	// Example: "localhost:9092,localhost:9093"
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Output.Kafka.Brokers = nil
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Output.Kafka.Brokers = append(cfg.Output.Kafka.Brokers, b)
			}
		}
	}
	cfg.Output.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Output.Kafka.Topic)

	return cfg
}

// Validate rejects configurations the simulator cannot run.
func (c Config) Validate() error {
	if c.Sim.Rounds < 0 {
		return fmt.Errorf("rounds must not be negative: %d", c.Sim.Rounds)
	}
	if c.Sim.NoiseTraders < 0 || c.Sim.SpoofTraders < 0 {
		return fmt.Errorf("trader counts must not be negative")
	}
	if c.Sim.NoiseTraders+c.Sim.SpoofTraders == 0 {
		return fmt.Errorf("at least one trader is required")
	}
	if c.Sim.SpoofLayers <= 0 {
		return fmt.Errorf("spoof layers must be positive: %d", c.Sim.SpoofLayers)
	}
	if c.Sim.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	switch c.Sim.Clock {
	case ClockSim:
		if c.Sim.ClockStep <= 0 {
			return fmt.Errorf("sim clock step must be positive")
		}
	case ClockReal:
	default:
		return fmt.Errorf("unknown clock %q (want %s or %s)", c.Sim.Clock, ClockSim, ClockReal)
	}
	if c.Market.Symbol == "" {
		return fmt.Errorf("market symbol cannot be empty")
	}
	if !c.Market.TickSize.IsPositive() {
		return fmt.Errorf("tick size must be positive: %s", c.Market.TickSize)
	}
	if c.Market.LotSize <= 0 {
		return fmt.Errorf("lot size must be positive: %d", c.Market.LotSize)
	}
	if len(c.Output.Kafka.Brokers) > 0 && c.Output.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic required when brokers are set")
	}
	return nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envMillis(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(ms) * time.Millisecond
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}
