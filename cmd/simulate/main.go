package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/uhyunpark/l3sim/params"
	"github.com/uhyunpark/l3sim/pkg/app/sim"
	"github.com/uhyunpark/l3sim/pkg/storage"
)

func main() {
	envPath := flag.String("env", "", "path to .env file (default: .env in current directory)")
	flag.Parse()

	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv(*envPath)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Setup logging (console, plus file when LOG_FILE is set)
	logger, err := newLogger(cfg.Output)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	if cfg.Output.Verbose {
		sugar.Info("verbose logging enabled")
	}

	reg := prometheus.NewRegistry()
	app, err := sim.NewApp(cfg, logger, sim.WithRegisterer(reg))
	if err != nil {
		sugar.Fatalw("app_init_failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		sugar.Errorw("sim_failed", "err", runErr)
	}

	// whatever was recorded before an interrupt is still saved
	if _, err := app.Save(); err != nil && !errors.Is(err, storage.ErrNoEvents) {
		sugar.Errorw("save_failed", "path", cfg.Output.Parquet, "err", err)
	}
	if cfg.Output.Metrics != "" {
		if err := prometheus.WriteToTextfile(cfg.Output.Metrics, reg); err != nil {
			sugar.Errorw("metrics_write_failed", "path", cfg.Output.Metrics, "err", err)
		}
	}
	if err := app.Close(); err != nil {
		sugar.Errorw("sink_close_failed", "err", err)
	}

	fields := []any{
		"rounds", st.Rounds,
		"events", app.Recorder.Len(),
		"submitted", st.Submitted,
		"canceled", st.Canceled,
		"trades", st.Trades,
		"traded_qty", st.TradedQty,
		"resting", st.Resting,
	}
	if st.HasBid {
		fields = append(fields, "best_bid", app.Market.FromTicks(st.BestBid).String())
	}
	if st.HasAsk {
		fields = append(fields, "best_ask", app.Market.FromTicks(st.BestAsk).String())
	}
	sugar.Infow("sim_complete", fields...)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		os.Exit(1)
	}
}
