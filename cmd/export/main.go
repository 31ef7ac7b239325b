// Command export converts an event journal into a parquet file.
package main

import (
	"flag"
	"log"

	"github.com/uhyunpark/l3sim/pkg/storage"
	"github.com/uhyunpark/l3sim/pkg/util"
)

func main() {
	in := flag.String("in", "data/events.jsonl", "journal to read")
	out := flag.String("out", "data/simulation_events.parquet", "parquet file to write")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logger, err := util.NewLogger(*verbose)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	rows, dropped, err := storage.ReadJournal(*in)
	if err != nil {
		sugar.Fatalw("journal_read_failed", "path", *in, "err", err)
	}
	if dropped > 0 {
		sugar.Warnw("rows_dropped", "reason", "invalid timestamp", "count", dropped)
	}

	n, err := storage.WriteParquet(*out, rows)
	if err != nil {
		sugar.Fatalw("parquet_write_failed", "path", *out, "err", err)
	}
	sugar.Infow("export_complete", "in", *in, "out", *out, "rows", n)
}
