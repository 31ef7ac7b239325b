package storage

import (
	"errors"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/uhyunpark/l3sim/pkg/events"
)

var ErrNoEvents = errors.New("no events to write")

// WriteParquet writes rows as a parquet file. Timestamps are normalized to
// UTC and rows without a timestamp are dropped. It returns how many rows
// were written.
func WriteParquet(path string, rows []events.Event) (int, error) {
	if len(rows) == 0 {
		return 0, ErrNoEvents
	}

	clean := make([]events.Event, 0, len(rows))
	for _, e := range rows {
		if e.Timestamp.IsZero() {
			continue
		}
		e.Timestamp = e.Timestamp.UTC()
		clean = append(clean, e)
	}

	if err := parquet.WriteFile(path, clean); err != nil {
		return 0, fmt.Errorf("write parquet %s: %w", path, err)
	}
	return len(clean), nil
}

// ReadParquet loads rows written by WriteParquet.
func ReadParquet(path string) ([]events.Event, error) {
	rows, err := parquet.ReadFile[events.Event](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}
