package storage

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/uhyunpark/l3sim/pkg/app/core/orderbook"
	"github.com/uhyunpark/l3sim/pkg/events"
)

// Journal writes one JSON event per line. Opening a journal truncates any
// previous run at the same path.
type Journal struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func NewJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &Journal{f: f, w: bufio.NewWriter(f)}, nil
}

func (j *Journal) Record(e events.Event) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %d: %w", e.Seq, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append event %d: %w", e.Seq, err)
	}
	return nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.w.Flush(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}

// journalRow reads the timestamp as text so bad values can be skipped
// instead of failing the whole file.
type journalRow struct {
	events.Event
	Timestamp string `json:"timestamp"`
}

// ReadJournal loads a journal written by Journal. Rows whose timestamp is
// missing or unparseable, and order rows without a valid side, are dropped
// and counted. Timestamps are normalized to UTC and sides to lower case. A
// line that is not JSON at all is an error.
func ReadJournal(path string) (rows []events.Event, dropped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var row journalRow
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, 0, fmt.Errorf("%s:%d: %w", path, n, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, row.Timestamp)
		if err != nil || ts.IsZero() {
			dropped++
			continue
		}
		e := row.Event
		e.Timestamp = ts.UTC()
		if e.Type != events.TypeTrade {
			side, err := orderbook.ParseSide(e.Side)
			if err != nil {
				dropped++
				continue
			}
			e.Side = side.String()
		}
		rows = append(rows, e)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	return rows, dropped, nil
}

var _ events.Sink = (*Journal)(nil)
