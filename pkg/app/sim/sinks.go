package sim

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/uhyunpark/l3sim/params"
	"github.com/uhyunpark/l3sim/pkg/events"
	"github.com/uhyunpark/l3sim/pkg/storage"
)

// outputs are the sinks built from configuration plus whatever must be
// closed when the run ends.
type outputs struct {
	sinks   []events.Sink
	closers []io.Closer
	metrics *events.Metrics
	store   *storage.EventStore
}

func (o *outputs) add(s events.Sink) {
	o.sinks = append(o.sinks, s)
	if c, ok := s.(io.Closer); ok {
		o.closers = append(o.closers, c)
	}
}

func (o *outputs) Close() error {
	var errs error
	for i := len(o.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, o.closers[i].Close())
	}
	o.closers = nil
	return errs
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// openOutputs builds the optional sinks. On failure, anything already
// opened is closed.
func openOutputs(cfg params.Output, reg prometheus.Registerer) (_ *outputs, err error) {
	o := &outputs{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, o.Close())
		}
	}()

	if reg != nil {
		m, err := events.NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		o.metrics = m
		o.add(m)
	}

	if cfg.Journal != "" {
		if err := ensureDir(cfg.Journal); err != nil {
			return nil, err
		}
		j, err := storage.NewJournal(cfg.Journal)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		o.add(j)
	}

	if cfg.PebbleDir != "" {
		s, err := storage.NewEventStore(cfg.PebbleDir)
		if err != nil {
			return nil, err
		}
		o.store = s
		o.add(s)
		if err := s.Reset(); err != nil {
			return nil, err
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		o.add(events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	}

	return o, nil
}
