package events

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts events by type and traded volume.
type Metrics struct {
	Events       *prometheus.CounterVec
	TradedVolume prometheus.Counter
}

// NewMetrics builds the counters and registers them on reg (nil skips
// registration).
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "l3sim",
				Name:      "events_total",
				Help:      "Total number of order book events by type.",
			},
			[]string{"type"},
		),
		TradedVolume: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "l3sim",
				Name:      "traded_quantity_total",
				Help:      "Total quantity exchanged in trades.",
			},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Events, m.TradedVolume} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Record(e Event) error {
	m.Events.WithLabelValues(string(e.Type)).Inc()
	if e.Type == TypeTrade {
		m.TradedVolume.Add(float64(e.Quantity))
	}
	return nil
}
