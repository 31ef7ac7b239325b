package events

import "go.uber.org/zap"

// Logging writes one debug line per event.
type Logging struct {
	log *zap.Logger
}

func NewLogging(log *zap.Logger) *Logging {
	return &Logging{log: log.Named("events")}
}

func (l *Logging) Record(e Event) error {
	fields := []zap.Field{
		zap.Uint64("seq", e.Seq),
		zap.Time("ts", e.Timestamp),
		zap.Float64("price", e.Price),
		zap.Int64("qty", e.Quantity),
	}
	if e.Type == TypeTrade {
		fields = append(fields,
			zap.String("buy_agent", e.BuyAgent),
			zap.String("sell_agent", e.SellAgent),
		)
	} else {
		fields = append(fields,
			zap.String("order_id", e.OrderID),
			zap.String("agent_id", e.AgentID),
			zap.String("side", e.Side),
		)
	}
	l.log.Debug(string(e.Type), fields...)
	return nil
}
