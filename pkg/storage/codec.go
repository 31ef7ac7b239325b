package storage

import (
	"github.com/segmentio/encoding/json"

	"github.com/uhyunpark/l3sim/pkg/events"
)

func encodeEvent(e events.Event) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEvent(b []byte) (events.Event, error) {
	var e events.Event
	err := json.Unmarshal(b, &e)
	return e, err
}
