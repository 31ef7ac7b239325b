package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/uhyunpark/l3sim/pkg/events"
)

// EventStore persists event rows in Pebble, keyed by sequence number.
type EventStore struct {
	db *pebble.DB
}

func NewEventStore(path string) (*EventStore, error) {
	return OpenEventStore(path, nil)
}

// OpenEventStore opens the store on fs (nil means the OS filesystem).
func OpenEventStore(path string, fs vfs.FS) (*EventStore, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	return &EventStore{db: db}, nil
}

func (s *EventStore) Close() error { return s.db.Close() }

// Reset deletes every event and index entry. Sequence numbers restart with
// each run, so a reused directory must be cleared before recording.
func (s *EventStore) Reset() error {
	for _, prefix := range [][]byte{[]byte(prefixEvent), []byte(prefixAgent)} {
		if err := s.db.DeleteRange(prefix, keyUpperBound(prefix), pebble.Sync); err != nil {
			return fmt.Errorf("failed to clear %q: %w", prefix, err)
		}
	}
	return nil
}

// SaveEvent writes the row and its agent index entries in one batch.
func (s *EventStore) SaveEvent(e events.Event) error {
	data, err := encodeEvent(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	b := s.db.NewBatch()
	defer b.Close()

	if err := b.Set(eventKey(e.Seq), data, nil); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	for _, agent := range agentsOf(e) {
		if err := b.Set(agentKey(agent, e.Seq), nil, nil); err != nil {
			return fmt.Errorf("failed to index event: %w", err)
		}
	}
	if err := b.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// Record makes the store an events.Sink.
func (s *EventStore) Record(e events.Event) error { return s.SaveEvent(e) }

func agentsOf(e events.Event) []string {
	if e.Type != events.TypeTrade {
		return []string{e.AgentID}
	}
	if e.BuyAgent == e.SellAgent {
		return []string{e.BuyAgent}
	}
	return []string{e.BuyAgent, e.SellAgent}
}

// LoadEvent loads one event by sequence number
// Returns false if it doesn't exist
func (s *EventStore) LoadEvent(seq uint64) (events.Event, bool, error) {
	data, closer, err := s.db.Get(eventKey(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return events.Event{}, false, nil
	}
	if err != nil {
		return events.Event{}, false, fmt.Errorf("failed to get event: %w", err)
	}
	defer closer.Close()

	e, err := decodeEvent(data)
	if err != nil {
		return events.Event{}, false, fmt.Errorf("failed to unmarshal event %d: %w", seq, err)
	}
	return e, true, nil
}

// LoadEvents returns every stored event in sequence order.
func (s *EventStore) LoadEvents() ([]events.Event, error) {
	prefix := []byte(prefixEvent)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []events.Event
	for iter.First(); iter.Valid(); iter.Next() {
		e, err := decodeEvent(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal event %d: %w", seqFromKey(iter.Key()), err)
		}
		out = append(out, e)
	}
	return out, iter.Error()
}

// LoadAgentEvents returns the events an agent took part in, in sequence order.
func (s *EventStore) LoadAgentEvents(agent string) ([]events.Event, error) {
	prefix := agentPrefix(agent)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []events.Event
	for iter.First(); iter.Valid(); iter.Next() {
		seq := seqFromKey(iter.Key())
		e, ok, err := s.LoadEvent(seq)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, iter.Error()
}

// Count returns the number of stored events.
func (s *EventStore) Count() (int, error) {
	prefix := []byte(prefixEvent)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, iter.Error()
}

// Flush forces buffered writes to disk.
func (s *EventStore) Flush() error { return s.db.Flush() }

var _ events.Sink = (*EventStore)(nil)
