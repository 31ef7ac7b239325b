package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/l3sim/pkg/events"
)

var base = time.Date(2024, 6, 3, 13, 30, 0, 0, time.UTC)

func sampleEvents() []events.Event {
	return []events.Event{
		{Seq: 1, Timestamp: base, Type: events.TypeNew, OrderID: "s1", AgentID: "noise_0", Side: "sell", Price: 100.1, PriceTicks: 10010, Quantity: 5},
		{Seq: 2, Timestamp: base.Add(time.Millisecond), Type: events.TypeNew, OrderID: "b1", AgentID: "spoof_1", Side: "buy", Price: 100.2, PriceTicks: 10020, Quantity: 3},
		{Seq: 3, Timestamp: base.Add(2 * time.Millisecond), Type: events.TypeTrade, Price: 100.1, PriceTicks: 10010, Quantity: 3,
			BuyOrder: "b1", SellOrder: "s1", BuyAgent: "spoof_1", SellAgent: "noise_0"},
		{Seq: 4, Timestamp: base.Add(3 * time.Millisecond), Type: events.TypeCancel, OrderID: "s1", AgentID: "noise_0", Side: "sell", Price: 100.1, PriceTicks: 10010, Quantity: 2},
	}
}

func openMemStore(t *testing.T) *EventStore {
	t.Helper()
	s, err := OpenEventStore("events", vfs.NewMem())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEventStoreRoundTrip(t *testing.T) {
	s := openMemStore(t)
	// out of order on purpose; keys sort by seq
	evs := sampleEvents()
	for _, i := range []int{2, 0, 3, 1} {
		require.NoError(t, s.Record(evs[i]))
	}

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := s.LoadEvents()
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := range got {
		assert.Equal(t, evs[i].Seq, got[i].Seq)
		assert.True(t, evs[i].Timestamp.Equal(got[i].Timestamp))
		assert.Equal(t, evs[i].Type, got[i].Type)
	}

	e, ok, err := s.LoadEvent(3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "spoof_1", e.BuyAgent)

	_, ok, err = s.LoadEvent(99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEventStoreAgentIndex(t *testing.T) {
	s := openMemStore(t)
	for _, e := range sampleEvents() {
		require.NoError(t, s.SaveEvent(e))
	}

	noise, err := s.LoadAgentEvents("noise_0")
	require.NoError(t, err)
	seqs := make([]uint64, len(noise))
	for i, e := range noise {
		seqs[i] = e.Seq
	}
	assert.Equal(t, []uint64{1, 3, 4}, seqs)

	spoof, err := s.LoadAgentEvents("spoof_1")
	require.NoError(t, err)
	assert.Len(t, spoof, 2)

	none, err := s.LoadAgentEvents("noise_1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEventKeysSortBySeq(t *testing.T) {
	assert.Less(t, string(eventKey(255)), string(eventKey(256)))
	assert.Equal(t, uint64(12345), seqFromKey(eventKey(12345)))
	assert.Equal(t, []byte("a:x;"), keyUpperBound([]byte("a:x:")))
}

func TestJournalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	j, err := NewJournal(path)
	require.NoError(t, err)
	for _, e := range sampleEvents() {
		require.NoError(t, j.Record(e))
	}
	require.NoError(t, j.Close())

	got, dropped, err := ReadJournal(path)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, got, 4)
	assert.Equal(t, "b1", got[2].BuyOrder)
	assert.True(t, base.Equal(got[0].Timestamp))
	assert.Equal(t, time.UTC, got[0].Timestamp.Location())
}

func TestReadJournalDropsBadTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := `{"seq":1,"timestamp":"2024-06-03T15:30:00+02:00","event_type":"NEW","order_id":"a","side":"BUY"}
{"seq":2,"timestamp":"not a time","event_type":"NEW","order_id":"b","side":"buy"}

{"seq":3,"event_type":"NEW","order_id":"c","side":"sell"}
{"seq":4,"timestamp":"2024-06-03T13:30:01Z","event_type":"CANCEL","order_id":"a","side":"buy"}
{"seq":5,"timestamp":"2024-06-03T13:30:02Z","event_type":"NEW","order_id":"d","side":"hold"}
{"seq":6,"timestamp":"2024-06-03T13:30:03Z","event_type":"TRADE","buy_agent":"x","sell_agent":"y"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, dropped, err := ReadJournal(path)
	require.NoError(t, err)
	assert.Equal(t, 3, dropped)
	require.Len(t, got, 3)
	assert.True(t, base.Equal(got[0].Timestamp))
	assert.Equal(t, "buy", got[0].Side)
	assert.Equal(t, uint64(4), got[1].Seq)
	assert.Equal(t, uint64(6), got[2].Seq)
}

func TestReadJournalRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"seq\":1}\nnot json\n"), 0o644))

	_, _, err := ReadJournal(path)
	assert.ErrorContains(t, err, ":2:")
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.parquet")
	evs := sampleEvents()
	// a zero timestamp is dropped, a non-UTC one is normalized
	evs = append(evs, events.Event{Seq: 5, Type: events.TypeNew, OrderID: "z"})
	evs[1].Timestamp = evs[1].Timestamp.In(time.FixedZone("EST", -5*3600))

	n, err := WriteParquet(path, evs)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := ReadParquet(path)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, e := range got {
		assert.Equal(t, uint64(i+1), e.Seq)
		assert.True(t, evs[i].Timestamp.Equal(e.Timestamp), "row %d", i)
	}
	assert.Equal(t, events.TypeTrade, got[2].Type)
	assert.Equal(t, "noise_0", got[2].SellAgent)
	assert.Equal(t, int64(10010), got[2].PriceTicks)
	assert.Empty(t, got[2].OrderID)
	assert.Equal(t, 100.2, got[1].Price)
}

func TestWriteParquetRejectsEmpty(t *testing.T) {
	_, err := WriteParquet(filepath.Join(t.TempDir(), "x.parquet"), nil)
	assert.ErrorIs(t, err, ErrNoEvents)
}

func TestEventStoreResetClearsPreviousRun(t *testing.T) {
	fs := vfs.NewMem()

	first, err := OpenEventStore("events", fs)
	require.NoError(t, err)
	require.NoError(t, first.Record(events.Event{Seq: 1, Timestamp: base, Type: events.TypeNew, OrderID: "a", AgentID: "noise_0"}))
	require.NoError(t, first.Close())

	second, err := OpenEventStore("events", fs)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	// without a reset the old run is still there
	n, err := second.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, second.Reset())
	require.NoError(t, second.Record(events.Event{Seq: 1, Timestamp: base, Type: events.TypeNew, OrderID: "b", AgentID: "spoof_1"}))

	noise, err := second.LoadAgentEvents("noise_0")
	require.NoError(t, err)
	assert.Empty(t, noise)

	spoof, err := second.LoadAgentEvents("spoof_1")
	require.NoError(t, err)
	require.Len(t, spoof, 1)
	assert.Equal(t, "b", spoof[0].OrderID)

	n, err = second.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJournalTruncatesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	for run := 0; run < 2; run++ {
		j, err := NewJournal(path)
		require.NoError(t, err)
		for _, e := range sampleEvents() {
			require.NoError(t, j.Record(e))
		}
		require.NoError(t, j.Close())
	}

	got, _, err := ReadJournal(path)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, e := range got {
		assert.Equal(t, uint64(i+1), e.Seq)
	}
}
