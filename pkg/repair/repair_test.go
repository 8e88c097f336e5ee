package repair

import (
	"context"
	"testing"

	"github.com/cuemby/aaesync/pkg/clients"
	"github.com/cuemby/aaesync/pkg/types"
	"github.com/cuemby/aaesync/pkg/vclock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	queueName string
	entries   []clients.RepairEntry
	err       error
}

func (f *fakeQueue) Enqueue(ctx context.Context, queueName string, entries []clients.RepairEntry) error {
	f.queueName = queueName
	f.entries = entries
	return f.err
}

func mustEncode(t *testing.T, counters map[string]int64) []byte {
	t.Helper()
	wire, err := vclock.Encode(&vclock.VClock{Counters: counters})
	require.NoError(t, err)
	return wire
}

func TestDecide_SinkAheadNotRequeued(t *testing.T) {
	queue := &fakeQueue{}
	bucket := types.BucketID{Bucket: []byte("b")}
	divergences := []Divergence{
		{
			Bucket:     bucket,
			Key:        []byte("k1"),
			SrcVClock:  mustEncode(t, map[string]int64{"a": 1}),
			SinkVClock: mustEncode(t, map[string]int64{"a": 2}),
		},
	}

	repaired, sinkAhead, err := Decide(context.Background(), "repl", queue, divergences, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 0, repaired)
	assert.Equal(t, 1, sinkAhead)
	assert.Empty(t, queue.entries)
}

func TestDecide_SourceAheadRequeued(t *testing.T) {
	queue := &fakeQueue{}
	bucket := types.BucketID{Bucket: []byte("b")}
	divergences := []Divergence{
		{
			Bucket:     bucket,
			Key:        []byte("k1"),
			SrcVClock:  mustEncode(t, map[string]int64{"a": 2}),
			SinkVClock: mustEncode(t, map[string]int64{"a": 1}),
		},
	}

	repaired, sinkAhead, err := Decide(context.Background(), "repl", queue, divergences, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	assert.Equal(t, 0, sinkAhead)
	require.Len(t, queue.entries, 1)
	assert.Equal(t, "repl", queue.queueName)
	assert.Equal(t, []byte("k1"), queue.entries[0].Key)
	assert.Equal(t, "to_fetch", queue.entries[0].FetchMarker)
}

func TestDecide_ConcurrentRequeued(t *testing.T) {
	queue := &fakeQueue{}
	divergences := []Divergence{
		{
			Key:        []byte("k1"),
			SrcVClock:  mustEncode(t, map[string]int64{"a": 1, "b": 0}),
			SinkVClock: mustEncode(t, map[string]int64{"a": 0, "b": 1}),
		},
	}

	repaired, sinkAhead, err := Decide(context.Background(), "repl", queue, divergences, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	assert.Equal(t, 0, sinkAhead)
}

func TestDecide_SinkMissingRequeued(t *testing.T) {
	queue := &fakeQueue{}
	divergences := []Divergence{
		{
			Key:        []byte("k1"),
			SrcVClock:  mustEncode(t, map[string]int64{"a": 1}),
			SinkVClock: nil,
		},
	}

	repaired, sinkAhead, err := Decide(context.Background(), "repl", queue, divergences, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	assert.Equal(t, 0, sinkAhead)
}

func TestDecide_SourceMissingSinkAhead(t *testing.T) {
	queue := &fakeQueue{}
	divergences := []Divergence{
		{
			Key:        []byte("k1"),
			SrcVClock:  nil,
			SinkVClock: mustEncode(t, map[string]int64{"a": 1}),
		},
	}

	repaired, sinkAhead, err := Decide(context.Background(), "repl", queue, divergences, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 0, repaired)
	assert.Equal(t, 1, sinkAhead)
	assert.Empty(t, queue.entries)
}

func TestDecide_QueueFailureDoesNotError(t *testing.T) {
	queue := &fakeQueue{err: assert.AnError}
	divergences := []Divergence{
		{
			Key:        []byte("k1"),
			SrcVClock:  mustEncode(t, map[string]int64{"a": 2}),
			SinkVClock: mustEncode(t, map[string]int64{"a": 1}),
		},
	}

	repaired, _, err := Decide(context.Background(), "repl", queue, divergences, zerolog.Nop())

	require.NoError(t, err, "a queue failure must not propagate as a repair-decider error")
	assert.Equal(t, 1, repaired)
}
