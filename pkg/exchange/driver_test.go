package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/aaesync/pkg/clients"
	"github.com/cuemby/aaesync/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAAEClient struct {
	pingErr     error
	root        []byte
	clocks      []clients.KeyClock
	tree        clients.Tree
	rangeClocks []clients.KeyClock
	closed      bool
}

func (f *fakeAAEClient) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeAAEClient) MergeRoot(ctx context.Context, nval int) ([]byte, error) {
	return f.root, nil
}
func (f *fakeAAEClient) MergeBranches(ctx context.Context, nval int, branchIDs []int) ([][]byte, error) {
	return nil, nil
}
func (f *fakeAAEClient) FetchClocks(ctx context.Context, nval int, segmentIDs []int) ([]clients.KeyClock, error) {
	return f.clocks, nil
}
func (f *fakeAAEClient) RangeTree(ctx context.Context, bucket types.BucketID, keyRange *clients.KeyRange, treeSize clients.TreeSize, segFilter clients.SegmentFilter, modRange *clients.ModRange, hashMethod string) (clients.Tree, error) {
	return f.tree, nil
}
func (f *fakeAAEClient) RangeClocks(ctx context.Context, bucket types.BucketID, keyRange *clients.KeyRange, segFilter clients.SegmentFilter, modRange *clients.ModRange) ([]clients.KeyClock, error) {
	return f.rangeClocks, nil
}
func (f *fakeAAEClient) Close() error { f.closed = true; return nil }

type fakeQueue struct {
	entries []clients.RepairEntry
}

func (f *fakeQueue) Enqueue(ctx context.Context, queueName string, entries []clients.RepairEntry) error {
	f.entries = append(f.entries, entries...)
	return nil
}

func newTestDriver(t *testing.T, local, remote *fakeAAEClient, queue clients.ReplicationQueue) *Driver {
	t.Helper()
	d := NewDriver(queue, nil, zerolog.Nop())
	calls := 0
	d.newClient = func(ep types.Endpoint) clients.AAEClient {
		calls++
		if calls == 1 {
			return remote
		}
		return local
	}
	return d
}

func TestDriver_AllScopeMatchingRootsNoDivergence(t *testing.T) {
	root := []byte("same-root")
	local := &fakeAAEClient{root: root}
	remote := &fakeAAEClient{root: root}
	queue := &fakeQueue{}
	d := newTestDriver(t, local, remote, queue)

	handle, err := d.Start(context.Background(), StartParams{
		Scope: types.ScopeAll, Kind: types.AllSync,
		LocalNVal: 3, RemoteNVal: 3, Now: time.Now(),
	})
	require.NoError(t, err)

	result := <-handle.Done
	require.NoError(t, result.Err)
	assert.Equal(t, 0, result.Repaired)
	assert.Equal(t, 0, result.SinkAhead)
	assert.Empty(t, queue.entries)
}

func TestDriver_AllScopeDivergingRootsRequeuesSourceAhead(t *testing.T) {
	bucket := types.BucketID{Bucket: []byte("b")}
	local := &fakeAAEClient{
		root: []byte("local-root"),
		clocks: []clients.KeyClock{
			{Bucket: bucket, Key: []byte("k1"), VClock: []byte("v1-old")},
		},
	}
	remote := &fakeAAEClient{
		root: []byte("remote-root"),
		clocks: []clients.KeyClock{
			{Bucket: bucket, Key: []byte("k1"), VClock: []byte("v1-new")},
			{Bucket: bucket, Key: []byte("k2"), VClock: []byte("v2")},
		},
	}
	queue := &fakeQueue{}
	d := newTestDriver(t, local, remote, queue)

	handle, err := d.Start(context.Background(), StartParams{
		Scope: types.ScopeAll, Kind: types.AllSync,
		LocalNVal: 3, RemoteNVal: 3, QueueName: "repl", Now: time.Now(),
	})
	require.NoError(t, err)

	result := <-handle.Done
	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Repaired)
	require.Len(t, queue.entries, 2)
}

func TestDriver_RemoteUnreachableRejectsBeforeStart(t *testing.T) {
	local := &fakeAAEClient{}
	remote := &fakeAAEClient{pingErr: assert.AnError}
	queue := &fakeQueue{}
	d := newTestDriver(t, local, remote, queue)

	handle, err := d.Start(context.Background(), StartParams{
		Scope: types.ScopeAll, Kind: types.AllSync,
		LocalNVal: 3, RemoteNVal: 3, Now: time.Now(),
	})

	require.Error(t, err)
	assert.Nil(t, handle)
}

func TestDriver_BucketScopeMatchingTreesNoDivergence(t *testing.T) {
	tree := clients.Tree{Opaque: []byte("same")}
	local := &fakeAAEClient{tree: tree}
	remote := &fakeAAEClient{tree: tree}
	queue := &fakeQueue{}
	d := newTestDriver(t, local, remote, queue)

	handle, err := d.Start(context.Background(), StartParams{
		Scope:  types.ScopeBucket,
		Kind:   types.HourSync,
		Bucket: types.BucketID{Bucket: []byte("b")},
		Now:    time.Now(),
	})
	require.NoError(t, err)

	result := <-handle.Done
	require.NoError(t, result.Err)
	assert.Equal(t, 0, result.Repaired)
	assert.Equal(t, 0, result.SinkAhead)
}

func TestDriver_RejectedPlanNeverPingsClusters(t *testing.T) {
	local := &fakeAAEClient{}
	remote := &fakeAAEClient{}
	queue := &fakeQueue{}
	d := newTestDriver(t, local, remote, queue)

	handle, err := d.Start(context.Background(), StartParams{
		Scope: types.ScopeAll, Kind: types.HourSync, Now: time.Now(),
	})

	require.Error(t, err)
	assert.Nil(t, handle)
	assert.False(t, local.closed)
	assert.False(t, remote.closed)
}
