// Package clients defines the capability interfaces the coordinator core
// consumes but does not implement end-to-end: the remote cluster's AAE
// HTTP surface, the local re-replication queue sink, and the cluster
// membership oracle. The core only calls these; it never reimplements
// Merkle tree math, replication, or membership consensus itself.
package clients

import (
	"context"
	"time"

	"github.com/cuemby/aaesync/pkg/types"
)

// TreeSize scales the Merkle tree built for a range comparison with the
// size of the time window being compared.
type TreeSize string

const (
	TreeSizeSmall  TreeSize = "small"
	TreeSizeMedium TreeSize = "medium"
	TreeSizeLarge  TreeSize = "large"
)

// KeyRange bounds a key comparison; a nil *KeyRange means "all keys".
type KeyRange struct {
	Start []byte
	End   []byte
}

// ModRange bounds a comparison by last-modified timestamp; a nil
// *ModRange means "all times".
type ModRange struct {
	Start time.Time
	End   time.Time
}

// SegmentFilter is what the HTTP client accepts: either "all segments" or
// an explicit segment list paired with the tree size used to build it.
type SegmentFilter struct {
	All      bool
	SegList  []int
	TreeSize TreeSize
}

// KeyClock is one (bucket, key, vector clock) triple as returned by the
// clocks endpoints. VClock is the clock's persisted wire form.
type KeyClock struct {
	Bucket types.BucketID
	Key    []byte
	VClock []byte
}

// Tree is an opaque imported Merkle tree handle, returned by RangeTree and
// handed back to the exchange engine for segment descent. The core never
// inspects its contents.
type Tree struct {
	Opaque []byte
}

// AAEClient is the remote (or local) cluster's AAE HTTP surface.
type AAEClient interface {
	// Ping checks basic reachability before an exchange is started.
	Ping(ctx context.Context) error

	MergeRoot(ctx context.Context, nval int) ([]byte, error)
	MergeBranches(ctx context.Context, nval int, branchIDs []int) ([][]byte, error)
	FetchClocks(ctx context.Context, nval int, segmentIDs []int) ([]KeyClock, error)

	RangeTree(ctx context.Context, bucket types.BucketID, keyRange *KeyRange, treeSize TreeSize, segFilter SegmentFilter, modRange *ModRange, hashMethod string) (Tree, error)
	RangeClocks(ctx context.Context, bucket types.BucketID, keyRange *KeyRange, segFilter SegmentFilter, modRange *ModRange) ([]KeyClock, error)

	// Close releases any underlying connection. Clients are opened fresh
	// per exchange, never pooled, per the coordinator's resource model.
	Close() error
}

// RepairEntry is one source-ahead key handed to the replication queue for
// re-replication. FetchMarker mirrors the engine's "to_fetch" sentinel so
// the queue consumer knows to fetch the object rather than expect an
// inline payload.
type RepairEntry struct {
	Bucket      types.BucketID
	Key         []byte
	SrcVClock   []byte
	FetchMarker string
}

// ReplicationQueue is the local re-replication sink. Enqueue is
// best-effort: a failure is logged by the caller but never retried here,
// since the queue owns its own persistence and retry policy.
type ReplicationQueue interface {
	Enqueue(ctx context.Context, queueName string, entries []RepairEntry) error
}

// Membership is the cluster membership oracle: enumerates up nodes and
// reports this node's identifier among them.
type Membership interface {
	UpNodes(ctx context.Context) ([]string, error)
	SelfNode(ctx context.Context) (string, error)
}
