package types

import "time"

// WorkItemKind is the unit of work a schedule slice resolves to.
type WorkItemKind string

const (
	NoSync   WorkItemKind = "no_sync"
	AllSync  WorkItemKind = "all_sync"
	DaySync  WorkItemKind = "day_sync"
	HourSync WorkItemKind = "hour_sync"
)

func (k WorkItemKind) String() string { return string(k) }

// Scope selects how the coordinator partitions the key-space it compares.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeBucket   Scope = "bucket"
	ScopeDisabled Scope = "disabled"
)

// ScheduleWants is the ordered quota tuple (noSync, allSync, daySync, hourSync).
type ScheduleWants struct {
	NoSync   int
	AllSync  int
	DaySync  int
	HourSync int
}

// SliceCount returns the sum of the four quotas, i.e. the length of a
// freshly generated plan.
func (w ScheduleWants) SliceCount() int {
	return w.NoSync + w.AllSync + w.DaySync + w.HourSync
}

// Allocation pairs a 1-based slice index with the work item dispatched there.
type Allocation struct {
	Slice int
	Kind  WorkItemKind
}

// NodeInfo is this node's position among the currently up nodes.
type NodeInfo struct {
	Ordinal int // 1-based
	Count   int
}

// Endpoint describes a reachable cluster, local or remote.
type Endpoint struct {
	Protocol string
	IP       string
	Port     int
}

// BucketID identifies one bucket in Bucket scope; Bucket and BucketType
// together form a single logical identifier, per the pair's storage
// convention in the source cluster.
type BucketID struct {
	Bucket     []byte
	BucketType []byte
}

func (b BucketID) String() string {
	if len(b.BucketType) == 0 {
		return string(b.Bucket)
	}
	return string(b.BucketType) + "/" + string(b.Bucket)
}

// ExchangeRecord is the operator-facing summary of one driven exchange,
// persisted by pkg/store so the in-memory coordinator state can stay
// transient per the spec's process lifecycle.
type ExchangeRecord struct {
	ExchangeID   string
	Kind         WorkItemKind
	Scope        Scope
	Bucket       *BucketID
	StartedAt    time.Time
	FinishedAt   time.Time
	RepairCount  int
	SinkAhead    int
	Crashed      bool
	RejectReason string // set when the exchange never started
	Error        string
}
