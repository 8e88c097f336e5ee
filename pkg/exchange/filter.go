package exchange

import "github.com/cuemby/aaesync/pkg/clients"

// EngineSegmentFilter is the shape an exchange engine emits when asking
// for a tree merge or a clock fetch over a segment subset: either "all
// segments" or an explicit segment list alongside the raw segment ids
// the engine tracked internally. The HTTP AAE client only cares about
// the segment list and tree size, so Adapt drops the engine-internal
// Segments field.
type EngineSegmentFilter struct {
	All      bool
	Segments []int
	SegList  []int
	TreeSize clients.TreeSize
}

// Adapt rewrites an engine-shaped segment filter into the shape the
// wire client expects.
func Adapt(e EngineSegmentFilter) clients.SegmentFilter {
	if e.All {
		return clients.SegmentFilter{All: true}
	}
	return clients.SegmentFilter{SegList: e.SegList, TreeSize: e.TreeSize}
}
