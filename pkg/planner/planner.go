// Package planner lays out a day's worth of schedule slices.
//
// Plan draws, for each work item kind in turn, that kind's quota of slice
// indices uniformly at random without replacement from the remaining pool,
// then sorts the result by slice index. The kind order only affects which
// random draws land on which kind — not the resulting distribution, since
// the whole draw is equivalent to a uniform random permutation of the
// quota multiset.
package planner

import (
	"math/rand/v2"
	"sort"

	"github.com/cuemby/aaesync/pkg/types"
)

// Plan returns a list of allocations of length wants.SliceCount(), with
// slice indices 1..SliceCount each appearing exactly once and the kind
// frequencies matching wants, sorted ascending by slice index.
func Plan(wants types.ScheduleWants) []types.Allocation {
	sliceCount := wants.SliceCount()
	remaining := make([]int, sliceCount)
	for i := range remaining {
		remaining[i] = i + 1
	}

	draws := []struct {
		kind  types.WorkItemKind
		count int
	}{
		{types.NoSync, wants.NoSync},
		{types.AllSync, wants.AllSync},
		{types.DaySync, wants.DaySync},
		{types.HourSync, wants.HourSync},
	}

	allocations := make([]types.Allocation, 0, sliceCount)
	for _, d := range draws {
		for i := 0; i < d.count; i++ {
			j := rand.IntN(len(remaining))
			slice := remaining[j]
			remaining[j] = remaining[len(remaining)-1]
			remaining = remaining[:len(remaining)-1]
			allocations = append(allocations, types.Allocation{Slice: slice, Kind: d.kind})
		}
	}

	sort.Slice(allocations, func(i, j int) bool {
		return allocations[i].Slice < allocations[j].Slice
	})
	return allocations
}
