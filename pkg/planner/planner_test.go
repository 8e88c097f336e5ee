package planner

import (
	"testing"

	"github.com/cuemby/aaesync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_AllNoSync(t *testing.T) {
	wants := types.ScheduleWants{NoSync: 100}
	plan := Plan(wants)

	require.Len(t, plan, 100)
	for i, alloc := range plan {
		assert.Equal(t, i+1, alloc.Slice)
		assert.Equal(t, types.NoSync, alloc.Kind)
	}
}

func TestPlan_AllAllSync(t *testing.T) {
	wants := types.ScheduleWants{AllSync: 100}
	plan := Plan(wants)

	require.Len(t, plan, 100)
	for i, alloc := range plan {
		assert.Equal(t, i+1, alloc.Slice)
		assert.Equal(t, types.AllSync, alloc.Kind)
	}
}

func TestPlan_MixedQuotas(t *testing.T) {
	wants := types.ScheduleWants{NoSync: 0, AllSync: 1, DaySync: 4, HourSync: 95}
	plan := Plan(wants)

	require.Len(t, plan, 100)

	var hourCount int
	var maxHourSlice int
	for _, alloc := range plan {
		if alloc.Kind == types.HourSync {
			hourCount++
			if alloc.Slice > maxHourSlice {
				maxHourSlice = alloc.Slice
			}
		}
	}

	assert.Equal(t, 95, hourCount)
	assert.GreaterOrEqual(t, maxHourSlice, 95)
}

func TestPlan_CompletenessAndSorting(t *testing.T) {
	wants := types.ScheduleWants{NoSync: 10, AllSync: 7, DaySync: 3, HourSync: 5}
	plan := Plan(wants)

	require.Len(t, plan, wants.SliceCount())

	seen := make(map[int]bool, len(plan))
	counts := map[types.WorkItemKind]int{}
	for i, alloc := range plan {
		assert.False(t, seen[alloc.Slice], "slice %d repeated", alloc.Slice)
		seen[alloc.Slice] = true
		counts[alloc.Kind]++

		if i > 0 {
			assert.Less(t, plan[i-1].Slice, alloc.Slice, "plan must be strictly increasing by slice")
		}
	}

	assert.Equal(t, wants.NoSync, counts[types.NoSync])
	assert.Equal(t, wants.AllSync, counts[types.AllSync])
	assert.Equal(t, wants.DaySync, counts[types.DaySync])
	assert.Equal(t, wants.HourSync, counts[types.HourSync])

	for slice := 1; slice <= wants.SliceCount(); slice++ {
		assert.True(t, seen[slice], "slice %d missing from plan", slice)
	}
}

func TestPlan_SingleSlice(t *testing.T) {
	wants := types.ScheduleWants{AllSync: 1}
	plan := Plan(wants)

	require.Len(t, plan, 1)
	assert.Equal(t, types.Allocation{Slice: 1, Kind: types.AllSync}, plan[0])
}
