package dispatcher

import (
	"testing"
	"time"

	"github.com/cuemby/aaesync/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestDispatch_EmptyPendingRegeneratesPlan(t *testing.T) {
	now := time.Now()
	// Just under a day ago, so the start advanced by exactly one day lands
	// strictly after now.
	scheduleStart := now.Add(-24 * time.Hour).Add(time.Second)
	wants := types.ScheduleWants{NoSync: 100}
	node := types.NodeInfo{Ordinal: 1, Count: 8}

	kind, wait, remaining, newStart := Dispatch(nil, wants, scheduleStart, node, 100, now, discardLogger())

	assert.Equal(t, types.NoSync, kind)
	assert.Greater(t, wait, time.Duration(0))
	assert.True(t, newStart.After(now), "revised schedule start must be in the future")
	assert.Equal(t, scheduleStart.Add(DaySeconds), newStart)
	assert.Len(t, remaining, 99)
}

func TestDispatch_NodeStaggerMonotonic(t *testing.T) {
	now := time.Now()
	scheduleStart := now.Add(-24 * time.Hour)
	wants := types.ScheduleWants{NoSync: 100}

	_, wait1, _, _ := Dispatch(nil, wants, scheduleStart, types.NodeInfo{Ordinal: 1, Count: 8}, 100, now, discardLogger())
	_, wait2, _, _ := Dispatch(nil, wants, scheduleStart, types.NodeInfo{Ordinal: 2, Count: 8}, 100, now, discardLogger())
	_, wait7, _, _ := Dispatch(nil, wants, scheduleStart, types.NodeInfo{Ordinal: 7, Count: 8}, 100, now, discardLogger())

	assert.Greater(t, wait2, wait1)
	assert.Greater(t, wait7, wait2)
}

func TestDispatch_SkipsOverdueSlices(t *testing.T) {
	now := time.Now()
	node := types.NodeInfo{Ordinal: 1, Count: 1}
	sliceCount := 4
	// scheduleStart far enough in the past that slices 1 and 2 are overdue
	// but slice 3 still lies in the future.
	scheduleStart := now.Add(-DaySeconds * 2 / time.Duration(sliceCount))

	pending := []types.Allocation{
		{Slice: 1, Kind: types.NoSync},
		{Slice: 2, Kind: types.AllSync},
		{Slice: 3, Kind: types.DaySync},
		{Slice: 4, Kind: types.HourSync},
	}
	wants := types.ScheduleWants{NoSync: 1, AllSync: 1, DaySync: 1, HourSync: 1}

	kind, wait, remaining, newStart := Dispatch(pending, wants, scheduleStart, node, sliceCount, now, discardLogger())

	assert.Equal(t, types.DaySync, kind)
	assert.Greater(t, wait, time.Duration(0))
	assert.Equal(t, scheduleStart, newStart)
	require.Len(t, remaining, 1)
	assert.Equal(t, types.HourSync, remaining[0].Kind)
}

func TestFireTime_OrdinalOneHasNoOffset(t *testing.T) {
	start := time.Now()
	ft := FireTime(start, 1, types.NodeInfo{Ordinal: 1, Count: 8}, 100)
	sliceSeconds := DaySeconds / 100
	assert.Equal(t, start.Add(sliceSeconds), ft)
}
