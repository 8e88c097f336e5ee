// Package dispatcher picks the next due schedule slice and computes how
// long the coordinator should wait before firing it.
package dispatcher

import (
	"time"

	"github.com/cuemby/aaesync/pkg/metrics"
	"github.com/cuemby/aaesync/pkg/planner"
	"github.com/cuemby/aaesync/pkg/types"
	"github.com/rs/zerolog"
)

// DaySeconds is the length of one schedule set, as a duration.
const DaySeconds = 24 * time.Hour

// Dispatch returns the next due work item, how long to wait before firing
// it, the pending list with that allocation (and any skipped-overdue
// allocations) removed, and the schedule start to use on the next call.
//
// When pending is empty a fresh plan is drawn via planner.Plan and
// scheduleStart advances by exactly one day before the function recurses
// on the fresh plan. Overdue slices (fire time already in the past) are
// skipped rather than fired back-to-back, to avoid synchronized bursts
// across nodes once a node falls behind.
func Dispatch(
	pending []types.Allocation,
	wants types.ScheduleWants,
	scheduleStart time.Time,
	node types.NodeInfo,
	sliceCount int,
	now time.Time,
	logger zerolog.Logger,
) (kind types.WorkItemKind, wait time.Duration, remaining []types.Allocation, revisedStart time.Time) {
	if len(pending) == 0 {
		fresh := planner.Plan(wants)
		metrics.SchedulePlansGeneratedTotal.Inc()
		newStart := scheduleStart.Add(DaySeconds)
		logger.Debug().
			Time("schedule_start", newStart).
			Int("slice_count", sliceCount).
			Msg("pending list empty, drew fresh schedule plan")
		return Dispatch(fresh, wants, newStart, node, sliceCount, now, logger)
	}

	head, tail := pending[0], pending[1:]
	fire := FireTime(scheduleStart, head.Slice, node, sliceCount)
	if fire.After(now) {
		return head.Kind, fire.Sub(now), tail, scheduleStart
	}

	logger.Info().
		Int("slice", head.Slice).
		Str("kind", head.Kind.String()).
		Time("fire_time", fire).
		Msg("slice overdue, skipping rather than firing a catch-up burst")
	metrics.SlicesSkippedTotal.Inc()
	return Dispatch(tail, wants, scheduleStart, node, sliceCount, now, logger)
}

// FireTime returns the instant slice k is due to fire for the given node,
// staggered within its slice window by node ordinal so that nodeCount
// nodes sharing the same schedule do not all fire simultaneously.
func FireTime(scheduleStart time.Time, k int, node types.NodeInfo, sliceCount int) time.Time {
	sliceSeconds := DaySeconds / time.Duration(sliceCount)
	perNodeOffset := time.Duration(node.Ordinal-1) * (sliceSeconds / time.Duration(node.Count))
	return scheduleStart.Add(perNodeOffset).Add(time.Duration(k) * sliceSeconds)
}
