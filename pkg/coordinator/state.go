package coordinator

import (
	"time"

	"github.com/cuemby/aaesync/pkg/types"
)

// State is the coordinator's single process-wide, single-writer state.
// It is mutated only from inside the coordinator's message loop.
type State struct {
	Scope types.Scope

	LocalNVal  int
	RemoteNVal int

	// Buckets is the rotating FIFO bucket list for scope=bucket. Index 0
	// is always the next bucket to drive; RotateBucket pops it and
	// appends it to the tail.
	Buckets []types.BucketID

	Wants        types.ScheduleWants
	pausedBackup *types.ScheduleWants
	Paused       bool

	Pending       []types.Allocation
	ScheduleStart time.Time
	SliceCount    int

	// Sink is the remote/destination cluster; Source is the local
	// cluster whose objects get pushed to it on divergence.
	Sink   types.Endpoint
	Source types.Endpoint

	QueueName string
}

// Pause saves the active wants to a backup and forces an all-NoSync
// schedule, returning an error if already paused.
func (s *State) Pause() error {
	if s.Paused {
		return errAlreadyPaused
	}
	backup := s.Wants
	s.pausedBackup = &backup
	s.Wants = types.ScheduleWants{NoSync: s.SliceCount}
	s.Paused = true
	return nil
}

// Resume restores the backed-up wants without regenerating the pending
// plan, returning an error if not paused.
func (s *State) Resume() error {
	if !s.Paused {
		return errNotPaused
	}
	s.Wants = *s.pausedBackup
	s.pausedBackup = nil
	s.Paused = false
	return nil
}

// RotateBucket pops the head bucket and appends it to the tail,
// returning the popped bucket. Callers must check len(Buckets) > 0.
func (s *State) RotateBucket() types.BucketID {
	head := s.Buckets[0]
	s.Buckets = append(s.Buckets[1:], head)
	return head
}

// HeadBucket returns the bucket the next Bucket-scope work item should
// drive, without rotating.
func (s *State) HeadBucket() (types.BucketID, bool) {
	if len(s.Buckets) == 0 {
		return types.BucketID{}, false
	}
	return s.Buckets[0], true
}
