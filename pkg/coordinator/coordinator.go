// Package coordinator holds the coordinator state machine: a single
// goroutine that serializes pause/resume/reconfigure control calls
// against the timer-driven dispatch of schedule slices and the
// lifecycle of whichever AAE exchange is currently in flight.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/aaesync/pkg/clients"
	"github.com/cuemby/aaesync/pkg/dispatcher"
	"github.com/cuemby/aaesync/pkg/exchange"
	"github.com/cuemby/aaesync/pkg/metrics"
	"github.com/cuemby/aaesync/pkg/types"
	"github.com/rs/zerolog"
)

// Timeouts named per the coordinator's message table.
const (
	InitialTimeout = 60 * time.Second
	LoopTimeout    = 15 * time.Second
	CrashTimeout   = 3600 * time.Second
)

var (
	errAlreadyPaused = errors.New("already_paused")
	errNotPaused     = errors.New("not_paused")
)

// mode tracks what the armed timer currently means.
type mode int

const (
	modeIdle mode = iota
	modeArmed
	modeExchange
)

// ControlResult is the synchronous reply to a control-API call.
type ControlResult struct {
	Err error
}

func (r ControlResult) OK() bool { return r.Err == nil }

type controlMsg struct {
	apply   func(*Coordinator, *time.Timer) error
	replyTo chan<- ControlResult
}

// exchangeDone tags a finished exchange with the generation it was
// started under, so a reply arriving after a crash-timeout supersedes
// it is recognized as stale and dropped rather than double-arming the
// next slice.
type exchangeDone struct {
	generation uint64
	result     exchange.Result
}

// Coordinator is the actor. All fields below are only ever touched from
// inside Run's goroutine, except the control and done channels and the
// reqMu-guarded reqResults map.
type Coordinator struct {
	state      State
	membership clients.Membership
	driver     *exchange.Driver
	logger     zerolog.Logger

	control chan controlMsg
	done    chan exchangeDone

	mode       mode
	armedKind  types.WorkItemKind // the work item fired when a modeArmed timer expires
	generation uint64

	reqMu      sync.Mutex
	reqResults map[string]chan exchange.Result
}

// Deps bundles the collaborators the coordinator needs beyond its own
// state.
type Deps struct {
	Membership clients.Membership
	Driver     *exchange.Driver
	Logger     zerolog.Logger
}

// New builds a coordinator from its initial state and collaborators.
func New(initial State, deps Deps) *Coordinator {
	return &Coordinator{
		state:      initial,
		membership: deps.Membership,
		driver:     deps.Driver,
		logger:     deps.Logger,
		control:    make(chan controlMsg),
		done:       make(chan exchangeDone, 1),
		reqResults: make(map[string]chan exchange.Result),
	}
}

// Run is the coordinator's message loop. It blocks until ctx is
// cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	timer := time.NewTimer(InitialTimeout)
	defer timer.Stop()
	c.mode = modeIdle

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C:
			c.handleTimeout(ctx, timer)

		case msg := <-c.control:
			err := msg.apply(c, timer)
			if msg.replyTo != nil {
				msg.replyTo <- ControlResult{Err: err}
			}

		case done := <-c.done:
			c.handleExchangeDone(done, timer)
		}
	}
}

// handleTimeout fires when the idle wait, the wait for an armed slice,
// or the crash-timeout expires.
func (c *Coordinator) handleTimeout(ctx context.Context, timer *time.Timer) {
	switch c.mode {
	case modeIdle:
		c.dispatchAndArm(ctx, timer, time.Now())
	case modeArmed:
		c.fireSlice(ctx, timer, c.armedKind, time.Now(), "")
	case modeExchange:
		c.generation++ // supersede any in-flight reply
		c.logger.Error().Uint64("generation", c.generation-1).Msg("exchange crash-timeout fired, proceeding to next slice")
		metrics.ExchangesCrashedTotal.Inc()
		c.armLoopTimeout(timer)
	}
}

// dispatchAndArm resolves the next due work item via the dispatcher and
// either fires it immediately (wait already elapsed) or arms a timer
// for the remaining wait, after which that same work item fires.
func (c *Coordinator) dispatchAndArm(ctx context.Context, timer *time.Timer, now time.Time) {
	node, err := c.nodeInfo(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to resolve node info, retrying after loop timeout")
		c.armLoopTimeout(timer)
		return
	}

	kind, wait, remaining, revisedStart := dispatcher.Dispatch(
		c.state.Pending, c.state.Wants, c.state.ScheduleStart, node, c.state.SliceCount, now, c.logger,
	)
	c.state.Pending = remaining
	c.state.ScheduleStart = revisedStart

	if wait > 0 {
		c.mode = modeArmed
		c.armedKind = kind
		timer.Reset(wait)
		return
	}
	c.fireSlice(ctx, timer, kind, now, "")
}

// fireSlice actually processes a due work item: rotates the bucket list
// if applicable, and starts an exchange (or skips for NoSync). reqID is
// the process_workitem caller's correlation id, or "" (no_reply) for
// the internal scheduled-dispatch path; whatever happens, a non-empty
// reqID always gets a result delivered via deliverReq, matching the
// reply-fun's "forward to the original requester" contract.
func (c *Coordinator) fireSlice(ctx context.Context, timer *time.Timer, kind types.WorkItemKind, now time.Time, reqID string) {
	metrics.SlicesDispatchedTotal.WithLabelValues(kind.String()).Inc()

	if kind == types.NoSync {
		c.armLoopTimeout(timer)
		c.deliverReq(reqID, exchange.Result{Kind: kind, RejectReason: "no_sync"})
		return
	}

	var bucket types.BucketID
	if c.state.Scope == types.ScopeBucket {
		if _, ok := c.state.HeadBucket(); !ok {
			c.logger.Warn().Msg("bucket scope with empty bucket list, skipping")
			c.armLoopTimeout(timer)
			c.deliverReq(reqID, exchange.Result{Kind: kind, RejectReason: "empty_bucket_list"})
			return
		}
		bucket = c.state.RotateBucket()
	}

	generation := c.generation
	handle, err := c.driver.Start(ctx, exchange.StartParams{
		Scope: c.state.Scope, Kind: kind,
		LocalNVal: c.state.LocalNVal, RemoteNVal: c.state.RemoteNVal,
		Bucket: bucket, Local: c.state.Source, Remote: c.state.Sink,
		QueueName: c.state.QueueName, Now: now,
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("exchange not started this slice")
		c.armLoopTimeout(timer)
		c.deliverReq(reqID, exchange.Result{Kind: kind, Err: err})
		return
	}

	c.mode = modeExchange
	timer.Reset(CrashTimeout)
	go func() {
		result := <-handle.Done
		c.deliverReq(reqID, result)
		c.done <- exchangeDone{generation: generation, result: result}
	}()
}

// deliverReq forwards an exchange result to whoever is awaiting reqID,
// if anyone. A reqID of "" is the no_reply sentinel and is always a
// no-op, matching process_workitem's (kind, no_reply, now) cast form.
func (c *Coordinator) deliverReq(reqID string, result exchange.Result) {
	if reqID == "" {
		return
	}
	c.reqMu.Lock()
	ch, ok := c.reqResults[reqID]
	c.reqMu.Unlock()
	if ok {
		ch <- result
	}
}

func (c *Coordinator) handleExchangeDone(done exchangeDone, timer *time.Timer) {
	if done.generation != c.generation {
		c.logger.Warn().
			Uint64("reply_generation", done.generation).
			Uint64("current_generation", c.generation).
			Msg("late exchange reply after crash-timeout, dropped")
		return
	}
	if c.mode != modeExchange {
		return
	}
	c.logger.Info().
		Str("exchange_id", done.result.ExchangeID).
		Int("repaired", done.result.Repaired).
		Int("sink_ahead", done.result.SinkAhead).
		Bool("crashed", done.result.Crashed).
		Msg("reply_complete")
	c.armLoopTimeout(timer)
}

func (c *Coordinator) armLoopTimeout(timer *time.Timer) {
	c.mode = modeIdle
	timer.Reset(LoopTimeout)
}

func (c *Coordinator) nodeInfo(ctx context.Context) (types.NodeInfo, error) {
	if c.membership == nil {
		return types.NodeInfo{Ordinal: 1, Count: 1}, nil
	}
	return clients.NodeInfoFrom(ctx, c.membership)
}

// --- control API, called from outside Run's goroutine ---

func (c *Coordinator) sendControl(ctx context.Context, apply func(*Coordinator, *time.Timer) error) ControlResult {
	reply := make(chan ControlResult, 1)
	select {
	case c.control <- controlMsg{apply: apply, replyTo: reply}:
	case <-ctx.Done():
		return ControlResult{Err: ctx.Err()}
	}
	select {
	case r := <-reply:
		return r
	case <-ctx.Done():
		return ControlResult{Err: ctx.Err()}
	}
}

// Pause forces all future slices to NoSync until Resume is called. It
// does not touch the armed timer: an in-flight exchange or idle wait
// keeps running on its existing schedule.
func (c *Coordinator) Pause(ctx context.Context) ControlResult {
	return c.sendControl(ctx, func(c *Coordinator, timer *time.Timer) error {
		err := c.state.Pause()
		if err == nil {
			metrics.CoordinatorPaused.Set(1)
		}
		return err
	})
}

// Resume restores the pre-pause schedule wants and re-arms the initial
// timeout; it does not regenerate the already-drawn pending plan.
func (c *Coordinator) Resume(ctx context.Context) ControlResult {
	return c.sendControl(ctx, func(c *Coordinator, timer *time.Timer) error {
		err := c.state.Resume()
		if err == nil {
			metrics.CoordinatorPaused.Set(0)
			c.mode = modeIdle
			timer.Reset(InitialTimeout)
		}
		return err
	})
}

// SetSink overwrites the remote (sink) endpoint and re-arms the initial
// timeout.
func (c *Coordinator) SetSink(ctx context.Context, ep types.Endpoint) ControlResult {
	return c.sendControl(ctx, func(c *Coordinator, timer *time.Timer) error {
		c.state.Sink = ep
		c.mode = modeIdle
		timer.Reset(InitialTimeout)
		return nil
	})
}

// SetSource overwrites the local (source) endpoint and re-arms the
// initial timeout.
func (c *Coordinator) SetSource(ctx context.Context, ep types.Endpoint) ControlResult {
	return c.sendControl(ctx, func(c *Coordinator, timer *time.Timer) error {
		c.state.Source = ep
		c.mode = modeIdle
		timer.Reset(InitialTimeout)
		return nil
	})
}

// SetAllSync switches scope to All with the given n-vals. The armed
// timer is left untouched.
func (c *Coordinator) SetAllSync(ctx context.Context, localNVal, remoteNVal int) ControlResult {
	return c.sendControl(ctx, func(c *Coordinator, timer *time.Timer) error {
		c.state.Scope = types.ScopeAll
		c.state.LocalNVal = localNVal
		c.state.RemoteNVal = remoteNVal
		return nil
	})
}

// SetBucketSync switches scope to Bucket with the given bucket list.
// The armed timer is left untouched.
func (c *Coordinator) SetBucketSync(ctx context.Context, buckets []types.BucketID) ControlResult {
	return c.sendControl(ctx, func(c *Coordinator, timer *time.Timer) error {
		c.state.Scope = types.ScopeBucket
		c.state.Buckets = buckets
		return nil
	})
}

// ProcessWorkItem is the Control API's process_workitem operation: cast
// (kind, reqID, now) into the coordinator's own mailbox, starting one
// exchange outside the normal schedule. Unlike the other control calls
// this is async per spec.md's Control API table — the returned
// ControlResult only confirms the item was accepted into the mailbox.
// When reqID is non-empty, the eventual exchange result is retrieved
// with AwaitResult rather than returned here.
func (c *Coordinator) ProcessWorkItem(ctx context.Context, kind types.WorkItemKind, reqID string) ControlResult {
	if reqID != "" {
		c.reqMu.Lock()
		c.reqResults[reqID] = make(chan exchange.Result, 1)
		c.reqMu.Unlock()
	}
	return c.sendControl(ctx, func(co *Coordinator, timer *time.Timer) error {
		co.fireSlice(ctx, timer, kind, time.Now(), reqID)
		return nil
	})
}

// AwaitResult blocks until the exchange started under reqID by
// ProcessWorkItem completes, or ctx is cancelled. It is the receiving
// half of process_workitem's "{reqId, result}" async reply.
func (c *Coordinator) AwaitResult(ctx context.Context, reqID string) (exchange.Result, error) {
	c.reqMu.Lock()
	ch, ok := c.reqResults[reqID]
	c.reqMu.Unlock()
	if !ok {
		return exchange.Result{}, fmt.Errorf("no pending request %q", reqID)
	}
	select {
	case result := <-ch:
		c.reqMu.Lock()
		delete(c.reqResults, reqID)
		c.reqMu.Unlock()
		return result, nil
	case <-ctx.Done():
		return exchange.Result{}, ctx.Err()
	}
}

// Snapshot is a read-only copy of the coordinator's state, for the
// status endpoint.
type Snapshot struct {
	Scope      types.Scope
	Paused     bool
	SliceCount int
	Pending    int
	Wants      types.ScheduleWants
	Recent     []types.ExchangeRecord
}

// recentHistoryLimit bounds how many exchange records Status reports,
// so a long-lived deployment's /status response stays a constant size.
const recentHistoryLimit = 20

// Status returns a snapshot of the coordinator's current state,
// including the most recent exchange records from the driver's history
// store (if one is configured).
func (c *Coordinator) Status(ctx context.Context) (Snapshot, error) {
	resultCh := make(chan Snapshot, 1)
	result := c.sendControl(ctx, func(c *Coordinator, timer *time.Timer) error {
		resultCh <- Snapshot{
			Scope:      c.state.Scope,
			Paused:     c.state.Paused,
			SliceCount: c.state.SliceCount,
			Pending:    len(c.state.Pending),
			Wants:      c.state.Wants,
		}
		return nil
	})
	if result.Err != nil {
		return Snapshot{}, result.Err
	}
	var snapshot Snapshot
	select {
	case snapshot = <-resultCh:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	if history := c.driver.History(); history != nil {
		recent, err := history.Recent(recentHistoryLimit)
		if err != nil {
			c.logger.Warn().Err(err).Msg("failed to read exchange history")
		} else {
			snapshot.Recent = recent
		}
	}
	return snapshot, nil
}
