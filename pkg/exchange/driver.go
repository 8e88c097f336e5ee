// Package exchange implements the Exchange Driver: given a slice's
// resolved work item, it builds the n-val/filter/ref parameters, checks
// reachability of both clusters, and drives one AAE exchange end to end
// using the clients.AAEClient contract. Segment descent and Merkle tree
// construction belong to the real exchange engine and are not
// reimplemented here; the driver substitutes a direct root/clock
// comparison that exercises the same send-fun callback shape
// (fetch_root, fetch_branches, fetch_clocks, merge_tree_range,
// fetch_clocks_range) an engine would actually drive.
package exchange

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cuemby/aaesync/pkg/clients"
	"github.com/cuemby/aaesync/pkg/metrics"
	"github.com/cuemby/aaesync/pkg/repair"
	"github.com/cuemby/aaesync/pkg/store"
	"github.com/cuemby/aaesync/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StartParams is everything the driver needs to plan and run one
// exchange for a single dispatched slice.
type StartParams struct {
	Scope                 types.Scope
	Kind                  types.WorkItemKind
	LocalNVal, RemoteNVal int
	Bucket                types.BucketID
	Local, Remote         types.Endpoint
	QueueName             string
	Now                   time.Time
}

// Result is what the driver reports once an exchange finishes, crashes,
// or is rejected before starting.
type Result struct {
	ExchangeID   string
	Kind         types.WorkItemKind
	Scope        types.Scope
	Bucket       *types.BucketID
	Repaired     int
	SinkAhead    int
	Crashed      bool
	RejectReason string
	Err          error
}

// Handle is returned once an exchange has been accepted and started.
// Done fires exactly once, with the final Result, when the exchange
// completes or crashes.
type Handle struct {
	ExchangeID string
	Done       <-chan Result
}

// clientFactory lets tests substitute a fake AAEClient without talking
// HTTP.
type clientFactory func(types.Endpoint) clients.AAEClient

// Driver starts and drives AAE exchanges, persisting a record of each
// one and handing source-ahead divergences to the repair decider.
type Driver struct {
	queue     clients.ReplicationQueue
	history   *store.History
	newClient clientFactory
	logger    zerolog.Logger
}

// NewDriver builds a driver talking to real HTTP AAE endpoints. history
// may be nil, in which case exchange records are not persisted.
func NewDriver(queue clients.ReplicationQueue, history *store.History, logger zerolog.Logger) *Driver {
	return &Driver{
		queue:   queue,
		history: history,
		newClient: func(ep types.Endpoint) clients.AAEClient {
			return clients.NewHTTPAAEClient(ep)
		},
		logger: logger,
	}
}

// History returns the driver's exchange history log, or nil if none was
// configured.
func (d *Driver) History() *store.History {
	return d.history
}

// Start resolves the exchange plan, pings both clusters, and if both
// succeed launches the exchange in the background, returning a handle
// immediately. A non-nil error means no exchange was started at all
// (rejected by the plan table, or a cluster was unreachable); the
// caller re-arms its loop timeout rather than its crash timeout in
// that case.
func (d *Driver) Start(ctx context.Context, p StartParams) (*Handle, error) {
	exchangeID := uuid.NewString()
	logger := d.logger.With().Str("exchange_id", exchangeID).Str("kind", p.Kind.String()).Logger()

	plan := BuildPlan(p.Scope, p.Kind, p.LocalNVal, p.RemoteNVal, p.Bucket, p.Now)
	if plan.Rejected {
		logger.Warn().Str("reason", plan.RejectReason).Msg("exchange rejected before starting")
		metrics.ExchangesRejectedTotal.WithLabelValues(plan.RejectReason).Inc()
		d.record(types.ExchangeRecord{
			ExchangeID:   exchangeID,
			Kind:         p.Kind,
			Scope:        p.Scope,
			StartedAt:    p.Now,
			FinishedAt:   p.Now,
			RejectReason: plan.RejectReason,
		})
		return nil, fmt.Errorf("exchange rejected: %s", plan.RejectReason)
	}

	remote := d.newClient(p.Remote)
	if err := remote.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("remote cluster unreachable, exchange not started")
		metrics.ExchangesRejectedTotal.WithLabelValues("remote_unreachable").Inc()
		d.record(d.rejectRecord(exchangeID, p, "remote_unreachable", err))
		return nil, fmt.Errorf("ping remote: %w", err)
	}

	local := d.newClient(p.Local)
	if err := local.Ping(ctx); err != nil {
		remote.Close()
		logger.Warn().Err(err).Msg("local cluster unreachable, exchange not started")
		metrics.ExchangesRejectedTotal.WithLabelValues("local_unreachable").Inc()
		d.record(d.rejectRecord(exchangeID, p, "local_unreachable", err))
		return nil, fmt.Errorf("ping local: %w", err)
	}

	metrics.ExchangesStartedTotal.WithLabelValues(p.Kind.String()).Inc()
	logger.Info().Str("ref", plan.Ref).Msg("exchange started")

	done := make(chan Result, 1)
	go d.run(ctx, exchangeID, plan, p, local, remote, logger, done)

	return &Handle{ExchangeID: exchangeID, Done: done}, nil
}

func (d *Driver) rejectRecord(exchangeID string, p StartParams, reason string, err error) types.ExchangeRecord {
	return types.ExchangeRecord{
		ExchangeID:   exchangeID,
		Kind:         p.Kind,
		Scope:        p.Scope,
		StartedAt:    p.Now,
		FinishedAt:   p.Now,
		RejectReason: reason,
		Error:        err.Error(),
	}
}

func (d *Driver) run(ctx context.Context, exchangeID string, plan Plan, p StartParams, local, remote clients.AAEClient, logger zerolog.Logger, done chan<- Result) {
	defer local.Close()
	defer remote.Close()

	timer := metrics.NewTimer()

	var divergences []repair.Divergence
	var err error
	if plan.Range != nil {
		divergences, err = d.rangeExchange(ctx, *plan.Range, local, remote, logger)
	} else {
		divergences, err = d.fullExchange(ctx, plan, local, remote, logger)
	}

	rec := types.ExchangeRecord{
		ExchangeID: exchangeID,
		Kind:       p.Kind,
		Scope:      p.Scope,
		StartedAt:  p.Now,
	}
	if p.Scope == types.ScopeBucket {
		bucket := p.Bucket
		rec.Bucket = &bucket
	}

	result := Result{ExchangeID: exchangeID, Kind: p.Kind, Scope: p.Scope, Bucket: rec.Bucket}

	if err != nil {
		rec.Crashed = true
		rec.Error = err.Error()
		metrics.ExchangesCrashedTotal.Inc()
		logger.Error().Err(err).Msg("exchange crashed")
		result.Crashed = true
		result.Err = err
	} else {
		repaired, sinkAhead, _ := repair.Decide(ctx, p.QueueName, d.queue, divergences, logger)
		rec.RepairCount = repaired
		rec.SinkAhead = sinkAhead
		result.Repaired = repaired
		result.SinkAhead = sinkAhead
	}

	rec.FinishedAt = time.Now()
	timer.ObserveDuration(metrics.ExchangeDuration)
	d.record(rec)

	done <- result
	close(done)
}

// fullExchange handles the all-scope, full n-val comparison: merge
// roots from both sides and, if they differ, fall back to a full clock
// fetch and diff. Real branch descent would narrow this to the
// segments that actually diverge; the driver compares the complete
// clock sets instead.
func (d *Driver) fullExchange(ctx context.Context, plan Plan, local, remote clients.AAEClient, logger zerolog.Logger) ([]repair.Divergence, error) {
	bus := newReplyBus()

	localRootCh, err := bus.dispatch("root_local", func() (any, error) { return local.MergeRoot(ctx, plan.LocalNVal) })
	if err != nil {
		return nil, err
	}
	remoteRootCh, err := bus.dispatch("root_remote", func() (any, error) { return remote.MergeRoot(ctx, plan.RemoteNVal) })
	if err != nil {
		return nil, err
	}

	localRoot := <-localRootCh
	remoteRoot := <-remoteRootCh
	if localRoot.err != nil {
		return nil, fmt.Errorf("fetch_root local: %w", localRoot.err)
	}
	if remoteRoot.err != nil {
		return nil, fmt.Errorf("fetch_root remote: %w", remoteRoot.err)
	}

	if bytes.Equal(localRoot.value.([]byte), remoteRoot.value.([]byte)) {
		logger.Info().Msg("merkle roots match, no divergence")
		return nil, nil
	}

	localClocksCh, err := bus.dispatch("clocks_local", func() (any, error) { return local.FetchClocks(ctx, plan.LocalNVal, nil) })
	if err != nil {
		return nil, err
	}
	remoteClocksCh, err := bus.dispatch("clocks_remote", func() (any, error) { return remote.FetchClocks(ctx, plan.RemoteNVal, nil) })
	if err != nil {
		return nil, err
	}

	localClocks := <-localClocksCh
	remoteClocks := <-remoteClocksCh
	if localClocks.err != nil {
		return nil, fmt.Errorf("fetch_clocks local: %w", localClocks.err)
	}
	if remoteClocks.err != nil {
		return nil, fmt.Errorf("fetch_clocks remote: %w", remoteClocks.err)
	}

	// Local is this node's source cluster, remote is the sink being
	// caught up; source-ahead entries get requeued for replication to it.
	return diffClocks(localClocks.value.([]clients.KeyClock), remoteClocks.value.([]clients.KeyClock)), nil
}

// rangeExchange handles bucket-scoped hour/day/all syncs: merge range
// trees from both sides and, if they differ, fetch and diff range
// clocks.
func (d *Driver) rangeExchange(ctx context.Context, rf RangeFilter, local, remote clients.AAEClient, logger zerolog.Logger) ([]repair.Divergence, error) {
	bus := newReplyBus()
	segFilter := Adapt(EngineSegmentFilter{All: true})

	localTreeCh, err := bus.dispatch("tree_local", func() (any, error) {
		return local.RangeTree(ctx, rf.Bucket, nil, rf.TreeSize, segFilter, rf.ModRange, rf.HashMethod)
	})
	if err != nil {
		return nil, err
	}
	remoteTreeCh, err := bus.dispatch("tree_remote", func() (any, error) {
		return remote.RangeTree(ctx, rf.Bucket, nil, rf.TreeSize, segFilter, rf.ModRange, rf.HashMethod)
	})
	if err != nil {
		return nil, err
	}

	localTree := <-localTreeCh
	remoteTree := <-remoteTreeCh
	if localTree.err != nil {
		return nil, fmt.Errorf("merge_tree_range local: %w", localTree.err)
	}
	if remoteTree.err != nil {
		return nil, fmt.Errorf("merge_tree_range remote: %w", remoteTree.err)
	}

	if bytes.Equal(localTree.value.(clients.Tree).Opaque, remoteTree.value.(clients.Tree).Opaque) {
		logger.Info().Msg("range trees match, no divergence")
		return nil, nil
	}

	localClocksCh, err := bus.dispatch("clocks_range_local", func() (any, error) {
		return local.RangeClocks(ctx, rf.Bucket, nil, segFilter, rf.ModRange)
	})
	if err != nil {
		return nil, err
	}
	remoteClocksCh, err := bus.dispatch("clocks_range_remote", func() (any, error) {
		return remote.RangeClocks(ctx, rf.Bucket, nil, segFilter, rf.ModRange)
	})
	if err != nil {
		return nil, err
	}

	localClocks := <-localClocksCh
	remoteClocks := <-remoteClocksCh
	if localClocks.err != nil {
		return nil, fmt.Errorf("fetch_clocks_range local: %w", localClocks.err)
	}
	if remoteClocks.err != nil {
		return nil, fmt.Errorf("fetch_clocks_range remote: %w", remoteClocks.err)
	}

	return diffClocks(localClocks.value.([]clients.KeyClock), remoteClocks.value.([]clients.KeyClock)), nil
}

// diffClocks compares the local (source) and remote (sink) clock sets
// and builds a divergence list: keys present on the source with a
// differing clock, plus keys the sink has that the source does not.
func diffClocks(sourceClocks, sinkClocks []clients.KeyClock) []repair.Divergence {
	sinkByKey := make(map[string]clients.KeyClock, len(sinkClocks))
	for _, kc := range sinkClocks {
		sinkByKey[string(kc.Key)] = kc
	}

	seen := make(map[string]bool, len(sourceClocks))
	var divergences []repair.Divergence

	for _, src := range sourceClocks {
		seen[string(src.Key)] = true
		sink, ok := sinkByKey[string(src.Key)]
		if ok && bytes.Equal(src.VClock, sink.VClock) {
			continue
		}
		var sinkClock []byte
		if ok {
			sinkClock = sink.VClock
		}
		divergences = append(divergences, repair.Divergence{
			Bucket:     src.Bucket,
			Key:        src.Key,
			SrcVClock:  src.VClock,
			SinkVClock: sinkClock,
		})
	}

	for _, sink := range sinkClocks {
		if seen[string(sink.Key)] {
			continue
		}
		divergences = append(divergences, repair.Divergence{
			Bucket:     sink.Bucket,
			Key:        sink.Key,
			SrcVClock:  nil,
			SinkVClock: sink.VClock,
		})
	}

	return divergences
}

func (d *Driver) record(rec types.ExchangeRecord) {
	if d.history == nil {
		return
	}
	if err := d.history.Record(rec); err != nil {
		d.logger.Warn().Err(err).Str("exchange_id", rec.ExchangeID).Msg("failed to persist exchange record")
	}
}
