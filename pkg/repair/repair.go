// Package repair implements the Repair Decider: given a key/clock
// divergence list from an AAE exchange, it partitions entries into
// "sink-ahead" (logged only, the sink is already newer) and "source-ahead"
// (requeued for re-replication).
package repair

import (
	"context"

	"github.com/cuemby/aaesync/pkg/clients"
	"github.com/cuemby/aaesync/pkg/metrics"
	"github.com/cuemby/aaesync/pkg/types"
	"github.com/cuemby/aaesync/pkg/vclock"
	"github.com/rs/zerolog"
)

const fetchMarker = "to_fetch"

// Divergence is one (bucket, key) entry the exchange engine reports as
// differing between source and sink, with both sides' vector clocks in
// their persisted wire form. A nil clock means that side has no record of
// the key at all.
type Divergence struct {
	Bucket     types.BucketID
	Key        []byte
	SrcVClock  []byte
	SinkVClock []byte
}

// Decide partitions divergences into sink-ahead (logged only) and
// source-ahead (handed to the replication queue), logging counts at
// start, after partitioning, and on completion. The replication-queue
// call is best-effort: a failure is logged but not retried here, since
// the queue owns its own persistence.
func Decide(ctx context.Context, queueName string, queue clients.ReplicationQueue, divergences []Divergence, logger zerolog.Logger) (repaired int, sinkAhead int, err error) {
	logger.Info().Int("divergences", len(divergences)).Msg("repair decider starting")

	var toRequeue []clients.RepairEntry
	for _, d := range divergences {
		src, decErr := vclock.Decode(d.SrcVClock)
		if decErr != nil {
			logger.Warn().Err(decErr).Bytes("key", d.Key).Msg("failed to decode source vclock, treating as source-ahead")
			toRequeue = append(toRequeue, toRepairEntry(d))
			continue
		}
		sink, decErr := vclock.Decode(d.SinkVClock)
		if decErr != nil {
			logger.Warn().Err(decErr).Bytes("key", d.Key).Msg("failed to decode sink vclock, treating as source-ahead")
			toRequeue = append(toRequeue, toRepairEntry(d))
			continue
		}

		if vclock.Dominates(sink, src) {
			sinkAhead++
			continue
		}
		toRequeue = append(toRequeue, toRepairEntry(d))
	}

	logger.Info().
		Int("sink_ahead", sinkAhead).
		Int("to_requeue", len(toRequeue)).
		Msg("repair decider partitioned divergences")

	metrics.SinkAheadTotal.Add(float64(sinkAhead))

	if len(toRequeue) > 0 {
		if enqueueErr := queue.Enqueue(ctx, queueName, toRequeue); enqueueErr != nil {
			logger.Warn().Err(enqueueErr).Str("queue", queueName).Msg("failed to enqueue repairs, not retried at this layer")
		} else {
			metrics.RepairsQueuedTotal.Add(float64(len(toRequeue)))
		}
	}

	logger.Info().
		Int("sink_ahead", sinkAhead).
		Int("repaired", len(toRequeue)).
		Msg("repair decider complete")

	return len(toRequeue), sinkAhead, nil
}

func toRepairEntry(d Divergence) clients.RepairEntry {
	return clients.RepairEntry{
		Bucket:      d.Bucket,
		Key:         d.Key,
		SrcVClock:   d.SrcVClock,
		FetchMarker: fetchMarker,
	}
}
