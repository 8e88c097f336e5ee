/*
Package metrics defines and registers the coordinator's Prometheus metrics.

Unlike a poll-based collector, these metrics are updated inline by the
components that produce the numbers: the Dispatcher increments
SlicesSkippedTotal and SchedulePlansGeneratedTotal as it walks the pending
list, the Coordinator increments SlicesDispatchedTotal and sets
CoordinatorPaused, the Exchange Driver increments the Exchanges* counters and
observes ExchangeDuration, and the Repair Decider increments
RepairsQueuedTotal and SinkAheadTotal as it partitions a divergence list.

All metrics are registered at package init and served over /metrics via
Handler(); cmd/aaesync serves it alongside this package's /health, /ready
and /live handlers.
*/
package metrics
