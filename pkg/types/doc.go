/*
Package types defines the data model shared across the coordinator:
work item kinds, scope, schedule quotas, slice allocations, node position,
and the endpoint/bucket identifiers the exchange driver and clients trade
in. Nothing in this package carries behavior beyond small accessors
(SliceCount, String) — logic lives in pkg/planner, pkg/dispatcher,
pkg/exchange, pkg/repair, and pkg/coordinator.
*/
package types
