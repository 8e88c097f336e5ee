package exchange

import (
	"time"

	"github.com/cuemby/aaesync/pkg/clients"
	"github.com/cuemby/aaesync/pkg/types"
)

// RangeFilter is the bucket-scoped filter an exchange is started with,
// when the comparison is driven by a key range rather than an n-val.
type RangeFilter struct {
	Bucket     types.BucketID
	AllKeys    bool
	TreeSize   clients.TreeSize
	ModRange   *clients.ModRange // nil means all-times
	HashMethod string
}

// Plan is the resolved n-val/filter/ref parameters for one exchange,
// derived from scope x work item per the driver's dispatch table. A
// rejected plan carries no n-val/filter and must not start an exchange.
type Plan struct {
	LocalNVal    int
	RemoteNVal   int
	Range        *RangeFilter // non-nil for bucket-scoped range comparisons
	Ref          string       // "full" or "partial"
	RotateBucket bool         // true when the bucket list should rotate after dispatch
	Rejected     bool
	RejectReason string
}

const (
	hourWindow = time.Hour
	dayWindow  = 24 * time.Hour
)

// BuildPlan resolves the scope x work-item table from spec section 4.3.
func BuildPlan(scope types.Scope, kind types.WorkItemKind, localNVal, remoteNVal int, bucket types.BucketID, now time.Time) Plan {
	switch scope {
	case types.ScopeAll:
		switch kind {
		case types.AllSync:
			return Plan{LocalNVal: localNVal, RemoteNVal: remoteNVal, Ref: "full"}
		case types.HourSync, types.DaySync:
			return Plan{Rejected: true, RejectReason: "hour/day sync is invalid under all scope"}
		default:
			return Plan{Rejected: true, RejectReason: "no exchange for " + kind.String()}
		}

	case types.ScopeBucket:
		switch kind {
		case types.AllSync:
			return Plan{
				Ref:          "partial",
				RotateBucket: true,
				Range: &RangeFilter{
					Bucket:     bucket,
					AllKeys:    true,
					TreeSize:   clients.TreeSizeLarge,
					HashMethod: "preHash",
				},
			}
		case types.HourSync:
			return Plan{
				Ref:          "partial",
				RotateBucket: true,
				Range: &RangeFilter{
					Bucket:     bucket,
					AllKeys:    true,
					TreeSize:   clients.TreeSizeSmall,
					ModRange:   &clients.ModRange{Start: now.Add(-hourWindow), End: now},
					HashMethod: "preHash",
				},
			}
		case types.DaySync:
			return Plan{
				Ref:          "partial",
				RotateBucket: true,
				Range: &RangeFilter{
					Bucket:     bucket,
					AllKeys:    true,
					TreeSize:   clients.TreeSizeMedium,
					ModRange:   &clients.ModRange{Start: now.Add(-dayWindow), End: now},
					HashMethod: "preHash",
				},
			}
		default:
			return Plan{Rejected: true, RejectReason: "no exchange for " + kind.String()}
		}

	default:
		return Plan{Rejected: true, RejectReason: "no exchange under scope " + string(scope)}
	}
}
