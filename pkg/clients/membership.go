package clients

import (
	"context"
	"fmt"
	"sort"

	"github.com/cuemby/aaesync/pkg/types"
)

// NodeInfoFrom computes this node's ordinal and the up-node count from a
// Membership oracle: ordinal is the 1-based index of self within the
// sorted list of up nodes.
func NodeInfoFrom(ctx context.Context, m Membership) (types.NodeInfo, error) {
	up, err := m.UpNodes(ctx)
	if err != nil {
		return types.NodeInfo{}, fmt.Errorf("list up nodes: %w", err)
	}
	self, err := m.SelfNode(ctx)
	if err != nil {
		return types.NodeInfo{}, fmt.Errorf("resolve self node: %w", err)
	}

	sorted := make([]string, len(up))
	copy(sorted, up)
	sort.Strings(sorted)

	idx := sort.SearchStrings(sorted, self)
	if idx == len(sorted) || sorted[idx] != self {
		return types.NodeInfo{}, fmt.Errorf("self node %q not present in up-node list", self)
	}

	return types.NodeInfo{Ordinal: idx + 1, Count: len(sorted)}, nil
}

// StaticMembership is a fixed node list, useful for single-node
// deployments or when membership is supplied once by configuration
// instead of dynamically discovered.
type StaticMembership struct {
	Nodes []string
	Self  string
}

func (s *StaticMembership) UpNodes(ctx context.Context) ([]string, error) {
	return s.Nodes, nil
}

func (s *StaticMembership) SelfNode(ctx context.Context) (string, error) {
	return s.Self, nil
}
