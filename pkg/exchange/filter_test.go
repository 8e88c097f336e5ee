package exchange

import (
	"testing"

	"github.com/cuemby/aaesync/pkg/clients"
	"github.com/stretchr/testify/assert"
)

func TestAdapt_All(t *testing.T) {
	out := Adapt(EngineSegmentFilter{All: true, Segments: []int{1, 2, 3}})
	assert.Equal(t, clients.SegmentFilter{All: true}, out)
}

func TestAdapt_SegList(t *testing.T) {
	out := Adapt(EngineSegmentFilter{
		Segments: []int{1, 2, 3, 4},
		SegList:  []int{2, 4},
		TreeSize: clients.TreeSizeSmall,
	})
	assert.Equal(t, clients.SegmentFilter{SegList: []int{2, 4}, TreeSize: clients.TreeSizeSmall}, out)
}
