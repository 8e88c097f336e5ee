package vclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDominates_NullHandling(t *testing.T) {
	nonNil := &VClock{Counters: map[string]int64{"a": 1}}

	assert.False(t, Dominates(nil, nil))
	assert.False(t, Dominates(nil, nonNil))
	assert.True(t, Dominates(nonNil, nil))
}

func TestDominates_StrictlyAhead(t *testing.T) {
	src := &VClock{Counters: map[string]int64{"a": 1, "b": 2}}
	sink := &VClock{Counters: map[string]int64{"a": 2, "b": 2}}

	assert.True(t, Dominates(sink, src))
	assert.False(t, Dominates(src, sink))
}

func TestDominates_Equal(t *testing.T) {
	a := &VClock{Counters: map[string]int64{"a": 1}}
	b := &VClock{Counters: map[string]int64{"a": 1}}

	assert.False(t, Dominates(a, b))
	assert.False(t, Dominates(b, a))
}

func TestDominates_Concurrent(t *testing.T) {
	a := &VClock{Counters: map[string]int64{"a": 2, "b": 0}}
	b := &VClock{Counters: map[string]int64{"a": 0, "b": 2}}

	assert.False(t, Dominates(a, b))
	assert.False(t, Dominates(b, a))
}

func TestDominates_DisjointActors(t *testing.T) {
	// a has written via actor "x" that b has never heard of: a dominates.
	a := &VClock{Counters: map[string]int64{"x": 1}}
	b := &VClock{Counters: map[string]int64{}}

	assert.True(t, Dominates(a, b))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	vc := &VClock{Counters: map[string]int64{"a": 3, "b": 7}}

	wire, err := Encode(vc)
	require.NoError(t, err)

	decoded, err := Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, vc.Counters, decoded.Counters)
}

func TestDecodeEmpty(t *testing.T) {
	decoded, err := Decode(nil)
	require.NoError(t, err)
	assert.Nil(t, decoded)

	decoded, err = Decode([]byte{})
	require.NoError(t, err)
	assert.Nil(t, decoded)
}
