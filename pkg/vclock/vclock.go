// Package vclock implements the causal-history comparison the Repair
// Decider needs: decoding a divergence entry's wire-form clocks and
// deciding whether one dominates the other.
package vclock

import "encoding/json"

// VClock is a per-actor counter map, the dotted-version-vector-free form
// the exchange engine hands the core: one counter per replica that has
// ever written the object.
type VClock struct {
	Counters map[string]int64 `json:"counters"`
}

// Decode parses the persisted wire form of a vector clock. The wire form
// is a small JSON object; nil/empty input decodes to a nil *VClock,
// matching the "sink-missing"/"source-missing" cases the Repair Decider
// must treat specially.
func Decode(wire []byte) (*VClock, error) {
	if len(wire) == 0 {
		return nil, nil
	}
	var vc VClock
	if err := json.Unmarshal(wire, &vc); err != nil {
		return nil, err
	}
	return &vc, nil
}

// Encode serializes a vector clock to its wire form.
func Encode(vc *VClock) ([]byte, error) {
	if vc == nil {
		return nil, nil
	}
	return json.Marshal(vc)
}

// Dominates reports whether a strictly dominates b in the vector-clock
// partial order: every component of a is >= the corresponding component
// of b, and at least one is strictly greater.
//
// Null handling: Dominates(nil, x) is always false (a missing clock
// dominates nothing); Dominates(x, nil) is always true for non-nil x
// (anything dominates a missing clock), matching the source-missing /
// sink-missing cases the Repair Decider distinguishes.
func Dominates(a, b *VClock) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}

	strictlyGreater := false
	for actor, bCount := range b.Counters {
		aCount := a.Counters[actor] // an absent actor counts as 0
		if aCount < bCount {
			return false
		}
		if aCount > bCount {
			strictlyGreater = true
		}
	}
	for actor, aCount := range a.Counters {
		if _, ok := b.Counters[actor]; !ok && aCount > 0 {
			strictlyGreater = true
		}
	}
	return strictlyGreater
}
