package ai

import "math"

// NormalizeConfidence maps a raw model confidence onto the 0-100 scale.
// Models report fractions (0.42), percentages (42) or inflated values
// (425, 4250):
//
//	raw > 1000  -> raw / 100
//	raw > 100   -> raw / 10
//	raw <= 1    -> raw * 100
//	otherwise   -> raw
//
// and the result is clamped to [0,100]. Note the overlap at the edges:
// exactly 1 becomes 100, exactly 100 stays 100, and 1000 becomes 100.
func NormalizeConfidence(raw float64) float64 {
	var v float64
	switch {
	case math.IsNaN(raw):
		return 0
	case raw > 1000:
		v = raw / 100
	case raw > 100:
		v = raw / 10
	case raw <= 1:
		v = raw * 100
	default:
		v = raw
	}

	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
