package service

import "math"

// RoundingPrecision is the divisor/multiplier used to round monetary values
// to two decimal places in API-facing results.
const RoundingPrecision = 100.0

// round rounds a float64 value to two decimal places.
// Used at the reporting boundary; internal calculations stay unrounded so
// invariants hold bit-for-bit across recomputations.
func round(value float64) float64 {
	return math.Round(value*RoundingPrecision) / RoundingPrecision
}
