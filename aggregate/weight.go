// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aggregate

import (
	"math"
	"time"
)

// Influence tiers
const (
	WeightFull    = 1.0
	WeightReduced = 0.3
	WeightMinimal = 0.1

	fullYears    = 5.0
	reducedYears = 50.0

	secondsPerYear = 365.25 * 86400
)

// YearsBetween is the absolute distance in fractional (Julian) years.
func YearsBetween(a, b time.Time) float64 {
	return math.Abs(float64(a.Unix()-b.Unix())) / secondsPerYear
}

// Weight maps a predicted date to its influence. Tier bounds are inclusive,
// and no tier is zero.
func Weight(date, reference time.Time) float64 {
	years := YearsBetween(date, reference)
	switch {
	case years <= fullYears:
		return WeightFull
	case years <= reducedYears:
		return WeightReduced
	default:
		return WeightMinimal
	}
}
