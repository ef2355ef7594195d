// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aggregate

import (
	"sort"
	"time"

	"github.com/danielhkuo/quickly-predict/validate"
)

// Point is one stored prediction as seen by the aggregator.
type Point struct {
	Date   time.Time
	Weight float64
}

// Summary is the public aggregate. Median is nil below the minimum sample.
type Summary struct {
	Median *string `json:"median"`
	Min    *string `json:"min"`
	Max    *string `json:"max"`
	Count  int     `json:"count"`
}

// Bucket is one histogram bar.
type Bucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// WeightedMedian returns the date at which cumulative weight first reaches
// half the total. ok is false for empty input.
func WeightedMedian(points []Point) (time.Time, bool) {
	if len(points) == 0 {
		return time.Time{}, false
	}
	if len(points) == 1 {
		return points[0].Date, true
	}

	sorted := sortedByDate(points)

	total := 0.0
	for _, p := range sorted {
		total += p.Weight
	}

	// All-zero weights: plain median, lower middle on even counts
	if total <= 0 {
		return sorted[(len(sorted)-1)/2].Date, true
	}

	half := total / 2
	cumulative := 0.0
	for _, p := range sorted {
		cumulative += p.Weight
		if cumulative >= half {
			return p.Date, true
		}
	}

	// Only reachable through float rounding
	return sorted[len(sorted)-1].Date, true
}

// Summarize computes count, min, max and (at or above minSample) the median.
func Summarize(points []Point, minSample int) Summary {
	s := Summary{Count: len(points)}
	if len(points) == 0 {
		return s
	}

	lo, hi := points[0].Date, points[0].Date
	for _, p := range points[1:] {
		if p.Date.Before(lo) {
			lo = p.Date
		}
		if p.Date.After(hi) {
			hi = p.Date
		}
	}
	s.Min = datePtr(lo)
	s.Max = datePtr(hi)

	if len(points) >= minSample {
		if m, ok := WeightedMedian(points); ok {
			s.Median = datePtr(m)
		}
	}
	return s
}

// Histogram counts predictions per date, ascending.
func Histogram(points []Point) []Bucket {
	counts := make(map[string]int)
	for _, p := range points {
		counts[p.Date.Format(validate.DateLayout)]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for d, c := range counts {
		buckets = append(buckets, Bucket{Date: d, Count: c})
	}
	// YYYY-MM-DD sorts lexically
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date < buckets[j].Date
	})
	return buckets
}

func sortedByDate(points []Point) []Point {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

func datePtr(t time.Time) *string {
	s := t.Format(validate.DateLayout)
	return &s
}
