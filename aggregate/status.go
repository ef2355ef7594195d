// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aggregate

import (
	"math"
	"time"
)

// Sentiment buckets, ordered.
const (
	StatusEarly            = "early"
	StatusOnTrack          = "on_track"
	StatusDelayLikely      = "delay_likely"
	StatusMajorDelay       = "major_delay"
	StatusInsufficientData = "insufficient_data"
)

// Day-offset lower bounds (inclusive) of the on_track, delay_likely and
// major_delay buckets.
const (
	onTrackFromDays     = -30
	delayLikelyFromDays = 30
	majorDelayFromDays  = 180
)

// Sentiment is the classifier output.
type Sentiment struct {
	Status string `json:"status"`
	Color  string `json:"color"`
}

var colors = map[string]string{
	StatusEarly:            "blue",
	StatusOnTrack:          "green",
	StatusDelayLikely:      "amber",
	StatusMajorDelay:       "red",
	StatusInsufficientData: "gray",
}

// Classify buckets a signed day offset from the reference date.
func Classify(offsetDays int) Sentiment {
	var status string
	switch {
	case offsetDays >= majorDelayFromDays:
		status = StatusMajorDelay
	case offsetDays >= delayLikelyFromDays:
		status = StatusDelayLikely
	case offsetDays >= onTrackFromDays:
		status = StatusOnTrack
	default:
		status = StatusEarly
	}
	return Sentiment{Status: status, Color: colors[status]}
}

// NoData is reported when there is nothing to classify.
func NoData() Sentiment {
	return Sentiment{Status: StatusInsufficientData, Color: colors[StatusInsufficientData]}
}

// DayOffset is date minus reference in whole days. Both are calendar dates at
// UTC midnight, so rounding only absorbs float error.
func DayOffset(date, reference time.Time) int {
	return int(math.Round(date.Sub(reference).Hours() / 24))
}
