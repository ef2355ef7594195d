// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aggregate_test

import (
	"testing"
	"time"

	"github.com/danielhkuo/quickly-predict/aggregate"
	"github.com/danielhkuo/quickly-predict/validate"
	. "github.com/smartystreets/goconvey/convey"
)

var reference = time.Date(2026, 11, 19, 0, 0, 0, 0, time.UTC)

func days(n int) time.Time { return reference.AddDate(0, 0, n) }

func seconds(n int64) time.Duration { return time.Duration(n) * time.Second }

func TestWeight(t *testing.T) {
	Convey("Given the reference date", t, func() {
		fiveYears := int64(5 * 365.25 * 86400)
		fiftyYears := int64(50 * 365.25 * 86400)

		Convey("The reference date itself has full weight", func() {
			So(aggregate.Weight(reference, reference), ShouldEqual, 1.0)
		})

		Convey("Exactly five years is still full weight, in both directions", func() {
			So(aggregate.Weight(reference.Add(seconds(fiveYears)), reference), ShouldEqual, 1.0)
			So(aggregate.Weight(reference.Add(-seconds(fiveYears)), reference), ShouldEqual, 1.0)
		})

		Convey("Just past five years drops to reduced weight", func() {
			So(aggregate.Weight(reference.Add(seconds(fiveYears+1)), reference), ShouldEqual, 0.3)
			So(aggregate.Weight(reference.Add(-seconds(fiveYears+1)), reference), ShouldEqual, 0.3)
		})

		Convey("Exactly fifty years is still reduced weight", func() {
			So(aggregate.Weight(reference.Add(seconds(fiftyYears)), reference), ShouldEqual, 0.3)
			So(aggregate.Weight(reference.Add(-seconds(fiftyYears)), reference), ShouldEqual, 0.3)
		})

		Convey("Just past fifty years is minimal but never zero", func() {
			So(aggregate.Weight(reference.Add(seconds(fiftyYears+1)), reference), ShouldEqual, 0.1)
			So(aggregate.Weight(reference.AddDate(99, 0, 0), reference), ShouldEqual, 0.1)
			So(aggregate.Weight(reference.AddDate(99, 0, 0), reference), ShouldBeGreaterThan, 0)
		})

		Convey("Calendar dates land in the expected tiers", func() {
			So(aggregate.Weight(days(365*2), reference), ShouldEqual, 1.0)
			So(aggregate.Weight(reference.AddDate(10, 0, 0), reference), ShouldEqual, 0.3)
			So(aggregate.Weight(reference.AddDate(60, 0, 0), reference), ShouldEqual, 0.1)
		})
	})
}

func TestWeightedMedian(t *testing.T) {
	Convey("Given predictions", t, func() {
		Convey("Empty input has no result", func() {
			_, ok := aggregate.WeightedMedian(nil)
			So(ok, ShouldBeFalse)
		})

		Convey("A single element is returned regardless of weight", func() {
			m, ok := aggregate.WeightedMedian([]aggregate.Point{{Date: days(42), Weight: 0}})
			So(ok, ShouldBeTrue)
			So(m, ShouldEqual, days(42))
		})

		Convey("All-zero weights fall back to the lower unweighted median", func() {
			points := []aggregate.Point{
				{Date: days(4), Weight: 0},
				{Date: days(1), Weight: 0},
				{Date: days(3), Weight: 0},
				{Date: days(2), Weight: 0},
			}
			m, ok := aggregate.WeightedMedian(points)
			So(ok, ShouldBeTrue)
			So(m, ShouldEqual, days(2))
		})

		Convey("Equal weights give the lower middle on even counts", func() {
			points := []aggregate.Point{
				{Date: days(10), Weight: 1},
				{Date: days(20), Weight: 1},
				{Date: days(30), Weight: 1},
				{Date: days(40), Weight: 1},
			}
			m, _ := aggregate.WeightedMedian(points)
			So(m, ShouldEqual, days(20))
		})

		Convey("Heavy points pull the median", func() {
			points := []aggregate.Point{
				{Date: days(1), Weight: 0.1},
				{Date: days(2), Weight: 0.1},
				{Date: days(3), Weight: 0.1},
				{Date: days(100), Weight: 1.0},
			}
			m, _ := aggregate.WeightedMedian(points)
			So(m, ShouldEqual, days(100))
		})

		Convey("Input order does not matter and is not mutated", func() {
			points := []aggregate.Point{
				{Date: days(9), Weight: 1},
				{Date: days(1), Weight: 1},
				{Date: days(5), Weight: 1},
			}
			m, _ := aggregate.WeightedMedian(points)
			So(m, ShouldEqual, days(5))
			So(points[0].Date, ShouldEqual, days(9))
		})
	})
}

func basePoints() []aggregate.Point {
	points := make([]aggregate.Point, 0, 10)
	for i := 0; i < 10; i++ {
		d := days(i)
		points = append(points, aggregate.Point{Date: d, Weight: aggregate.Weight(d, reference)})
	}
	return points
}

func bucketOf(points []aggregate.Point) string {
	m, _ := aggregate.WeightedMedian(points)
	return aggregate.Classify(aggregate.DayOffset(m, reference)).Status
}

func TestMedianRobustness(t *testing.T) {
	Convey("Given ten full-weight predictions near the reference date", t, func() {
		points := basePoints()
		baseBucket := bucketOf(points)

		Convey("Adding minimal-weight troll predictions keeps the median in its bucket", func() {
			troll := reference.AddDate(80, 0, 0)
			So(aggregate.Weight(troll, reference), ShouldEqual, aggregate.WeightMinimal)

			for k := 1; k <= 50; k++ {
				points = append(points, aggregate.Point{Date: troll, Weight: aggregate.Weight(troll, reference)})
				So(bucketOf(points), ShouldEqual, baseBucket)
			}
		})

		Convey("Adding full-weight predictions shifts the median monotonically toward them", func() {
			target := days(400)
			So(aggregate.Weight(target, reference), ShouldEqual, aggregate.WeightFull)

			prev, _ := aggregate.WeightedMedian(points)
			for k := 1; k <= 20; k++ {
				points = append(points, aggregate.Point{Date: target, Weight: aggregate.WeightFull})
				m, _ := aggregate.WeightedMedian(points)
				So(m.Before(prev), ShouldBeFalse)
				prev = m
			}
			So(prev, ShouldEqual, target)
		})
	})
}

func TestSummarize(t *testing.T) {
	Convey("Given a minimum sample size", t, func() {
		points := []aggregate.Point{
			{Date: days(5), Weight: 1},
			{Date: days(-3), Weight: 1},
			{Date: days(12), Weight: 1},
		}

		Convey("Below the minimum the median is withheld", func() {
			s := aggregate.Summarize(points, 50)
			So(s.Count, ShouldEqual, 3)
			So(s.Median, ShouldBeNil)
			So(*s.Min, ShouldEqual, days(-3).Format(validate.DateLayout))
			So(*s.Max, ShouldEqual, days(12).Format(validate.DateLayout))
		})

		Convey("At the minimum the median is reported", func() {
			s := aggregate.Summarize(points, 3)
			So(s.Median, ShouldNotBeNil)
			So(*s.Median, ShouldEqual, days(5).Format(validate.DateLayout))
		})

		Convey("No data yields a zero count and no dates", func() {
			s := aggregate.Summarize(nil, 1)
			So(s.Count, ShouldEqual, 0)
			So(s.Median, ShouldBeNil)
			So(s.Min, ShouldBeNil)
		})
	})
}

func TestHistogram(t *testing.T) {
	Convey("Histogram groups by date in ascending order", t, func() {
		h := aggregate.Histogram([]aggregate.Point{
			{Date: days(2)}, {Date: days(1)}, {Date: days(2)}, {Date: days(-1)},
		})
		So(len(h), ShouldEqual, 3)
		So(h[0].Date, ShouldEqual, days(-1).Format(validate.DateLayout))
		So(h[2].Count, ShouldEqual, 2)
	})
}

func TestClassify(t *testing.T) {
	Convey("Bucket lower bounds are inclusive", t, func() {
		cases := map[int]string{
			-400: aggregate.StatusEarly,
			-31:  aggregate.StatusEarly,
			-30:  aggregate.StatusOnTrack,
			0:    aggregate.StatusOnTrack,
			29:   aggregate.StatusOnTrack,
			30:   aggregate.StatusDelayLikely,
			179:  aggregate.StatusDelayLikely,
			180:  aggregate.StatusMajorDelay,
			5000: aggregate.StatusMajorDelay,
		}
		for offset, want := range cases {
			So(aggregate.Classify(offset).Status, ShouldEqual, want)
		}
		So(aggregate.Classify(0).Color, ShouldEqual, "green")
		So(aggregate.NoData().Status, ShouldEqual, aggregate.StatusInsufficientData)
	})

	Convey("A lone prediction on the reference date is on track with offset zero", t, func() {
		m, ok := aggregate.WeightedMedian([]aggregate.Point{{Date: reference, Weight: aggregate.Weight(reference, reference)}})
		So(ok, ShouldBeTrue)
		So(m, ShouldEqual, reference)
		So(aggregate.DayOffset(m, reference), ShouldEqual, 0)
		So(aggregate.Classify(0).Status, ShouldEqual, aggregate.StatusOnTrack)
	})

	Convey("Day offsets are signed", t, func() {
		So(aggregate.DayOffset(days(-45), reference), ShouldEqual, -45)
		So(aggregate.DayOffset(days(200), reference), ShouldEqual, 200)
	})
}
