// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package aggregate turns stored predictions into public statistics.

# Weights

Each prediction's influence depends on its distance from the reference date:

	≤ 5 years   1.0
	≤ 50 years  0.3
	beyond      0.1

# Median

WeightedMedian sorts by date and returns the first date where the running
weight reaches half the total. Summarize withholds the median below the
minimum sample size; Histogram counts predictions per date.

# Status

Classify maps the median's signed day offset from the reference date to a
sentiment bucket and display color. Bucket lower bounds are inclusive.
*/
package aggregate
