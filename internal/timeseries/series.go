// Package timeseries provides the canonical daily date axis the NAV
// generator reindexes every per-asset series onto, plus the two named
// imputation policies the engine uses: forward-fill for stock-like series
// (positions, prices) and zero-fill for flow-like series (cash flows).
package timeseries

import "time"

// Day floors t to calendar-day granularity in UTC.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Axis is a dense, inclusive range of calendar days.
type Axis struct {
	start time.Time
	days  int
}

// NewDailyAxis builds the axis covering start through end inclusive, both
// floored to days. An end before start yields a single-day axis at start.
func NewDailyAxis(start, end time.Time) Axis {
	s := Day(start)
	e := Day(end)
	days := int(e.Sub(s).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return Axis{start: s, days: days}
}

// Len returns the number of days on the axis.
func (a Axis) Len() int { return a.days }

// Date returns the i-th day of the axis.
func (a Axis) Date(i int) time.Time { return a.start.AddDate(0, 0, i) }

// Index returns the axis position of t, and whether t lies on the axis.
func (a Axis) Index(t time.Time) (int, bool) {
	i := int(Day(t).Sub(a.start).Hours() / 24)
	if i < 0 || i >= a.days {
		return 0, false
	}
	return i, true
}

// Point is a dated observation used when reindexing external series.
type Point struct {
	Date  time.Time
	Value float64
}

// Sum buckets points onto the axis, summing observations that share a day.
// Used for flow-like inputs (trade quantities, cash flows). present marks
// days with at least one observation.
func (a Axis) Sum(points []Point) (values []float64, present []bool) {
	values = make([]float64, a.days)
	present = make([]bool, a.days)
	for _, p := range points {
		if i, ok := a.Index(p.Date); ok {
			values[i] += p.Value
			present[i] = true
		}
	}
	return values, present
}

// Last buckets points onto the axis, keeping the last observation per day.
// Used for level-like inputs (prices). present marks observed days.
func (a Axis) Last(points []Point) (values []float64, present []bool) {
	values = make([]float64, a.days)
	present = make([]bool, a.days)
	for _, p := range points {
		if i, ok := a.Index(p.Date); ok {
			values[i] = p.Value
			present[i] = true
		}
	}
	return values, present
}

// ForwardFill carries the last observed value over unobserved days, in
// place. Leading unobserved days (no prior value to carry) become 0.
func ForwardFill(values []float64, present []bool) {
	last := 0.0
	for i := range values {
		if present[i] {
			last = values[i]
		} else {
			values[i] = last
		}
	}
}

// ZeroFill sets unobserved days to 0, in place. Flows do not carry forward.
func ZeroFill(values []float64, present []bool) {
	for i := range values {
		if !present[i] {
			values[i] = 0
		}
	}
}

// CumulativeSum returns the running sum of values, leaving the input
// untouched. Applying it to a zero-filled daily-quantity series yields the
// forward-filled cumulative position.
func CumulativeSum(values []float64) []float64 {
	out := make([]float64, len(values))
	running := 0.0
	for i, v := range values {
		running += v
		out[i] = running
	}
	return out
}
