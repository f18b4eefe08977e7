package service_test

import (
	"testing"
	"time"

	"github.com/rmartins/navengine/internal/model"
	"github.com/rmartins/navengine/internal/service"
)

func navPoints(t *testing.T, points ...struct {
	date string
	nav  float64
}) []model.DailyNavPoint {
	t.Helper()

	out := make([]model.DailyNavPoint, 0, len(points))
	for _, p := range points {
		d, err := time.Parse("2006-01-02", p.date)
		if err != nil {
			t.Fatalf("Invalid date %q: %v", p.date, err)
		}
		out = append(out, model.DailyNavPoint{Date: d, NavIndex: p.nav})
	}
	return out
}

// TestBuildHeatmap tests the monthly return reduction over a NAV series.
//
// WHY: Monthly returns are compounded from daily index changes, and a day
// attributed to the wrong month (the month boundary) or a skipped gap
// silently shifts returns between cells.
func TestBuildHeatmap(t *testing.T) {
	type np = struct {
		date string
		nav  float64
	}

	t.Run("compounds daily changes into monthly and yearly returns", func(t *testing.T) {
		series := model.NavSeries{Points: navPoints(t,
			np{"2024-01-30", 100},
			np{"2024-01-31", 102},    // Jan 2024: +2%
			np{"2024-02-01", 102},    // boundary day belongs to Feb
			np{"2024-02-02", 112.2},  // Feb 2024: +10%
			np{"2025-01-01", 112.2},  // gap; no change
			np{"2025-01-02", 100.98}, // Jan 2025: -10%
		)}

		heatmap := service.BuildHeatmap(series)

		if len(heatmap.Rows) != 2 {
			t.Fatalf("Expected 2 year rows, got %d", len(heatmap.Rows))
		}

		y2024 := heatmap.Rows[0]
		if y2024.Year != 2024 {
			t.Fatalf("Rows[0].Year = %d, want 2024", y2024.Year)
		}
		if !y2024.MonthSet[0] || !approx(y2024.Months[0], 0.02) {
			t.Errorf("Jan 2024 = %v (set %v), want 0.02", y2024.Months[0], y2024.MonthSet[0])
		}
		if !y2024.MonthSet[1] || !approx(y2024.Months[1], 0.1) {
			t.Errorf("Feb 2024 = %v (set %v), want 0.1", y2024.Months[1], y2024.MonthSet[1])
		}
		if y2024.MonthSet[2] {
			t.Error("March 2024 marked observed with no data")
		}
		if !approx(y2024.EOY, 1.02*1.1-1) {
			t.Errorf("EOY 2024 = %v, want %v", y2024.EOY, 1.02*1.1-1)
		}

		y2025 := heatmap.Rows[1]
		if !approx(y2025.Months[0], -0.1) {
			t.Errorf("Jan 2025 = %v, want -0.1", y2025.Months[0])
		}
		if !approx(y2025.EOY, -0.1) {
			t.Errorf("EOY 2025 = %v, want -0.1", y2025.EOY)
		}
	})

	t.Run("summarizes each year over observed months only", func(t *testing.T) {
		series := model.NavSeries{Points: navPoints(t,
			np{"2024-01-30", 100},
			np{"2024-01-31", 102},
			np{"2024-02-01", 102},
			np{"2024-02-02", 112.2},
			np{"2024-03-01", 112.2},
			np{"2024-03-02", 100.98}, // March: -10%
		)}

		heatmap := service.BuildHeatmap(series)

		if len(heatmap.Stats) != 1 {
			t.Fatalf("Expected 1 stats row, got %d", len(heatmap.Stats))
		}
		stats := heatmap.Stats[0]

		if !approx(stats.Max, 0.1) {
			t.Errorf("Max = %v, want 0.1", stats.Max)
		}
		if !approx(stats.Min, -0.1) {
			t.Errorf("Min = %v, want -0.1", stats.Min)
		}
		if stats.Positives != 2 || stats.Negatives != 1 {
			t.Errorf("Positives/Negatives = %d/%d, want 2/1", stats.Positives, stats.Negatives)
		}
		if !approx(stats.PosMean, 0.06) {
			t.Errorf("PosMean = %v, want 0.06", stats.PosMean)
		}
		if !approx(stats.NegMean, -0.1) {
			t.Errorf("NegMean = %v, want -0.1", stats.NegMean)
		}
		if !approx(stats.Mean, (0.02+0.1-0.1)/3) {
			t.Errorf("Mean = %v, want %v", stats.Mean, (0.02+0.1-0.1)/3)
		}
	})

	t.Run("degenerate series yields an empty heatmap", func(t *testing.T) {
		heatmap := service.BuildHeatmap(model.NavSeries{Points: navPoints(t, np{"2024-01-01", 100})})
		if len(heatmap.Rows) != 0 {
			t.Errorf("Expected no rows for a single-point series, got %d", len(heatmap.Rows))
		}
	})
}
