package service

import (
	"context"
	"sort"

	"github.com/rmartins/navengine/internal/model"
)

// Heatmap derives the monthly/yearly return table from the user's NAV
// series: daily NAV percentage changes compounded into calendar months,
// with per-year aggregate statistics. It is a pure reduction over the
// already-computed series — no new data source — so it reuses whatever
// Generate serves (cached or recomputed).
func (s *NavService) Heatmap(ctx context.Context, userID string, notify Notifier) (model.ReturnHeatmap, error) {
	series, err := s.Generate(ctx, userID, notify, GenerateOptions{})
	if err != nil {
		return model.ReturnHeatmap{}, err
	}
	return BuildHeatmap(series), nil
}

// BuildHeatmap folds a NAV series into monthly compounded returns per
// calendar year plus summary statistics per year.
func BuildHeatmap(series model.NavSeries) model.ReturnHeatmap {
	if len(series.Points) < 2 {
		return model.ReturnHeatmap{}
	}

	// Compound daily NAV changes month by month: growth *= nav[t]/nav[t-1].
	type monthKey struct {
		year  int
		month int
	}
	growth := make(map[monthKey]float64)
	for i := 1; i < len(series.Points); i++ {
		prev := series.Points[i-1].NavIndex
		if prev == 0 {
			continue
		}
		p := series.Points[i]
		k := monthKey{year: p.Date.Year(), month: int(p.Date.Month())}
		if _, ok := growth[k]; !ok {
			growth[k] = 1
		}
		growth[k] *= p.NavIndex / prev
	}

	byYear := make(map[int]*model.MonthlyReturnRow)
	for k, g := range growth {
		row, ok := byYear[k.year]
		if !ok {
			row = &model.MonthlyReturnRow{Year: k.year}
			byYear[k.year] = row
		}
		row.Months[k.month-1] = g - 1
		row.MonthSet[k.month-1] = true
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	heatmap := model.ReturnHeatmap{
		Rows:  make([]model.MonthlyReturnRow, 0, len(years)),
		Stats: make([]model.MonthlyReturnStats, 0, len(years)),
	}
	for _, year := range years {
		row := byYear[year]

		eoyGrowth := 1.0
		for m := 0; m < 12; m++ {
			if row.MonthSet[m] {
				eoyGrowth *= 1 + row.Months[m]
			}
		}
		row.EOY = eoyGrowth - 1

		heatmap.Rows = append(heatmap.Rows, *row)
		heatmap.Stats = append(heatmap.Stats, yearStats(*row))
	}
	return heatmap
}

// yearStats summarizes one heatmap row over its observed months.
func yearStats(row model.MonthlyReturnRow) model.MonthlyReturnStats {
	stats := model.MonthlyReturnStats{Year: row.Year}

	var sum, posSum, negSum float64
	observed := 0
	for m := 0; m < 12; m++ {
		if !row.MonthSet[m] {
			continue
		}
		r := row.Months[m]
		if observed == 0 || r > stats.Max {
			stats.Max = r
		}
		if observed == 0 || r < stats.Min {
			stats.Min = r
		}
		observed++
		sum += r
		switch {
		case r > 0:
			stats.Positives++
			posSum += r
		case r < 0:
			stats.Negatives++
			negSum += r
		}
	}

	if observed > 0 {
		stats.Mean = sum / float64(observed)
	}
	if stats.Positives > 0 {
		stats.PosMean = posSum / float64(stats.Positives)
	}
	if stats.Negatives > 0 {
		stats.NegMean = negSum / float64(stats.Negatives)
	}
	return stats
}
