package model

import "time"

// DailyNavPoint is one calendar day of the portfolio valuation series.
// The per-asset maps are keyed by ticker and cover every non-fiat ticker
// that ever traded, dense over the whole axis.
type DailyNavPoint struct {
	Date                time.Time          `json:"date"`
	AssetValues         map[string]float64 `json:"assetValues"`      // daily position value per ticker
	AssetCashFlows      map[string]float64 `json:"assetCashFlows"`   // daily cash flow per ticker (zero on non-trading days)
	AssetAllocations    map[string]float64 `json:"assetAllocations"` // AssetValues / PortfolioValue
	PortfolioValue      float64            `json:"portfolioValue"`
	PortfolioCashFlow   float64            `json:"portfolioCashFlow"`
	DietzReturn         float64            `json:"dietzReturn"`
	NavIndex            float64            `json:"navIndex"`
	CumulativeCashFlows float64            `json:"cumulativeCashFlows"`
}

// NavSeries is the full daily NAV time series for one user.
//
// Complete is false when any ticker's historical prices could not be
// obtained; an incomplete series is still returned to the caller but is
// never persisted, so the next request retries.
type NavSeries struct {
	ReportingCurrency string          `json:"reportingCurrency"`
	Points            []DailyNavPoint `json:"points"`
	GeneratedAt       time.Time       `json:"generatedAt"`
	Complete          bool            `json:"complete"`
	Warnings          []Warning       `json:"warnings,omitempty"`
}

// MonthlyReturnRow is one calendar year of the return heatmap: monthly
// compounded NAV returns plus the compounded end-of-year return.
// MonthSet marks months that have at least one NAV observation.
type MonthlyReturnRow struct {
	Year     int         `json:"year"`
	Months   [12]float64 `json:"months"`
	MonthSet [12]bool    `json:"monthSet"`
	EOY      float64     `json:"eoy"`
}

// MonthlyReturnStats summarizes one heatmap row. Means and extremes are
// taken over observed months only.
type MonthlyReturnStats struct {
	Year      int     `json:"year"`
	Max       float64 `json:"max"`
	Min       float64 `json:"min"`
	Positives int     `json:"positives"`
	Negatives int     `json:"negatives"`
	PosMean   float64 `json:"posMean"`
	NegMean   float64 `json:"negMean"`
	Mean      float64 `json:"mean"`
}

// ReturnHeatmap is the derived monthly/yearly view over a NavSeries.
type ReturnHeatmap struct {
	Rows  []MonthlyReturnRow   `json:"rows"`
	Stats []MonthlyReturnStats `json:"stats"`
}
