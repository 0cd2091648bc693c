package model

import "time"

// ReportData is everything a full portfolio export needs, assembled once
// so the generator does not reach back into storage.
type ReportData struct {
	Owner       string
	GeneratedAt time.Time
	Positions   []MergedPosition
	Sold        []SoldGroup
	Summary     PortfolioSummary
}
