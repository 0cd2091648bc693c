package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GainTotals carries the money totals of one summary slice. Invested is
// the derived remaining-invested of active lots, so capital already
// returned by partial sales never inflates it.
type GainTotals struct {
	Invested       int64
	CurrentValue   int64
	RealizedGain   int64
	UnrealizedGain int64
	PercentageGain decimal.Decimal
}

type TimelineSummary struct {
	Cutoff       time.Time
	BeforeCutoff GainTotals
	AfterCutoff  GainTotals
}

// PortfolioSummary is recomputed from the full lot set on every read.
// Warnings lists lots excluded from aggregation as malformed.
type PortfolioSummary struct {
	Overall    GainTotals
	ByCategory map[Category]GainTotals
	Timeline   TimelineSummary
	Warnings   []string
}
