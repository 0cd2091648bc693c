package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MergedPosition is the read-only view of one logical holding built from
// its active lots. It is recomputed on every read and holds no state of
// its own.
type MergedPosition struct {
	Category          Category
	GroupKey          string
	Ticker            string
	FundHouse         string
	SchemeName        string
	TotalRemainingQty decimal.Decimal
	AvgUnitCost       int64 // weighted by remaining quantity, paise
	RemainingInvested int64 // derived, paise
	CurrentPrice      int64
	CurrentValue      int64
	RealizedGain      int64 // lifetime, incl. exhausted member lots
	UnrealizedGain    int64
	Lots              []Lot // members, oldest purchase first (FIFO order)
}

// GroupSale is one sale entry inside a SoldGroup, tagged with its source lot.
type GroupSale struct {
	LotID          int64
	QuantitySold   decimal.Decimal
	SalePrice      int64
	SaleDate       time.Time
	RealizedProfit int64
}

// SoldGroup aggregates the inactive lots of one logical holding for
// sold-investments reporting.
type SoldGroup struct {
	Category         Category
	GroupKey         string
	DisplayName      string
	TotalQtySold     decimal.Decimal
	OriginalInvested int64
	RealizedGain     int64
	RealizedGainPct  decimal.Decimal
	Sales            []GroupSale // newest first
	Lots             []Lot
}
