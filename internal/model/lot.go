package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryFund   Category = "FUND"
	CategorySIP    Category = "SIP"
	CategoryEquity Category = "EQUITY"
)

type LotStatus string

const (
	StatusActive   LotStatus = "ACTIVE"
	StatusInactive LotStatus = "INACTIVE"
)

// SaleRecord is one completed sale against a lot. Records are append-only
// and never reordered.
type SaleRecord struct {
	QuantitySold   decimal.Decimal
	SalePrice      int64 // paise per unit
	SaleDate       time.Time
	RealizedProfit int64 // paise
}

// Lot is a single purchase transaction. All money fields are paise.
// InvestedAmount is fixed at creation and only changed by an explicit
// edit of the lot terms, never by sales; the invested amount still
// backing the remaining quantity is derived (see folio.RemainingInvested).
type Lot struct {
	LotID          int64
	Owner          string
	Category       Category
	Ticker         string
	FundHouse      string
	SchemeName     string
	SchemeCode     string
	OriginalQty    decimal.Decimal
	RemainingQty   decimal.Decimal
	UnitCost       int64 // purchase price/NAV per unit
	InvestedAmount int64
	CurrentPrice   int64 // latest mark price/NAV
	PurchaseDate   time.Time
	Status         LotStatus
	SoldDate       *time.Time
	Version        int64
	SalesHistory   []SaleRecord
}

// GroupKey identifies the logical holding: lots with equal category and
// group key merge into one position and are consumed by one sell request.
func (l Lot) GroupKey() string {
	if l.Category == CategoryEquity {
		return l.Ticker
	}
	return l.FundHouse + "|" + l.SchemeName
}

func (l Lot) DisplayName() string {
	if l.Category == CategoryEquity {
		return l.Ticker
	}
	return l.FundHouse + " - " + l.SchemeName
}

// SaleEffect is the staged outcome of a sale against one lot. Effects are
// computed in memory first and committed as a single batch.
type SaleEffect struct {
	LotID          int64
	Version        int64 // version the allocation was computed against
	RemainingAfter decimal.Decimal
	Exhausted      bool
	Sale           SaleRecord
}
