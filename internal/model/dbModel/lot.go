package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Lot struct {
	LotID          int64           `db:"lot_id"`
	Owner          string          `db:"owner_tag"`
	Category       string          `db:"category"`
	Ticker         sql.NullString  `db:"ticker"`
	FundHouse      sql.NullString  `db:"fund_house"`
	SchemeName     sql.NullString  `db:"scheme_name"`
	SchemeCode     sql.NullString  `db:"scheme_code"`
	OriginalQty    decimal.Decimal `db:"original_qty"`
	RemainingQty   decimal.Decimal `db:"remaining_qty"`
	UnitCost       int64           `db:"unit_cost"`
	InvestedAmount int64           `db:"invested_amount"`
	CurrentPrice   int64           `db:"current_price"`
	PurchaseDate   time.Time       `db:"purchase_date"`
	Status         string          `db:"status"`
	SoldDate       sql.NullTime    `db:"sold_date"`
	Version        int64           `db:"version"`
}

type SaleRecord struct {
	SaleID         int64           `db:"sale_id"`
	LotID          int64           `db:"lot_id"`
	QuantitySold   decimal.Decimal `db:"quantity_sold"`
	SalePrice      int64           `db:"sale_price"`
	SaleDate       time.Time       `db:"sale_date"`
	RealizedProfit int64           `db:"realized_profit"`
}
