package repository

import "github.com/skjoshi/folio_tracker_bot/internal/model"

// LotFilter narrows a lot query. Zero-valued fields are not applied, so
// the empty filter reads the whole store.
type LotFilter struct {
	Owner      string
	Category   model.Category
	Status     model.LotStatus
	Ticker     string
	FundHouse  string
	SchemeName string
}

// ForHolding filters one logical holding: ticker for equities,
// fund house + scheme name otherwise.
func ForHolding(owner string, category model.Category, ticker, fundHouse, schemeName string) LotFilter {
	f := LotFilter{Owner: owner, Category: category}
	if category == model.CategoryEquity {
		f.Ticker = ticker
	} else {
		f.FundHouse = fundHouse
		f.SchemeName = schemeName
	}
	return f
}
