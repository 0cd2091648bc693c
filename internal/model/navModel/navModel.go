package navModel

import (
	"time"

	"github.com/shopspring/decimal"
)

// SchemeNav is one row of the AMFI NAVAll feed.
type SchemeNav struct {
	SchemeCode string
	SchemeName string
	FundHouse  string
	Nav        decimal.Decimal
	Date       time.Time
}

// RawChart mirrors the Yahoo Finance chart response down to the fields we read.
type RawChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote is the parsed equity mark price.
type Quote struct {
	Ticker string
	Price  decimal.Decimal
}
