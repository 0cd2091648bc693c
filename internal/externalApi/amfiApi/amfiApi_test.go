package amfiApi

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const navAllSample = `Scheme Code;ISIN Div Payout/ ISIN Growth;ISIN Div Reinvestment;Scheme Name;Net Asset Value;Date

Open Ended Schemes(Debt Scheme - Banking and PSU Fund)

Aditya Birla Sun Life Mutual Fund

119551;INF209KA12Z1;INF209K01YM2;Aditya Birla Sun Life Banking & PSU Debt Fund - DIRECT - IDCW;103.2938;27-Aug-2026
119552;INF209K01YN0;-;Aditya Birla Sun Life Banking & PSU Debt Fund - DIRECT - Growth;345.1276;27-Aug-2026

Axis Mutual Fund

120437;INF846K01ET8;-;Axis Banking & PSU Debt Fund - Direct Plan - Growth;2503.7007;27-Aug-2026

Open Ended Schemes(Equity Scheme - Flexi Cap Fund)

Parag Parikh Mutual Fund

122639;INF879O01027;-;Parag Parikh Flexi Cap Fund - Direct Plan - Growth;87.1234;27-Aug-2026
999999;INF000000000;-;Broken Scheme Row;not-a-number;27-Aug-2026
`

func TestParseNavAll(t *testing.T) {
	navs := parseNavAll(navAllSample)

	require.Len(t, navs, 4)

	assert.Equal(t, "119551", navs[0].SchemeCode)
	assert.Equal(t, "Aditya Birla Sun Life Banking & PSU Debt Fund - DIRECT - IDCW", navs[0].SchemeName)
	assert.Equal(t, "Aditya Birla Sun Life Mutual Fund", navs[0].FundHouse)
	assert.True(t, navs[0].Nav.Equal(decimal.RequireFromString("103.2938")))
	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), navs[0].Date)

	// fund house follows the most recent house line, not the category header
	assert.Equal(t, "Axis Mutual Fund", navs[2].FundHouse)
	assert.Equal(t, "Parag Parikh Mutual Fund", navs[3].FundHouse)
}

func TestParseNavAllSkipsMalformedRows(t *testing.T) {
	navs := parseNavAll(navAllSample)

	for _, nav := range navs {
		assert.NotEqual(t, "999999", nav.SchemeCode)
	}
}

func TestParseNavAllEmptyBody(t *testing.T) {
	assert.Empty(t, parseNavAll(""))
}
