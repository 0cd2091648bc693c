package xslsxGenerator

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/skjoshi/folio_tracker_bot/internal/model"
)

func TestGenerateEmptyReport(t *testing.T) {
	g := New()

	fileBytes, ext, err := g.Generate(context.Background(), model.ReportData{
		Owner:       "self",
		GeneratedAt: time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, ".xlsx", ext)
	assert.NotEmpty(t, fileBytes, "a header-only workbook is still a workbook")
}

func TestGenerateWritesHoldings(t *testing.T) {
	g := New()

	report := model.ReportData{
		Owner:       "self",
		GeneratedAt: time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC),
		Positions: []model.MergedPosition{{
			Category:          model.CategoryEquity,
			GroupKey:          "TCS",
			Ticker:            "TCS",
			TotalRemainingQty: decimal.NewFromInt(10),
			AvgUnitCost:       350050,
			RemainingInvested: 3500500,
			CurrentPrice:      360000,
			CurrentValue:      3600000,
			UnrealizedGain:    99500,
		}},
	}

	fileBytes, _, err := g.Generate(context.Background(), report)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue("Holdings", "B3")
	require.NoError(t, err)
	assert.Equal(t, "TCS", name)

	// money cells hold rupees, 3500500 paise
	invested, err := f.GetCellValue("Holdings", "E3")
	require.NoError(t, err)
	assert.Equal(t, "35005", invested)
}
