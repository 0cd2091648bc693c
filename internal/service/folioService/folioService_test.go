package folioService

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skjoshi/folio_tracker_bot/config"
	"github.com/skjoshi/folio_tracker_bot/data/repository"
	"github.com/skjoshi/folio_tracker_bot/internal/folio"
	"github.com/skjoshi/folio_tracker_bot/internal/model"
	"github.com/skjoshi/folio_tracker_bot/internal/model/navModel"
	"github.com/skjoshi/folio_tracker_bot/internal/service"
)

type stubRepo struct {
	lots           []model.Lot
	insertedLots   []model.Lot
	appliedEffects [][]model.SaleEffect
	applyErrs      []error // consumed per ApplySaleEffects call, nil after exhaustion
	applyCalls     int
	updateTermsErr error
}

func (r *stubRepo) InsertLot(_ context.Context, lot model.Lot) (int64, error) {
	r.insertedLots = append(r.insertedLots, lot)
	return int64(len(r.insertedLots)), nil
}

func (r *stubRepo) GetLot(_ context.Context, lotID int64) (model.Lot, error) {
	for _, l := range r.lots {
		if l.LotID == lotID {
			return l, nil
		}
	}
	return model.Lot{}, repository.ErrNotFound
}

func (r *stubRepo) GetLots(_ context.Context, _ repository.LotFilter) ([]model.Lot, error) {
	return r.lots, nil
}

func (r *stubRepo) ApplySaleEffects(_ context.Context, effects []model.SaleEffect) error {
	r.applyCalls++
	r.appliedEffects = append(r.appliedEffects, effects)
	if len(r.applyErrs) > 0 {
		err := r.applyErrs[0]
		r.applyErrs = r.applyErrs[1:]
		return err
	}
	return nil
}

func (r *stubRepo) UpdateLotTerms(_ context.Context, _ int64, _, _ int64, _ time.Time) error {
	return r.updateTermsErr
}

func (r *stubRepo) UpdateFundPrice(_ context.Context, _ string, _ int64) error   { return nil }
func (r *stubRepo) UpdateEquityPrice(_ context.Context, _ string, _ int64) error { return nil }
func (r *stubRepo) GetActiveSchemeCodes(_ context.Context) ([]string, error)     { return nil, nil }
func (r *stubRepo) GetActiveTickers(_ context.Context) ([]string, error)         { return nil, nil }
func (r *stubRepo) GetOwners(_ context.Context) ([]string, error)                { return nil, nil }

type stubCache struct {
	summary        model.PortfolioSummary
	summaryErr     error
	flushedOwners  []string
	storedSummarys int
}

func (c *stubCache) SetNavs(_ context.Context, _ []navModel.SchemeNav) error { return nil }
func (c *stubCache) GetNav(_ context.Context, _ string) (navModel.SchemeNav, error) {
	return navModel.SchemeNav{}, service.ErrNotFound
}
func (c *stubCache) SetQuote(_ context.Context, _ navModel.Quote) error { return nil }
func (c *stubCache) GetQuote(_ context.Context, _ string) (navModel.Quote, error) {
	return navModel.Quote{}, service.ErrNotFound
}
func (c *stubCache) SetSummary(_ context.Context, _ string, _ model.PortfolioSummary) error {
	c.storedSummarys++
	return nil
}
func (c *stubCache) GetSummary(_ context.Context, _ string) (model.PortfolioSummary, error) {
	return c.summary, c.summaryErr
}
func (c *stubCache) SetPositions(_ context.Context, _ string, _ []model.MergedPosition) error {
	return nil
}
func (c *stubCache) GetPositions(_ context.Context, _ string) ([]model.MergedPosition, error) {
	return nil, service.ErrNotFound
}
func (c *stubCache) FlushOwner(_ context.Context, owner string) error {
	c.flushedOwners = append(c.flushedOwners, owner)
	return nil
}

type stubNavApi struct{}

func (stubNavApi) GetSchemeNavs(_ context.Context) ([]navModel.SchemeNav, error) { return nil, nil }

type stubQuoteApi struct{}

func (stubQuoteApi) GetQuote(_ context.Context, ticker string) (navModel.Quote, error) {
	return navModel.Quote{Ticker: ticker, Price: decimal.NewFromInt(100)}, nil
}

type stubReportGen struct{}

func (stubReportGen) Generate(_ context.Context, _ model.ReportData) ([]byte, string, error) {
	return []byte("xlsx"), ".xlsx", nil
}

type stubCloudStorage struct{}

func (stubCloudStorage) UploadFile(_ context.Context, _ io.Reader, _ string) (string, error) {
	return "https://example.com/report", nil
}

func newTestService(repo *stubRepo, cache *stubCache) *FolioService {
	cfg := &config.Config{}
	cfg.Portfolio.TimelineCutoff = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	cfg.Portfolio.SellMaxRetries = 3
	return New(cfg, repo, cache, stubNavApi{}, stubQuoteApi{}, stubReportGen{}, stubCloudStorage{})
}

func activeFundLot(id int64, units string, unitCost, invested int64) model.Lot {
	return model.Lot{
		LotID:          id,
		Owner:          "self",
		Category:       model.CategoryFund,
		FundHouse:      "Quantum",
		SchemeName:     "Long Term Equity",
		SchemeCode:     "100555",
		OriginalQty:    decimal.RequireFromString(units),
		RemainingQty:   decimal.RequireFromString(units),
		UnitCost:       unitCost,
		InvestedAmount: invested,
		CurrentPrice:   unitCost,
		PurchaseDate:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:         model.StatusActive,
		Version:        1,
	}
}

func fundSale(units string, price int64) folio.SaleRequest {
	return folio.SaleRequest{
		Category:  model.CategoryFund,
		GroupKey:  "Quantum|Long Term Equity",
		Quantity:  decimal.RequireFromString(units),
		SalePrice: price,
		SaleDate:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAddLotSetsRemainingAndFlushesSummary(t *testing.T) {
	repo := &stubRepo{}
	cache := &stubCache{}
	svc := newTestService(repo, cache)

	lot, err := svc.AddLot(context.Background(), model.Lot{
		Owner:          "self",
		Category:       model.CategoryEquity,
		Ticker:         "TCS",
		OriginalQty:    decimal.NewFromInt(10),
		UnitCost:       350050,
		InvestedAmount: 3500500,
		PurchaseDate:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.EqualValues(t, 1, lot.LotID)
	assert.True(t, lot.RemainingQty.Equal(lot.OriginalQty))
	assert.Equal(t, model.StatusActive, lot.Status)
	assert.Equal(t, []string{"self"}, cache.flushedOwners)
}

func TestAddLotRejectsInvalidInput(t *testing.T) {
	svc := newTestService(&stubRepo{}, &stubCache{})

	tests := []struct {
		name string
		lot  model.Lot
	}{
		{
			name: "missing owner",
			lot: model.Lot{
				Category:     model.CategoryEquity,
				Ticker:       "TCS",
				OriginalQty:  decimal.NewFromInt(1),
				UnitCost:     100,
				PurchaseDate: time.Now(),
			},
		},
		{
			name: "equity without ticker",
			lot: model.Lot{
				Owner:        "self",
				Category:     model.CategoryEquity,
				OriginalQty:  decimal.NewFromInt(1),
				UnitCost:     100,
				PurchaseDate: time.Now(),
			},
		},
		{
			name: "fund without scheme",
			lot: model.Lot{
				Owner:        "self",
				Category:     model.CategoryFund,
				OriginalQty:  decimal.NewFromInt(1),
				UnitCost:     100,
				PurchaseDate: time.Now(),
			},
		},
		{
			name: "zero quantity",
			lot: model.Lot{
				Owner:        "self",
				Category:     model.CategoryEquity,
				Ticker:       "TCS",
				UnitCost:     100,
				PurchaseDate: time.Now(),
			},
		},
		{
			name: "unknown category",
			lot: model.Lot{
				Owner:        "self",
				Category:     model.Category("BOND"),
				OriginalQty:  decimal.NewFromInt(1),
				UnitCost:     100,
				PurchaseDate: time.Now(),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddLot(context.Background(), tc.lot)
			assert.ErrorIs(t, err, folio.ErrInvalidRequest)
		})
	}
}

func TestSellHoldingAppliesEffectsAndFlushesSummary(t *testing.T) {
	repo := &stubRepo{lots: []model.Lot{activeFundLot(1, "100", 5000, 500000)}}
	cache := &stubCache{}
	svc := newTestService(repo, cache)

	effects, err := svc.SellHolding(context.Background(), "self", fundSale("40", 7000))

	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, 1, repo.applyCalls)
	assert.Equal(t, []string{"self"}, cache.flushedOwners)
}

func TestSellHoldingRetriesOnConcurrentModification(t *testing.T) {
	repo := &stubRepo{
		lots:      []model.Lot{activeFundLot(1, "100", 5000, 500000)},
		applyErrs: []error{repository.ErrConcurrentModification},
	}
	cache := &stubCache{}
	svc := newTestService(repo, cache)

	effects, err := svc.SellHolding(context.Background(), "self", fundSale("40", 7000))

	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, 2, repo.applyCalls)
}

func TestSellHoldingGivesUpAfterMaxRetries(t *testing.T) {
	repo := &stubRepo{
		lots: []model.Lot{activeFundLot(1, "100", 5000, 500000)},
		applyErrs: []error{
			repository.ErrConcurrentModification,
			repository.ErrConcurrentModification,
			repository.ErrConcurrentModification,
		},
	}
	svc := newTestService(repo, &stubCache{})

	_, err := svc.SellHolding(context.Background(), "self", fundSale("40", 7000))

	assert.ErrorIs(t, err, service.ErrSellConflict)
	assert.Equal(t, 3, repo.applyCalls)
}

func TestSellHoldingInsufficientQuantityNotRetried(t *testing.T) {
	repo := &stubRepo{lots: []model.Lot{activeFundLot(1, "100", 5000, 500000)}}
	svc := newTestService(repo, &stubCache{})

	_, err := svc.SellHolding(context.Background(), "self", fundSale("150", 7000))

	assert.ErrorIs(t, err, folio.ErrInsufficientQuantity)
	assert.Zero(t, repo.applyCalls)
}

func TestGetSummaryServedFromCache(t *testing.T) {
	cached := model.PortfolioSummary{Overall: model.GainTotals{Invested: 123}}
	cache := &stubCache{summary: cached}
	svc := newTestService(&stubRepo{}, cache)

	summary, err := svc.GetSummary(context.Background(), "self")

	require.NoError(t, err)
	assert.EqualValues(t, 123, summary.Overall.Invested)
}

func TestGetSummaryRecomputedOnCacheMiss(t *testing.T) {
	repo := &stubRepo{lots: []model.Lot{activeFundLot(1, "100", 5000, 500000)}}
	cache := &stubCache{summaryErr: service.ErrNotFound}
	svc := newTestService(repo, cache)

	summary, err := svc.GetSummary(context.Background(), "self")

	require.NoError(t, err)
	assert.EqualValues(t, 500000, summary.Overall.Invested)
	assert.EqualValues(t, 500000, summary.Overall.CurrentValue)
}

func TestEditLotTermsUnknownLot(t *testing.T) {
	svc := newTestService(&stubRepo{}, &stubCache{})

	err := svc.EditLotTerms(context.Background(), 99, 100, 1000, time.Now())

	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestEditLotTermsRejectsInvalidInput(t *testing.T) {
	repo := &stubRepo{lots: []model.Lot{activeFundLot(1, "100", 5000, 500000)}}
	svc := newTestService(repo, &stubCache{})

	err := svc.EditLotTerms(context.Background(), 1, 0, 1000, time.Now())

	assert.ErrorIs(t, err, folio.ErrInvalidRequest)
}

func TestExportReportNothingToExport(t *testing.T) {
	cache := &stubCache{summaryErr: service.ErrNotFound}
	svc := newTestService(&stubRepo{}, cache)

	_, err := svc.ExportReport(context.Background(), "self")

	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestExportReportReturnsLink(t *testing.T) {
	repo := &stubRepo{lots: []model.Lot{activeFundLot(1, "100", 5000, 500000)}}
	cache := &stubCache{summaryErr: service.ErrNotFound}
	svc := newTestService(repo, cache)

	link, err := svc.ExportReport(context.Background(), "self")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/report", link)
}
