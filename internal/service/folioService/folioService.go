package folioService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/skjoshi/folio_tracker_bot/config"
	"github.com/skjoshi/folio_tracker_bot/data/repository"
	"github.com/skjoshi/folio_tracker_bot/internal/folio"
	"github.com/skjoshi/folio_tracker_bot/internal/model"
	"github.com/skjoshi/folio_tracker_bot/internal/model/navModel"
	"github.com/skjoshi/folio_tracker_bot/internal/service"
	"github.com/skjoshi/folio_tracker_bot/utils"
)

type Repository interface {
	InsertLot(ctx context.Context, lot model.Lot) (lotID int64, err error)
	GetLot(ctx context.Context, lotID int64) (model.Lot, error)
	GetLots(ctx context.Context, filter repository.LotFilter) ([]model.Lot, error)
	ApplySaleEffects(ctx context.Context, effects []model.SaleEffect) error
	UpdateLotTerms(ctx context.Context, lotID int64, unitCost, investedAmount int64, purchaseDate time.Time) error
	UpdateFundPrice(ctx context.Context, schemeCode string, price int64) error
	UpdateEquityPrice(ctx context.Context, ticker string, price int64) error
	GetActiveSchemeCodes(ctx context.Context) ([]string, error)
	GetActiveTickers(ctx context.Context) ([]string, error)
	GetOwners(ctx context.Context) ([]string, error)
}

type Cache interface {
	SetNavs(ctx context.Context, navs []navModel.SchemeNav) error
	GetNav(ctx context.Context, schemeCode string) (navModel.SchemeNav, error)
	SetQuote(ctx context.Context, quote navModel.Quote) error
	GetQuote(ctx context.Context, ticker string) (navModel.Quote, error)
	SetSummary(ctx context.Context, owner string, summary model.PortfolioSummary) error
	GetSummary(ctx context.Context, owner string) (model.PortfolioSummary, error)
	SetPositions(ctx context.Context, owner string, positions []model.MergedPosition) error
	GetPositions(ctx context.Context, owner string) ([]model.MergedPosition, error)
	FlushOwner(ctx context.Context, owner string) error
}

type NavApi interface {
	GetSchemeNavs(ctx context.Context) ([]navModel.SchemeNav, error)
}

type QuoteApi interface {
	GetQuote(ctx context.Context, ticker string) (navModel.Quote, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.ReportData) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type FolioService struct {
	cfg          *config.Config
	repo         Repository
	cache        Cache
	navApi       NavApi
	quoteApi     QuoteApi
	reportGen    ReportGenerator
	cloudStorage CloudStorage
}

func New(
	cfg *config.Config,
	repo Repository,
	cache Cache,
	navApi NavApi,
	quoteApi QuoteApi,
	reportGen ReportGenerator,
	cloudStorage CloudStorage,
) *FolioService {
	return &FolioService{
		cfg:          cfg,
		repo:         repo,
		cache:        cache,
		navApi:       navApi,
		quoteApi:     quoteApi,
		reportGen:    reportGen,
		cloudStorage: cloudStorage,
	}
}

// AddLot records a new purchase. The lot starts with its full quantity
// remaining; invested amount and unit cost are fixed until an explicit
// edit of the terms.
func (s *FolioService) AddLot(ctx context.Context, lot model.Lot) (model.Lot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FolioService.AddLot"

	slog.Debug("AddLot start", slog.String("rqID", rqID), slog.String("op", op), slog.String("owner", lot.Owner))
	defer func() {
		slog.Debug("AddLot finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("owner", lot.Owner))
	}()

	if err := validateNewLot(lot); err != nil {
		return model.Lot{}, err
	}

	lot.RemainingQty = lot.OriginalQty
	lot.Status = model.StatusActive
	lot.SoldDate = nil

	if lot.CurrentPrice == 0 {
		lot.CurrentPrice = s.lookupPrice(ctx, lot)
	}

	lotID, err := s.repo.InsertLot(ctx, lot)
	if err != nil {
		slog.Error("got error from repo.InsertLot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Lot{}, err
	}
	lot.LotID = lotID

	s.flushOwner(ctx, lot.Owner)

	return lot, nil
}

// lookupPrice resolves an initial mark price from cache so a fresh lot is
// not valued at zero until the next refresh. Purchase cost stands in when
// nothing newer is known.
func (s *FolioService) lookupPrice(ctx context.Context, lot model.Lot) int64 {
	if lot.Category == model.CategoryEquity {
		if quote, err := s.cache.GetQuote(ctx, lot.Ticker); err == nil {
			return utils.ToPaise(quote.Price)
		}
		return lot.UnitCost
	}

	if lot.SchemeCode != "" {
		if nav, err := s.cache.GetNav(ctx, lot.SchemeCode); err == nil {
			return utils.ToPaise(nav.Nav)
		}
	}
	return lot.UnitCost
}

// SellHolding allocates the requested quantity across the holding's
// active lots oldest first and commits the staged effects as one batch.
// When a concurrent sale bumps a lot version between read and write, the
// whole allocation is recomputed from fresh lots and retried.
func (s *FolioService) SellHolding(ctx context.Context, owner string, req folio.SaleRequest) (effects []model.SaleEffect, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FolioService.SellHolding"

	slog.Debug("SellHolding start", slog.String("rqID", rqID), slog.String("op", op), slog.String("owner", owner), slog.String("groupKey", req.GroupKey))
	defer func() {
		if err != nil {
			slog.Debug("SellHolding failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SellHolding finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("lotsTouched", len(effects)))
		}
	}()

	filter := s.holdingFilter(owner, req)

	for attempt := 0; attempt < s.cfg.Portfolio.SellMaxRetries; attempt++ {
		lots, err := s.repo.GetLots(ctx, filter)
		if err != nil {
			slog.Error("got error from repo.GetLots", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, err
		}

		effects, err = folio.AllocateSale(lots, req)
		if err != nil {
			return nil, err
		}

		err = s.repo.ApplySaleEffects(ctx, effects)
		if err == nil {
			s.flushOwner(ctx, owner)
			return effects, nil
		}

		if !errors.Is(err, repository.ErrConcurrentModification) {
			slog.Error("got error from repo.ApplySaleEffects", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, err
		}

		slog.Warn("sale hit concurrent modification, retrying", slog.String("rqID", rqID), slog.String("op", op), slog.Int("attempt", attempt+1))
	}

	return nil, service.ErrSellConflict
}

func (s *FolioService) holdingFilter(owner string, req folio.SaleRequest) repository.LotFilter {
	if req.Category == model.CategoryEquity {
		return repository.ForHolding(owner, req.Category, req.GroupKey, "", "")
	}
	fundHouse, schemeName, _ := strings.Cut(req.GroupKey, "|")
	return repository.ForHolding(owner, req.Category, "", fundHouse, schemeName)
}

// GetPortfolio returns the merged positions of the owner's active lots,
// cached between mutations like the summary.
func (s *FolioService) GetPortfolio(ctx context.Context, owner string) ([]model.MergedPosition, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FolioService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("owner", owner))
	defer func() {
		slog.Debug("GetPortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("owner", owner))
	}()

	positions, err := s.cache.GetPositions(ctx, owner)
	if err == nil {
		return positions, nil
	}

	lots, err := s.repo.GetLots(ctx, repository.LotFilter{Owner: owner})
	if err != nil {
		slog.Error("got error from repo.GetLots", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	positions = folio.Merge(lots)

	go s.cache.SetPositions(context.WithoutCancel(ctx), owner, positions)

	return positions, nil
}

// GetSummary serves the owner's portfolio summary, cached between
// mutations and recomputed from the full lot set on a miss.
func (s *FolioService) GetSummary(ctx context.Context, owner string) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FolioService.GetSummary"

	slog.Debug("GetSummary start", slog.String("rqID", rqID), slog.String("op", op), slog.String("owner", owner))
	defer func() {
		slog.Debug("GetSummary finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("owner", owner))
	}()

	summary, err := s.cache.GetSummary(ctx, owner)
	if err == nil {
		return summary, nil
	}

	lots, err := s.repo.GetLots(ctx, repository.LotFilter{Owner: owner})
	if err != nil {
		slog.Error("got error from repo.GetLots", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, err
	}

	summary = folio.Summarize(lots, s.cfg.Portfolio.TimelineCutoff)

	go s.cache.SetSummary(context.WithoutCancel(ctx), owner, summary)

	return summary, nil
}

// GetSoldInvestments returns the owner's fully sold holdings with their
// per-sale history, newest sale first.
func (s *FolioService) GetSoldInvestments(ctx context.Context, owner string) ([]model.SoldGroup, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FolioService.GetSoldInvestments"

	slog.Debug("GetSoldInvestments start", slog.String("rqID", rqID), slog.String("op", op), slog.String("owner", owner))
	defer func() {
		slog.Debug("GetSoldInvestments finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("owner", owner))
	}()

	lots, err := s.repo.GetLots(ctx, repository.LotFilter{Owner: owner, Status: model.StatusInactive})
	if err != nil {
		slog.Error("got error from repo.GetLots", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return folio.GroupSold(lots), nil
}

// EditLotTerms corrects the purchase terms of an active lot. Quantities
// never change here, they only move through sales.
func (s *FolioService) EditLotTerms(ctx context.Context, lotID int64, unitCost, investedAmount int64, purchaseDate time.Time) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FolioService.EditLotTerms"

	slog.Debug("EditLotTerms start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", lotID))
	defer func() {
		slog.Debug("EditLotTerms finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", lotID))
	}()

	if unitCost <= 0 || investedAmount < 0 || purchaseDate.IsZero() {
		return fmt.Errorf("%w: unit cost, invested amount and purchase date must be valid", folio.ErrInvalidRequest)
	}

	lot, err := s.repo.GetLot(ctx, lotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.GetLot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.repo.UpdateLotTerms(ctx, lotID, unitCost, investedAmount, purchaseDate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.UpdateLotTerms", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	s.flushOwner(ctx, lot.Owner)

	return nil
}

// RefreshPrices pulls the AMFI NAV feed and per-ticker quotes and writes
// fresh mark prices to the active lots. Runs from the scheduler; a single
// failed ticker does not stop the rest.
func (s *FolioService) RefreshPrices(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FolioService.RefreshPrices"

	slog.Debug("RefreshPrices start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshPrices finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	var firstErr error

	if err := s.refreshFundNavs(ctx); err != nil {
		firstErr = err
	}
	if err := s.refreshEquityQuotes(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	owners, err := s.repo.GetOwners(ctx)
	if err != nil {
		slog.Error("got error from repo.GetOwners", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		if firstErr == nil {
			firstErr = err
		}
	}
	for _, owner := range owners {
		s.flushOwner(ctx, owner)
	}

	return firstErr
}

func (s *FolioService) refreshFundNavs(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FolioService.refreshFundNavs"

	codes, err := s.repo.GetActiveSchemeCodes(ctx)
	if err != nil {
		slog.Error("got error from repo.GetActiveSchemeCodes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}
	if len(codes) == 0 {
		return nil
	}

	navs, err := s.navApi.GetSchemeNavs(ctx)
	if err != nil {
		slog.Error("got error from navApi.GetSchemeNavs", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	go s.cache.SetNavs(context.WithoutCancel(ctx), navs)

	navByCode := make(map[string]navModel.SchemeNav, len(navs))
	for _, nav := range navs {
		navByCode[nav.SchemeCode] = nav
	}

	updated := 0
	for _, code := range codes {
		nav, ok := navByCode[code]
		if !ok {
			slog.Warn("scheme code missing in NAV feed", slog.String("rqID", rqID), slog.String("op", op), slog.String("schemeCode", code))
			continue
		}

		if err := s.repo.UpdateFundPrice(ctx, code, utils.ToPaise(nav.Nav)); err != nil {
			slog.Error("got error from repo.UpdateFundPrice", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.String("schemeCode", code))
			continue
		}
		updated++
	}

	slog.Info("fund NAVs refreshed", slog.String("rqID", rqID), slog.Int("schemes", len(codes)), slog.Int("updated", updated))

	return nil
}

func (s *FolioService) refreshEquityQuotes(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FolioService.refreshEquityQuotes"

	tickers, err := s.repo.GetActiveTickers(ctx)
	if err != nil {
		slog.Error("got error from repo.GetActiveTickers", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	updated := 0
	for _, ticker := range tickers {
		quote, err := s.quoteApi.GetQuote(ctx, ticker)
		if err != nil {
			slog.Warn("can't get quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
			continue
		}

		go s.cache.SetQuote(context.WithoutCancel(ctx), quote)

		if err := s.repo.UpdateEquityPrice(ctx, ticker, utils.ToPaise(quote.Price)); err != nil {
			slog.Error("got error from repo.UpdateEquityPrice", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.String("ticker", ticker))
			continue
		}
		updated++
	}

	slog.Info("equity quotes refreshed", slog.String("rqID", rqID), slog.Int("tickers", len(tickers)), slog.Int("updated", updated))

	return nil
}

// ExportReport builds the xlsx workbook for the owner and uploads it to
// cloud storage, returning a shareable download link.
func (s *FolioService) ExportReport(ctx context.Context, owner string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "FolioService.ExportReport"

	slog.Debug("ExportReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("owner", owner))
	defer func() {
		slog.Debug("ExportReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("owner", owner))
	}()

	positions, err := s.GetPortfolio(ctx, owner)
	if err != nil {
		return "", err
	}

	sold, err := s.GetSoldInvestments(ctx, owner)
	if err != nil {
		return "", err
	}

	if len(positions) == 0 && len(sold) == 0 {
		return "", service.ErrNotFound
	}

	summary, err := s.GetSummary(ctx, owner)
	if err != nil {
		return "", err
	}

	report := model.ReportData{
		Owner:       owner,
		GeneratedAt: time.Now(),
		Positions:   positions,
		Sold:        sold,
		Summary:     summary,
	}

	fileBytes, fileExtension, err := s.reportGen.Generate(ctx, report)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	filename := fmt.Sprintf("folio_%s_%s%s", owner, time.Now().Format("2006-01-02"), fileExtension)
	downloadLink, err = s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return downloadLink, nil
}

// GetOwners lists every owner tag present in the store.
func (s *FolioService) GetOwners(ctx context.Context) ([]string, error) {
	return s.repo.GetOwners(ctx)
}

// flushOwner drops the owner's cached views synchronously so the next
// read cannot serve stale totals after a mutation.
func (s *FolioService) flushOwner(ctx context.Context, owner string) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if err := s.cache.FlushOwner(ctx, owner); err != nil {
		slog.Error("got error from cache.FlushOwner", slog.String("rqID", rqID), slog.String("owner", owner), slog.String("err", err.Error()))
	}
}

func validateNewLot(lot model.Lot) error {
	if lot.Owner == "" {
		return fmt.Errorf("%w: owner is required", folio.ErrInvalidRequest)
	}

	switch lot.Category {
	case model.CategoryEquity:
		if lot.Ticker == "" {
			return fmt.Errorf("%w: ticker is required for equity lots", folio.ErrInvalidRequest)
		}
	case model.CategoryFund, model.CategorySIP:
		if lot.FundHouse == "" || lot.SchemeName == "" {
			return fmt.Errorf("%w: fund house and scheme name are required for fund lots", folio.ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown category %q", folio.ErrInvalidRequest, lot.Category)
	}

	if !lot.OriginalQty.IsPositive() {
		return fmt.Errorf("%w: quantity must be > 0", folio.ErrInvalidRequest)
	}
	if lot.UnitCost <= 0 {
		return fmt.Errorf("%w: unit cost must be > 0", folio.ErrInvalidRequest)
	}
	if lot.InvestedAmount < 0 {
		return fmt.Errorf("%w: invested amount must be >= 0", folio.ErrInvalidRequest)
	}
	if lot.PurchaseDate.IsZero() {
		return fmt.Errorf("%w: purchase date is required", folio.ErrInvalidRequest)
	}

	return nil
}
