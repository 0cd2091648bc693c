package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"

	"github.com/skjoshi/folio_tracker_bot/config"
	"github.com/skjoshi/folio_tracker_bot/data/session"
	"github.com/skjoshi/folio_tracker_bot/internal/converter/telebotConverter"
	"github.com/skjoshi/folio_tracker_bot/internal/folio"
	"github.com/skjoshi/folio_tracker_bot/internal/model"
	"github.com/skjoshi/folio_tracker_bot/internal/service"
	"github.com/skjoshi/folio_tracker_bot/utils"
)

const internalErrMsg = "something went wrong, try again later"

const addLotHelp = `Send the lot in one line:

equity: EQUITY;TICKER;QTY;PRICE;DD-MM-YYYY
fund:   FUND;Fund House;Scheme Name;Scheme Code;UNITS;NAV;DD-MM-YYYY
sip:    SIP;Fund House;Scheme Name;Scheme Code;UNITS;NAV;DD-MM-YYYY (date = SIP start)`

const sellHelp = `Send the sale in one line:

equity: EQUITY;TICKER;QTY;PRICE;DD-MM-YYYY
fund:   FUND;Fund House;Scheme Name;UNITS;NAV;DD-MM-YYYY`

const editLotHelp = `Send the correction in one line:

LOT_ID;UNIT_COST;INVESTED_AMOUNT;DD-MM-YYYY`

type FolioService interface {
	AddLot(ctx context.Context, lot model.Lot) (model.Lot, error)
	SellHolding(ctx context.Context, owner string, req folio.SaleRequest) ([]model.SaleEffect, error)
	GetPortfolio(ctx context.Context, owner string) ([]model.MergedPosition, error)
	GetSummary(ctx context.Context, owner string) (model.PortfolioSummary, error)
	GetSoldInvestments(ctx context.Context, owner string) ([]model.SoldGroup, error)
	EditLotTerms(ctx context.Context, lotID int64, unitCost, investedAmount int64, purchaseDate time.Time) error
	ExportReport(ctx context.Context, owner string) (downloadLink string, err error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type Controller struct {
	cfg          *config.Config
	folioService FolioService
	session      Session
}

func NewController(cfg *config.Config, folioService FolioService, session Session) *Controller {
	return &Controller{
		cfg:          cfg,
		folioService: folioService,
		session:      session,
	}
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Send(`Hello! I track your investment lots.

/portfolio - merged holdings
/summary - gain totals
/sold - fully sold investments
/addlot - record a purchase
/sell - record a sale (oldest lots first)
/editlot - correct a lot's purchase terms
/report - export xlsx to Drive
/owner - switch owner tag`)
}

func (ctrl *Controller) Portfolio(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	owner, err := ctrl.ownerFromSession(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	positions, err := ctrl.folioService.GetPortfolio(ctx, owner)
	if err != nil {
		slog.Error("got error from folioService.GetPortfolio", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	text, markup := telebotConverter.PortfolioResponse(owner, positions)
	return c.Send(text, markup, tele.ModeMarkdown)
}

func (ctrl *Controller) Summary(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	owner, err := ctrl.ownerFromSession(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	summary, err := ctrl.folioService.GetSummary(ctx, owner)
	if err != nil {
		slog.Error("got error from folioService.GetSummary", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.SummaryResponse(owner, summary), tele.ModeMarkdown)
}

func (ctrl *Controller) Sold(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	owner, err := ctrl.ownerFromSession(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	groups, err := ctrl.folioService.GetSoldInvestments(ctx, owner)
	if err != nil {
		slog.Error("got error from folioService.GetSoldInvestments", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.SoldResponse(owner, groups), tele.ModeMarkdown)
}

func (ctrl *Controller) Report(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	owner, err := ctrl.ownerFromSession(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	link, err := ctrl.folioService.ExportReport(ctx, owner)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send("nothing to export yet, record a lot first with /addlot")
		}
		slog.Error("got error from folioService.ExportReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(fmt.Sprintf("📄 Report ready: %s", link))
}

func (ctrl *Controller) InitSetOwner(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.setSessionAction(ctx, c, model.ExpectingOwnerTag); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Send the owner tag (e.g. self, spouse):")
}

func (ctrl *Controller) ProcessSetOwner(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	owner := strings.TrimSpace(c.Message().Text)
	if owner == "" {
		return c.Send("owner tag can't be empty")
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return c.Send(internalErrMsg)
	}

	chatSession.Action = model.DefaultAction
	chatSession.Owner = owner
	err = ctrl.session.SetSession(ctx, strconv.FormatInt(c.Chat().ID, 10), chatSession)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(fmt.Sprintf("Tracking lots for *%s* now.", owner), tele.ModeMarkdown)
}

func (ctrl *Controller) InitAddLot(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.setSessionAction(ctx, c, model.ExpectingAddLotInput); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(addLotHelp)
}

func (ctrl *Controller) ProcessAddLot(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	owner, err := ctrl.ownerFromSession(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	defer ctrl.resetSessionAction(ctx, c)

	lot, err := parseAddLotInput(c.Message().Text, owner)
	if err != nil {
		return c.Send(fmt.Sprintf("can't read that: %s\n\n%s", err, addLotHelp))
	}

	lot, err = ctrl.folioService.AddLot(ctx, lot)
	if err != nil {
		if errors.Is(err, folio.ErrInvalidRequest) {
			return c.Send(fmt.Sprintf("invalid lot: %s", err))
		}
		slog.Error("got error from folioService.AddLot", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.LotAddedResponse(lot))
}

func (ctrl *Controller) InitSell(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.setSessionAction(ctx, c, model.ExpectingSellInput); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(sellHelp)
}

func (ctrl *Controller) ProcessSell(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	owner, err := ctrl.ownerFromSession(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	defer ctrl.resetSessionAction(ctx, c)

	req, err := parseSellInput(c.Message().Text)
	if err != nil {
		return c.Send(fmt.Sprintf("can't read that: %s\n\n%s", err, sellHelp))
	}

	effects, err := ctrl.folioService.SellHolding(ctx, owner, req)
	if err != nil {
		switch {
		case errors.Is(err, folio.ErrInsufficientQuantity):
			return c.Send(fmt.Sprintf("not enough units: %s", err))
		case errors.Is(err, folio.ErrInvalidRequest):
			return c.Send(fmt.Sprintf("invalid sale: %s", err))
		case errors.Is(err, service.ErrSellConflict):
			return c.Send("the holding changed while selling, please retry")
		}
		slog.Error("got error from folioService.SellHolding", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.SaleResponse(effects), tele.ModeMarkdown)
}

func (ctrl *Controller) InitEditLot(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.setSessionAction(ctx, c, model.ExpectingEditLotInput); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(editLotHelp)
}

func (ctrl *Controller) ProcessEditLot(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	defer ctrl.resetSessionAction(ctx, c)

	lotID, unitCost, invested, purchaseDate, err := parseEditLotInput(c.Message().Text)
	if err != nil {
		return c.Send(fmt.Sprintf("can't read that: %s\n\n%s", err, editLotHelp))
	}

	err = ctrl.folioService.EditLotTerms(ctx, lotID, unitCost, invested, purchaseDate)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.Send("no active lot with that id")
		case errors.Is(err, folio.ErrInvalidRequest):
			return c.Send(fmt.Sprintf("invalid terms: %s", err))
		}
		slog.Error("got error from folioService.EditLotTerms", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(fmt.Sprintf("✅ Lot #%d updated", lotID))
}

func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	chatSession, err := ctrl.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
		return model.Session{}, err
	}
	return chatSession, nil
}

// ownerFromSession resolves the owner tag for the chat, falling back to
// the configured default when the chat never picked one.
func (ctrl *Controller) ownerFromSession(ctx context.Context, c tele.Context) (string, error) {
	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return "", err
	}

	if chatSession.Owner != "" {
		return chatSession.Owner, nil
	}
	return ctrl.cfg.Portfolio.DefaultOwnerTag, nil
}

func (ctrl *Controller) setSessionAction(ctx context.Context, c tele.Context, action model.Action) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}

	chatSession.Action = action
	err = ctrl.session.SetSession(ctx, strconv.FormatInt(c.Chat().ID, 10), chatSession)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}
	return nil
}

func (ctrl *Controller) resetSessionAction(ctx context.Context, c tele.Context) {
	_ = ctrl.setSessionAction(ctx, c, model.DefaultAction)
}

func parseAddLotInput(input, owner string) (model.Lot, error) {
	fields := splitFields(input)
	if len(fields) < 1 {
		return model.Lot{}, errors.New("empty input")
	}

	category := model.Category(strings.ToUpper(fields[0]))

	switch category {
	case model.CategoryEquity:
		// EQUITY;TICKER;QTY;PRICE;DATE
		if len(fields) != 5 {
			return model.Lot{}, errors.New("expected 5 fields for an equity lot")
		}

		qty, unitCost, date, err := parseQtyPriceDate(fields[2], fields[3], fields[4])
		if err != nil {
			return model.Lot{}, err
		}

		return model.Lot{
			Owner:          owner,
			Category:       category,
			Ticker:         strings.ToUpper(fields[1]),
			OriginalQty:    qty,
			UnitCost:       unitCost,
			InvestedAmount: folio.QtyTimesPaise(qty, unitCost),
			PurchaseDate:   date,
		}, nil

	case model.CategoryFund, model.CategorySIP:
		// FUND;HOUSE;SCHEME;CODE;UNITS;NAV;DATE
		if len(fields) != 7 {
			return model.Lot{}, errors.New("expected 7 fields for a fund lot")
		}

		qty, unitCost, date, err := parseQtyPriceDate(fields[4], fields[5], fields[6])
		if err != nil {
			return model.Lot{}, err
		}

		return model.Lot{
			Owner:          owner,
			Category:       category,
			FundHouse:      fields[1],
			SchemeName:     fields[2],
			SchemeCode:     fields[3],
			OriginalQty:    qty,
			UnitCost:       unitCost,
			InvestedAmount: folio.QtyTimesPaise(qty, unitCost),
			PurchaseDate:   date,
		}, nil
	}

	return model.Lot{}, fmt.Errorf("unknown category %q", fields[0])
}

func parseSellInput(input string) (folio.SaleRequest, error) {
	fields := splitFields(input)
	if len(fields) < 1 {
		return folio.SaleRequest{}, errors.New("empty input")
	}

	category := model.Category(strings.ToUpper(fields[0]))

	switch category {
	case model.CategoryEquity:
		// EQUITY;TICKER;QTY;PRICE;DATE
		if len(fields) != 5 {
			return folio.SaleRequest{}, errors.New("expected 5 fields for an equity sale")
		}

		qty, price, date, err := parseQtyPriceDate(fields[2], fields[3], fields[4])
		if err != nil {
			return folio.SaleRequest{}, err
		}

		return folio.SaleRequest{
			Category:  category,
			GroupKey:  strings.ToUpper(fields[1]),
			Quantity:  qty,
			SalePrice: price,
			SaleDate:  date,
		}, nil

	case model.CategoryFund, model.CategorySIP:
		// FUND;HOUSE;SCHEME;UNITS;NAV;DATE
		if len(fields) != 6 {
			return folio.SaleRequest{}, errors.New("expected 6 fields for a fund sale")
		}

		qty, price, date, err := parseQtyPriceDate(fields[3], fields[4], fields[5])
		if err != nil {
			return folio.SaleRequest{}, err
		}

		return folio.SaleRequest{
			Category:  category,
			GroupKey:  fields[1] + "|" + fields[2],
			Quantity:  qty,
			SalePrice: price,
			SaleDate:  date,
		}, nil
	}

	return folio.SaleRequest{}, fmt.Errorf("unknown category %q", fields[0])
}

func parseEditLotInput(input string) (lotID, unitCost, invested int64, purchaseDate time.Time, err error) {
	fields := splitFields(input)
	if len(fields) != 4 {
		return 0, 0, 0, time.Time{}, errors.New("expected 4 fields")
	}

	lotID, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, 0, time.Time{}, fmt.Errorf("bad lot id %q", fields[0])
	}

	unitCost, err = parseRupees(fields[1])
	if err != nil {
		return 0, 0, 0, time.Time{}, err
	}

	invested, err = parseRupees(fields[2])
	if err != nil {
		return 0, 0, 0, time.Time{}, err
	}

	purchaseDate, err = utils.ParseDate(fields[3])
	if err != nil {
		return 0, 0, 0, time.Time{}, err
	}

	return lotID, unitCost, invested, purchaseDate, nil
}

func parseQtyPriceDate(qtyStr, priceStr, dateStr string) (qty decimal.Decimal, price int64, date time.Time, err error) {
	qty, err = decimal.NewFromString(qtyStr)
	if err != nil {
		return decimal.Zero, 0, time.Time{}, fmt.Errorf("bad quantity %q", qtyStr)
	}

	price, err = parseRupees(priceStr)
	if err != nil {
		return decimal.Zero, 0, time.Time{}, err
	}

	date, err = utils.ParseDate(dateStr)
	if err != nil {
		return decimal.Zero, 0, time.Time{}, err
	}

	return qty, price, date, nil
}

func parseRupees(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q", s)
	}
	return utils.ToPaise(d), nil
}

func splitFields(input string) []string {
	parts := strings.Split(input, ";")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			fields = append(fields, p)
		}
	}
	return fields
}
