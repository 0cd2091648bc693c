package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/skjoshi/folio_tracker_bot/data/repository"
	"github.com/skjoshi/folio_tracker_bot/internal/converter/dbConverter"
	"github.com/skjoshi/folio_tracker_bot/internal/model"
	"github.com/skjoshi/folio_tracker_bot/internal/model/dbModel"
	"github.com/skjoshi/folio_tracker_bot/utils"
)

func (r *Postgres) InsertLot(ctx context.Context, lot model.Lot) (lotID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertLot"
	query := `
		INSERT INTO lots(
			owner_tag, category, ticker, fund_house, scheme_name, scheme_code,
			original_qty, remaining_qty, unit_cost, invested_amount, current_price,
			purchase_date, status
		)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING lot_id
	`

	slog.Debug("InsertLot start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertLot failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertLot completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", lotID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(
		ctx,
		query,
		lot.Owner,
		string(lot.Category),
		nullString(lot.Ticker),
		nullString(lot.FundHouse),
		nullString(lot.SchemeName),
		nullString(lot.SchemeCode),
		lot.OriginalQty,
		lot.RemainingQty,
		lot.UnitCost,
		lot.InvestedAmount,
		lot.CurrentPrice,
		lot.PurchaseDate,
		string(lot.Status),
	).Scan(&lotID)
	if err != nil {
		return 0, err
	}

	return lotID, nil
}

func (r *Postgres) GetLot(ctx context.Context, lotID int64) (lot model.Lot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetLot"
	query := `SELECT * FROM lots WHERE lot_id = $1`

	slog.Debug("GetLot start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", lotID))
	defer func() {
		if err != nil {
			slog.Error("GetLot failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetLot completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbLot := dbModel.Lot{}
	err = r.txOrDb(ctx).GetContext(ctx, &dbLot, query, lotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Lot{}, repository.ErrNotFound
		}
		return model.Lot{}, err
	}

	sales, err := r.getSales(ctx, []int64{lotID})
	if err != nil {
		return model.Lot{}, err
	}

	return dbConverter.ConvertLot(dbLot, sales[lotID]), nil
}

func (r *Postgres) GetLots(ctx context.Context, filter repository.LotFilter) (lots []model.Lot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetLots"

	sb := strings.Builder{}
	sb.WriteString(`SELECT * FROM lots WHERE 1=1`)
	args := make([]any, 0, 6)

	addCond := func(column string, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		sb.WriteString(fmt.Sprintf(" AND %s = $%d", column, len(args)))
	}

	addCond("owner_tag", filter.Owner)
	addCond("category", string(filter.Category))
	addCond("status", string(filter.Status))
	addCond("ticker", filter.Ticker)
	addCond("fund_house", filter.FundHouse)
	addCond("scheme_name", filter.SchemeName)
	sb.WriteString(" ORDER BY purchase_date, lot_id")

	query := sb.String()

	slog.Debug("GetLots start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("filter", filter))
	defer func() {
		if err != nil {
			slog.Error("GetLots failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetLots completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(lots)))
		}
	}()

	dbLots := make([]dbModel.Lot, 0)
	err = r.txOrDb(ctx).SelectContext(ctx, &dbLots, query, args...)
	if err != nil {
		return nil, err
	}

	if len(dbLots) == 0 {
		return nil, nil
	}

	lotIDs := make([]int64, 0, len(dbLots))
	for _, l := range dbLots {
		lotIDs = append(lotIDs, l.LotID)
	}

	salesByLot, err := r.getSales(ctx, lotIDs)
	if err != nil {
		return nil, err
	}

	lots = make([]model.Lot, 0, len(dbLots))
	for _, l := range dbLots {
		lots = append(lots, dbConverter.ConvertLot(l, salesByLot[l.LotID]))
	}

	return lots, nil
}

func (r *Postgres) getSales(ctx context.Context, lotIDs []int64) (salesByLot map[int64][]dbModel.SaleRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.getSales"
	query := `SELECT * FROM lot_sales WHERE lot_id IN (?) ORDER BY sale_id`

	slog.Debug("getSales start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("lotIDs", lotIDs))
	defer func() {
		if err != nil {
			slog.Error("getSales failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("getSales completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	query, args, err := sqlx.In(query, lotIDs)
	if err != nil {
		return nil, err
	}
	query = r.txOrDb(ctx).Rebind(query)

	dbSales := make([]dbModel.SaleRecord, 0)
	err = r.txOrDb(ctx).SelectContext(ctx, &dbSales, query, args...)
	if err != nil {
		return nil, err
	}

	salesByLot = make(map[int64][]dbModel.SaleRecord, len(lotIDs))
	for _, s := range dbSales {
		salesByLot[s.LotID] = append(salesByLot[s.LotID], s)
	}

	return salesByLot, nil
}

// ApplySaleEffects commits every per-lot effect of one sale in a single
// transaction. Each lot update checks the version the allocation was
// computed against; any mismatch rolls the whole batch back with
// repository.ErrConcurrentModification so the caller can re-read and retry.
func (r *Postgres) ApplySaleEffects(ctx context.Context, effects []model.SaleEffect) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ApplySaleEffects"

	slog.Debug("ApplySaleEffects start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("effects", len(effects)))

	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, e := range effects {
			if err := r.applySaleEffect(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("ApplySaleEffects failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("ApplySaleEffects completed", slog.String("rqID", rqID), slog.String("op", op))
	return nil
}

func (r *Postgres) applySaleEffect(ctx context.Context, e model.SaleEffect) error {
	// the sale path may move remaining_qty, status and sold_date only;
	// original_qty and invested_amount stay untouched
	updateQuery := `
		UPDATE lots
		SET
			remaining_qty = $1,
			status = $2,
			sold_date = $3,
			version = version + 1
		WHERE lot_id = $4 AND version = $5
	`

	status := model.StatusActive
	var soldDate sql.NullTime
	if e.Exhausted {
		status = model.StatusInactive
		soldDate = sql.NullTime{Time: e.Sale.SaleDate, Valid: true}
	}

	res, err := r.txOrDb(ctx).ExecContext(ctx, updateQuery, e.RemainingAfter, string(status), soldDate, e.LotID, e.Version)
	if err != nil {
		return fmt.Errorf("update lot %d: %w", e.LotID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for lot %d: %w", e.LotID, err)
	}
	if affected == 0 {
		return fmt.Errorf("lot %d: %w", e.LotID, repository.ErrConcurrentModification)
	}

	insertQuery := `
		INSERT INTO lot_sales(lot_id, quantity_sold, sale_price, sale_date, realized_profit)
		VALUES($1, $2, $3, $4, $5)
	`

	_, err = r.txOrDb(ctx).ExecContext(ctx, insertQuery, e.LotID, e.Sale.QuantitySold, e.Sale.SalePrice, e.Sale.SaleDate, e.Sale.RealizedProfit)
	if err != nil {
		return fmt.Errorf("insert sale for lot %d: %w", e.LotID, err)
	}

	return nil
}

// UpdateLotTerms is the explicit edit path for a lot's purchase terms.
// Quantities are out of reach here: they only move through sales.
func (r *Postgres) UpdateLotTerms(ctx context.Context, lotID int64, unitCost, investedAmount int64, purchaseDate time.Time) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateLotTerms"
	query := `
		UPDATE lots
		SET
			unit_cost = $1,
			invested_amount = $2,
			purchase_date = $3,
			version = version + 1
		WHERE lot_id = $4 AND status = 'ACTIVE'
	`

	slog.Debug("UpdateLotTerms start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("lotID", lotID))
	defer func() {
		if err != nil {
			slog.Error("UpdateLotTerms failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateLotTerms completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, unitCost, investedAmount, purchaseDate, lotID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *Postgres) UpdateFundPrice(ctx context.Context, schemeCode string, price int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateFundPrice"
	query := `
		UPDATE lots
		SET current_price = $1
		WHERE scheme_code = $2 AND status = 'ACTIVE'
	`

	slog.Debug("UpdateFundPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("schemeCode", schemeCode))
	defer func() {
		if err != nil {
			slog.Error("UpdateFundPrice failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateFundPrice completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, price, schemeCode)
	return err
}

func (r *Postgres) UpdateEquityPrice(ctx context.Context, ticker string, price int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateEquityPrice"
	query := `
		UPDATE lots
		SET current_price = $1
		WHERE ticker = $2 AND status = 'ACTIVE'
	`

	slog.Debug("UpdateEquityPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		if err != nil {
			slog.Error("UpdateEquityPrice failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateEquityPrice completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, price, ticker)
	return err
}

func (r *Postgres) GetActiveSchemeCodes(ctx context.Context) (codes []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetActiveSchemeCodes"
	query := `
		SELECT DISTINCT scheme_code FROM lots
		WHERE scheme_code IS NOT NULL AND status = 'ACTIVE'
	`

	slog.Debug("GetActiveSchemeCodes start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetActiveSchemeCodes failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetActiveSchemeCodes completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(codes)))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &codes, query)
	return codes, err
}

func (r *Postgres) GetActiveTickers(ctx context.Context) (tickers []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetActiveTickers"
	query := `
		SELECT DISTINCT ticker FROM lots
		WHERE ticker IS NOT NULL AND status = 'ACTIVE'
	`

	slog.Debug("GetActiveTickers start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetActiveTickers failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetActiveTickers completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(tickers)))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &tickers, query)
	return tickers, err
}

func (r *Postgres) GetOwners(ctx context.Context) (owners []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetOwners"
	query := `SELECT DISTINCT owner_tag FROM lots ORDER BY owner_tag`

	slog.Debug("GetOwners start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetOwners failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetOwners completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &owners, query)
	return owners, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
