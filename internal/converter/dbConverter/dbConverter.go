package dbConverter

import (
	"github.com/skjoshi/folio_tracker_bot/internal/model"
	"github.com/skjoshi/folio_tracker_bot/internal/model/dbModel"
)

func ConvertLot(dbLot dbModel.Lot, dbSales []dbModel.SaleRecord) model.Lot {
	lot := model.Lot{
		LotID:          dbLot.LotID,
		Owner:          dbLot.Owner,
		Category:       model.Category(dbLot.Category),
		Ticker:         dbLot.Ticker.String,
		FundHouse:      dbLot.FundHouse.String,
		SchemeName:     dbLot.SchemeName.String,
		SchemeCode:     dbLot.SchemeCode.String,
		OriginalQty:    dbLot.OriginalQty,
		RemainingQty:   dbLot.RemainingQty,
		UnitCost:       dbLot.UnitCost,
		InvestedAmount: dbLot.InvestedAmount,
		CurrentPrice:   dbLot.CurrentPrice,
		PurchaseDate:   dbLot.PurchaseDate,
		Status:         model.LotStatus(dbLot.Status),
		Version:        dbLot.Version,
	}

	if dbLot.SoldDate.Valid {
		soldDate := dbLot.SoldDate.Time
		lot.SoldDate = &soldDate
	}

	for _, s := range dbSales {
		lot.SalesHistory = append(lot.SalesHistory, ConvertSaleRecord(s))
	}

	return lot
}

func ConvertSaleRecord(dbSale dbModel.SaleRecord) model.SaleRecord {
	return model.SaleRecord{
		QuantitySold:   dbSale.QuantitySold,
		SalePrice:      dbSale.SalePrice,
		SaleDate:       dbSale.SaleDate,
		RealizedProfit: dbSale.RealizedProfit,
	}
}
