package tgCallback

const (
	ShowSummary  = "show_summary"
	ShowSold     = "show_sold"
	ExportReport = "export_report"
	AddLot       = "add_lot"
	SellHolding  = "sell_holding"
)
