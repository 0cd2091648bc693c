package yahooApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/skjoshi/folio_tracker_bot/config"
	"github.com/skjoshi/folio_tracker_bot/internal/externalApi"
	"github.com/skjoshi/folio_tracker_bot/internal/model/navModel"
	"github.com/skjoshi/folio_tracker_bot/utils"
)

// YahooApi reads equity mark prices from the Yahoo Finance chart endpoint.
// NSE tickers are queried with the ".NS" suffix.
type YahooApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooUrl)
	return &YahooApi{client: client}
}

func (a *YahooApi) GetQuote(ctx context.Context, ticker string) (navModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/v8/finance/chart/%s.NS", ticker)
	params := map[string]string{
		"interval": "1d",
		"range":    "1d",
	}

	slog.Debug("start YahooApi.GetQuote request", slog.String("rqID", rqID), slog.String("ticker", ticker))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)
	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return navModel.Quote{}, err
	}

	rawChart := navModel.RawChart{}
	err = json.Unmarshal(resp.Body(), &rawChart)
	if err != nil {
		slog.Error("can't unmarshall response into navModel.RawChart", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return navModel.Quote{}, err
	}

	quote, err := parseRawChart(ticker, rawChart)
	if err != nil {
		slog.Error("can't parse raw chart", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("ticker", ticker))
		return navModel.Quote{}, err
	}

	slog.Debug("YahooApi.GetQuote request complete", slog.String("rqID", rqID))

	return quote, nil
}

func parseRawChart(ticker string, rawChart navModel.RawChart) (navModel.Quote, error) {
	if rawChart.Chart.Error != nil {
		if rawChart.Chart.Error.Code == "Not Found" {
			return navModel.Quote{}, externalApi.ErrNotFound
		}
		return navModel.Quote{}, fmt.Errorf("chart error %s: %s", rawChart.Chart.Error.Code, rawChart.Chart.Error.Description)
	}

	if len(rawChart.Chart.Result) == 0 {
		return navModel.Quote{}, externalApi.ErrNotFound
	}

	price := rawChart.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return navModel.Quote{}, fmt.Errorf("invalid regularMarketPrice %f for %s", price, ticker)
	}

	return navModel.Quote{
		Ticker: ticker,
		Price:  decimal.NewFromFloat(price),
	}, nil
}
