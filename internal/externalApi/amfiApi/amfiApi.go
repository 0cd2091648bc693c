package amfiApi

import (
	"bufio"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/skjoshi/folio_tracker_bot/config"
	"github.com/skjoshi/folio_tracker_bot/internal/model/navModel"
	"github.com/skjoshi/folio_tracker_bot/utils"
)

const navDateLayout = "02-Jan-2006"

// AmfiApi pulls the daily NAVAll feed published by AMFI. The feed is a
// semicolon-separated text file with fund house names on their own lines
// between scheme rows.
type AmfiApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *AmfiApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.AmfiUrl)
	return &AmfiApi{client: client}
}

func (a *AmfiApi) GetSchemeNavs(ctx context.Context) ([]navModel.SchemeNav, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start AmfiApi.GetSchemeNavs request", slog.String("rqID", rqID))

	resp, err := a.client.R().
		SetContext(ctx).
		Get("/spages/NAVAll.txt")
	if err != nil {
		slog.Error("error while dialing AmfiApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	navs := parseNavAll(string(resp.Body()))

	slog.Debug("AmfiApi.GetSchemeNavs request complete", slog.String("rqID", rqID), slog.Int("schemes", len(navs)))

	return navs, nil
}

// parseNavAll walks the NAVAll feed line by line. Scheme rows carry six
// semicolon-separated fields; lines without semicolons are either category
// headers (they mention "Schemes") or the fund house for the rows below.
// Rows that fail to parse are skipped, one bad scheme must not sink the
// whole refresh.
func parseNavAll(body string) []navModel.SchemeNav {
	navs := make([]navModel.SchemeNav, 0, 1024)
	fundHouse := ""

	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.Contains(line, ";") {
			if !strings.Contains(line, "Schemes") {
				fundHouse = line
			}
			continue
		}

		fields := strings.Split(line, ";")
		if len(fields) != 6 {
			continue
		}

		// header row repeats the column names
		if fields[0] == "Scheme Code" {
			continue
		}

		nav, err := decimal.NewFromString(strings.TrimSpace(fields[4]))
		if err != nil {
			continue
		}

		date, err := time.Parse(navDateLayout, strings.TrimSpace(fields[5]))
		if err != nil {
			continue
		}

		navs = append(navs, navModel.SchemeNav{
			SchemeCode: strings.TrimSpace(fields[0]),
			SchemeName: strings.TrimSpace(fields[3]),
			FundHouse:  fundHouse,
			Nav:        nav,
			Date:       date,
		})
	}

	return navs
}
