package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"LOG_LEVEL":                     "debug",
		"PG_HOST":                       "localhost",
		"PG_PORT":                       "5432",
		"PG_DB_NAME":                    "folio",
		"PG_PASSWORD":                   "secret",
		"PG_USER":                       "folio",
		"PG_MAX_OPEN_CONNS":             "10",
		"PG_CONN_MAX_LIFETIME":          "300",
		"PG_MAX_IDLE_CONNS":             "5",
		"PG_CONN_MAX_IDLE_TIME":         "60",
		"PG_MIGRATION_DIR":              "migrations",
		"TELEGRAM_TOKEN":                "token",
		"TELEGRAM_UPD_TIMEOUT":          "10s",
		"REDIS_HOST":                    "localhost",
		"REDIS_PORT":                    "6379",
		"REDIS_PASSWORD":                "",
		"REDIS_DB":                      "0",
		"API_DEBUG":                     "false",
		"API_TIMEOUT":                   "10s",
		"AMFI_NAV_URL":                  "https://www.amfiindia.com",
		"YAHOO_CHART_URL":               "https://query1.finance.yahoo.com",
		"CACHE_NAV_EXPIRATION":          "12h",
		"CACHE_SUMMARY_EXPIRATION":      "1h",
		"REFRESH_PRICES_JOB_INTERVAL":   "6h",
		"DRIVE_CLEANUP_CRONTAB":         "0 3 * * *",
		"GOOGLE_DRIVE_CREDENTIALS_FILE": "credentials.json",
		"GOOGLE_DRIVE_FILE_TTL":         "720h",
		"DEFAULT_OWNER_TAG":             "self",
		"SESSION_EXPIRATION":            "24h",
	} {
		t.Setenv(k, v)
	}
}

func TestMustLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := MustLoad()

	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), cfg.Portfolio.TimelineCutoff)
	assert.Equal(t, 3, cfg.Portfolio.SellMaxRetries)
}

func TestMustLoadParsesTimelineCutoffAtStartup(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TIMELINE_CUTOFF", "2024-10-01")

	cfg := MustLoad()

	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), cfg.Portfolio.TimelineCutoff)
}
