package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/skjoshi/folio_tracker_bot/config"
	"github.com/skjoshi/folio_tracker_bot/data"
	"github.com/skjoshi/folio_tracker_bot/data/cache"
	"github.com/skjoshi/folio_tracker_bot/data/repository/postgres"
	"github.com/skjoshi/folio_tracker_bot/data/session"
	"github.com/skjoshi/folio_tracker_bot/internal/externalApi/amfiApi"
	"github.com/skjoshi/folio_tracker_bot/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/skjoshi/folio_tracker_bot/internal/externalApi/yahooApi"
	"github.com/skjoshi/folio_tracker_bot/internal/reportGenerator/xslsxGenerator"
	"github.com/skjoshi/folio_tracker_bot/internal/scheduler"
	"github.com/skjoshi/folio_tracker_bot/internal/service/folioService"
	"github.com/skjoshi/folio_tracker_bot/internal/tgbot"
	"github.com/skjoshi/folio_tracker_bot/internal/transport/telegram"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	amfiApiClient := amfiApi.New(cfg)
	yahooApiClient := yahooApi.New(cfg)

	reportGenerator := xslsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	folioSrv := folioService.New(cfg, pgRepo, redisCache, amfiApiClient, yahooApiClient, reportGenerator, googleCloudStorage)

	sched := scheduler.New()
	sched.NewIntervalJob("refresh prices", folioSrv.RefreshPrices, cfg.Jobs.RefreshPricesInterval, true)
	sched.NewCrontabJob("drive cleanup", googleCloudStorage.DeleteOldFiles, cfg.Jobs.DriveCleanupCrontab, false)
	sched.Start()
	defer sched.Stop()

	tgController := telegram.NewController(cfg, folioSrv, redisSession)

	tgBot := tgbot.New(cfg, tgController, redisSession)
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
