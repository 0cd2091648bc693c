package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/skjoshi/folio_tracker_bot/utils"
)

type jobFn func(ctx context.Context) error

type Scheduler struct {
	scheduler gocron.Scheduler
}

func New() *Scheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		panic(err.Error())
	}
	return &Scheduler{scheduler: scheduler}
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Stop() {
	_ = s.scheduler.Shutdown()
}

func (s *Scheduler) NewIntervalJob(name string, fn jobFn, interval time.Duration, startImmediately bool) {
	s.addJob(gocron.DurationJob(interval), name, fn, startImmediately)
}

func (s *Scheduler) NewCrontabJob(name string, fn jobFn, crontab string, startImmediately bool) {
	s.addJob(gocron.CronJob(crontab, true), name, fn, startImmediately)
}

func (s *Scheduler) addJob(definition gocron.JobDefinition, name string, fn jobFn, startImmediately bool) {
	// singleton mode: a slow price refresh must not pile up behind itself
	opts := []gocron.JobOption{gocron.WithSingletonMode(gocron.LimitModeReschedule)}

	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err := s.scheduler.NewJob(definition, gocron.NewTask(s.runJob(fn, name)), opts...)
	if err != nil {
		slog.Error("can't create job", slog.String("jobName", name), slog.String("err", err.Error()))
		panic(err.Error())
	}
}

// runJob gives every run its own request id, so repository and cache logs
// written from a job line up the same way bot-driven calls do.
func (s *Scheduler) runJob(fn jobFn, jobName string) func() {
	return func() {
		ctx := utils.NewCtxWithRqID()
		rqID := utils.GetRequestIDFromCtx(ctx)
		started := time.Now()

		defer func() {
			if r := recover(); r != nil {
				slog.Error(
					"panic recovered in job",
					slog.String("rqID", rqID),
					slog.String("jobName", jobName),
					slog.Any("panic", r),
					slog.String("stacktrace", string(debug.Stack())),
				)
			}
		}()

		slog.Info("job start", slog.String("rqID", rqID), slog.String("jobName", jobName))

		if err := fn(ctx); err != nil {
			slog.Error("job failed", slog.String("rqID", rqID), slog.String("jobName", jobName), slog.String("err", err.Error()))
			return
		}

		slog.Info(
			"job completed",
			slog.String("rqID", rqID),
			slog.String("jobName", jobName),
			slog.String("job duration", fmt.Sprintf("%.2fs", time.Since(started).Seconds())),
		)
	}
}
