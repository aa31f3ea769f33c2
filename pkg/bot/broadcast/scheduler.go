package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Scheduler runs a Job on a five-field cron schedule evaluated in UTC.
type Scheduler struct {
	job      *Job
	schedule cron.Schedule
	spec     string
}

func NewScheduler(job *Job, spec string) (*Scheduler, error) {
	schedule, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid broadcast schedule %q: %w", spec, err)
	}
	return &Scheduler{job: job, schedule: schedule, spec: spec}, nil
}

// Next reports the first run after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.UTC())
}

// Run blocks until ctx is cancelled, then waits for a running round to stop.
// A round still running when the next one is due is not overlapped.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithParser(scheduleParser),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		s.job.Run(ctx)
	}))

	c.Start()
	logger.Info("broadcast scheduler started", "schedule", s.spec, "next_run", s.Next(time.Now()))

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	logger.Info("broadcast scheduler stopped")
	return nil
}

// cronLogger forwards cron's own log lines.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
