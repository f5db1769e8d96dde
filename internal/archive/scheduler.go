package archive

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/Tiliavir/timeex/internal/log"
)

// Scheduler runs archive passes for a set of users on a cron schedule.
type Scheduler struct {
	tracker *Tracker
	cron    *cron.Cron
	users   func(ctx context.Context) []string
	log     *log.Logger
	ctx     context.Context
}

// cronLogger adapts log.Logger to cron.Logger.
type cronLogger struct{ l *log.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}

// NewScheduler parses spec (standard cron syntax or a descriptor such as
// "@every 1h") and prepares a job scanning every user returned by users.
func NewScheduler(ctx context.Context, t *Tracker, spec string, users func(ctx context.Context) []string) (*Scheduler, error) {
	s := &Scheduler{
		tracker: t,
		users:   users,
		log:     t.log,
		ctx:     ctx,
	}
	s.cron = cron.New(
		cron.WithLogger(cronLogger{t.log}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{t.log})),
	)
	if _, err := s.cron.AddFunc(spec, s.Tick); err != nil {
		return nil, fmt.Errorf("invalid archive schedule %q: %w", spec, err)
	}
	return s, nil
}

// Tick runs one pass per user. Users without an enabled archive are
// skipped silently.
func (s *Scheduler) Tick() {
	for _, userID := range s.users(s.ctx) {
		if s.ctx.Err() != nil {
			return
		}
		s.tracker.Trigger(s.ctx, userID)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("archive scheduler started")
}

// Stop halts the schedule and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("archive scheduler stopped")
}
