package tracker

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/timecalc"
)

// Timer entry defaults.
const (
	UntitledProject  = "Untitled Task"
	TimerDescription = "Timer entry"
)

// StartTimer starts the stopwatch, or resumes it when paused. A non-empty
// project or non-nil rate replaces the stored one.
func (s *Service) StartTimer(ctx context.Context, sess model.Session, project string, rate *float64) (model.TimerState, error) {
	if rate != nil && (math.IsNaN(*rate) || math.IsInf(*rate, 0) || *rate < 0) {
		return model.TimerState{}, model.NewValidationError("hourly rate", "must not be negative")
	}
	t := s.repo.Timer(ctx, sess.UserID)
	if t.Running {
		return t, model.ErrTimerRunning
	}
	if t.Elapsed == 0 {
		t.HourlyRate = s.DefaultRate
	}
	if p := strings.TrimSpace(project); p != "" {
		t.Project = p
	}
	if rate != nil {
		t.HourlyRate = *rate
	}
	t.Running = true
	t.StartedAt = s.Now()
	if err := s.repo.SaveTimer(ctx, sess.UserID, t); err != nil {
		return model.TimerState{}, err
	}
	return t, nil
}

// PauseTimer freezes the elapsed time.
func (s *Service) PauseTimer(ctx context.Context, sess model.Session) (model.TimerState, error) {
	t := s.repo.Timer(ctx, sess.UserID)
	if !t.Running {
		return t, model.ErrTimerNotRunning
	}
	t.Elapsed = t.ElapsedAt(s.Now())
	t.Running = false
	t.StartedAt = time.Time{}
	if err := s.repo.SaveTimer(ctx, sess.UserID, t); err != nil {
		return model.TimerState{}, err
	}
	return t, nil
}

// StopTimer resets the stopwatch and saves the tracked time as a timer
// entry. The returned entry is nil when no time was tracked.
func (s *Service) StopTimer(ctx context.Context, sess model.Session) (*model.TimeEntry, time.Duration, error) {
	t := s.repo.Timer(ctx, sess.UserID)
	if !t.Running && t.Elapsed == 0 {
		return nil, 0, model.ErrTimerNotRunning
	}
	now := s.Now()
	elapsed := t.ElapsedAt(now)
	if err := s.repo.ClearTimer(ctx, sess.UserID); err != nil {
		return nil, 0, err
	}

	hours := elapsed.Hours()
	if hours <= 0 {
		return nil, elapsed, nil
	}
	project := t.Project
	if project == "" {
		project = UntitledProject
	}
	e := model.TimeEntry{
		ID:          timecalc.GenerateID(now),
		Date:        timecalc.FormatISO(timecalc.Today(now)),
		Project:     project,
		Description: TimerDescription,
		Duration:    hours,
		HourlyRate:  t.HourlyRate,
		TotalAmount: hours * t.HourlyRate,
		CreatedAt:   now.UTC(),
		Source:      model.SourceTimer,
	}
	if err := s.append(ctx, sess.UserID, e); err != nil {
		return nil, elapsed, err
	}
	return &e, elapsed, nil
}

// TimerStatus returns the stored stopwatch state.
func (s *Service) TimerStatus(ctx context.Context, sess model.Session) model.TimerState {
	return s.repo.Timer(ctx, sess.UserID)
}
