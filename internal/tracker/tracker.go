// Package tracker records time entries and runs the per-user stopwatch.
package tracker

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Tiliavir/timeex/internal/audit"
	"github.com/Tiliavir/timeex/internal/log"
	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/storage"
	"github.com/Tiliavir/timeex/internal/timecalc"
)

// ArchiveTrigger is notified after a user's entries were saved.
type ArchiveTrigger interface {
	Trigger(ctx context.Context, userID string)
}

// Service owns the entry list and timer of each user.
type Service struct {
	repo    *storage.Repository
	audit   *audit.Log
	log     *log.Logger
	archive ArchiveTrigger

	// DefaultRate applies to timers started without an explicit rate.
	DefaultRate float64
	Now         func() time.Time
}

func New(repo *storage.Repository, auditLog *audit.Log, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		repo:  repo,
		audit: auditLog,
		log:   logger.WithComponent(log.ComponentTracker),
		Now:   time.Now,
	}
}

// SetArchiveTrigger installs the hook run after entries are saved.
func (s *Service) SetArchiveTrigger(t ArchiveTrigger) {
	s.archive = t
}

// EntryInput is a manual entry as submitted by the user. A nil TotalAmount
// is computed as Duration × HourlyRate rounded to cents. An empty Date
// means today.
type EntryInput struct {
	Date        string
	Project     string
	Description string
	Duration    float64
	HourlyRate  float64
	TotalAmount *float64
}

func (in EntryInput) validate() error {
	if _, err := timecalc.ParseDate(in.Date); err != nil {
		return model.NewValidationError("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", in.Date))
	}
	if strings.TrimSpace(in.Project) == "" {
		return model.NewValidationError("project", "is required")
	}
	if math.IsNaN(in.Duration) || math.IsInf(in.Duration, 0) || in.Duration <= 0 {
		return model.NewValidationError("duration", "must be a positive number of hours")
	}
	if math.IsNaN(in.HourlyRate) || math.IsInf(in.HourlyRate, 0) || in.HourlyRate < 0 {
		return model.NewValidationError("hourly rate", "must not be negative")
	}
	if in.TotalAmount != nil && (math.IsNaN(*in.TotalAmount) || math.IsInf(*in.TotalAmount, 0) || *in.TotalAmount < 0) {
		return model.NewValidationError("total amount", "must not be negative")
	}
	return nil
}

func (s *Service) today() string {
	return timecalc.FormatISO(timecalc.Today(s.Now()))
}

func (s *Service) fill(in EntryInput, e *model.TimeEntry) {
	e.Date = in.Date
	e.Project = strings.TrimSpace(in.Project)
	e.Description = strings.TrimSpace(in.Description)
	e.Duration = in.Duration
	e.HourlyRate = in.HourlyRate
	if in.TotalAmount != nil {
		e.TotalAmount = *in.TotalAmount
	} else {
		e.TotalAmount = roundCents(in.Duration * in.HourlyRate)
	}
}

func roundCents(f float64) float64 {
	return math.Round(f*100) / 100
}

// List returns the user's entries in storage order.
func (s *Service) List(ctx context.Context, sess model.Session) []model.TimeEntry {
	return s.repo.Entries(ctx, sess.UserID)
}

// Get returns the entry with the given id.
func (s *Service) Get(ctx context.Context, sess model.Session, id string) (model.TimeEntry, error) {
	for _, e := range s.repo.Entries(ctx, sess.UserID) {
		if e.ID == id {
			return e, nil
		}
	}
	return model.TimeEntry{}, fmt.Errorf("%s: %w", id, model.ErrEntryNotFound)
}

// Add appends a manual entry.
func (s *Service) Add(ctx context.Context, sess model.Session, in EntryInput) (model.TimeEntry, error) {
	if in.Date == "" {
		in.Date = s.today()
	}
	if err := in.validate(); err != nil {
		return model.TimeEntry{}, err
	}
	now := s.Now()
	e := model.TimeEntry{
		ID:        timecalc.GenerateID(now),
		CreatedAt: now.UTC(),
		Source:    model.SourceManual,
	}
	s.fill(in, &e)

	if err := s.append(ctx, sess.UserID, e); err != nil {
		return model.TimeEntry{}, err
	}
	s.record(ctx, sess.UserID, audit.ActionEntryAdd, e.ID)
	return e, nil
}

// Update replaces every user-editable field of entry id. The entry keeps
// its id, position, creation time and source.
func (s *Service) Update(ctx context.Context, sess model.Session, id string, in EntryInput) (model.TimeEntry, error) {
	if err := in.validate(); err != nil {
		return model.TimeEntry{}, err
	}
	entries := s.repo.Entries(ctx, sess.UserID)
	for i := range entries {
		if entries[i].ID != id {
			continue
		}
		s.fill(in, &entries[i])
		if err := s.repo.SaveEntries(ctx, sess.UserID, entries); err != nil {
			return model.TimeEntry{}, err
		}
		s.record(ctx, sess.UserID, audit.ActionEntryUpdate, id)
		s.triggerArchive(ctx, sess.UserID)
		return entries[i], nil
	}
	return model.TimeEntry{}, fmt.Errorf("%s: %w", id, model.ErrEntryNotFound)
}

// Delete removes entry id.
func (s *Service) Delete(ctx context.Context, sess model.Session, id string) error {
	entries := s.repo.Entries(ctx, sess.UserID)
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return fmt.Errorf("%s: %w", id, model.ErrEntryNotFound)
	}
	if err := s.repo.SaveEntries(ctx, sess.UserID, kept); err != nil {
		return err
	}
	s.record(ctx, sess.UserID, audit.ActionEntryDelete, id)
	return nil
}

// ExternalIDs returns the set of external ids among the user's entries.
func (s *Service) ExternalIDs(ctx context.Context, userID string) map[string]bool {
	return externalIDs(s.repo.Entries(ctx, userID))
}

func externalIDs(entries []model.TimeEntry) map[string]bool {
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.ExternalID != "" {
			known[e.ExternalID] = true
		}
	}
	return known
}

// Import appends entries that carry an ExternalID not yet present in the
// user's list and returns how many were added.
func (s *Service) Import(ctx context.Context, userID string, incoming []model.TimeEntry) (int, error) {
	entries := s.repo.Entries(ctx, userID)
	known := externalIDs(entries)

	added := 0
	for _, e := range incoming {
		if e.ExternalID == "" || known[e.ExternalID] {
			continue
		}
		known[e.ExternalID] = true
		entries = append(entries, e)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.repo.SaveEntries(ctx, userID, entries); err != nil {
		return 0, err
	}
	s.log.Info("entries imported", "user_id", userID, "count", added)
	s.triggerArchive(ctx, userID)
	return added, nil
}

func (s *Service) append(ctx context.Context, userID string, e model.TimeEntry) error {
	entries := s.repo.Entries(ctx, userID)
	if err := s.repo.SaveEntries(ctx, userID, append(entries, e)); err != nil {
		return err
	}
	s.log.Debug("entry saved", "user_id", userID, "entry_id", e.ID, "source", e.Source)
	s.triggerArchive(ctx, userID)
	return nil
}

func (s *Service) triggerArchive(ctx context.Context, userID string) {
	if s.archive != nil {
		s.archive.Trigger(ctx, userID)
	}
}

func (s *Service) record(ctx context.Context, userID, action, details string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, userID, action, details); err != nil {
		s.log.Warn("audit event not recorded", "action", action, "error", err)
	}
}
