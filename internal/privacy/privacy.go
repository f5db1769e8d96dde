// Package privacy implements data retention, export, anonymization and
// deletion of user data.
package privacy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/timeex/internal/audit"
	"github.com/Tiliavir/timeex/internal/log"
	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/storage"
)

// Placeholders used by Anonymize.
const (
	AnonymizedProject     = "Anonymized Project"
	AnonymizedDescription = "Anonymized Entry"
)

// DefaultRetention is the retention window used when none is configured.
const DefaultRetention = 730 * 24 * time.Hour

type Service struct {
	repo  *storage.Repository
	audit *audit.Log
	log   *log.Logger

	Now func() time.Time
}

func New(repo *storage.Repository, auditLog *audit.Log, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		repo:  repo,
		audit: auditLog,
		log:   logger.WithComponent(log.ComponentPrivacy),
		Now:   time.Now,
	}
}

// Purge removes, for every registered user, the entries created more than
// retention ago. It returns the number of removed entries.
func (s *Service) Purge(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := s.Now().Add(-retention)

	total := 0
	for _, u := range s.repo.Users(ctx) {
		entries := s.repo.Entries(ctx, u.ID)
		kept := entries[:0:0]
		for _, e := range entries {
			if e.CreatedAt.IsZero() || !e.CreatedAt.Before(cutoff) {
				kept = append(kept, e)
			}
		}
		removed := len(entries) - len(kept)
		if removed == 0 {
			continue
		}
		if err := s.repo.SaveEntries(ctx, u.ID, kept); err != nil {
			return total, fmt.Errorf("purging entries of %s: %w", u.ID, err)
		}
		total += removed
		s.log.Info("old entries purged", "user_id", u.ID, "count", removed)
		s.record(ctx, u.ID, audit.ActionDataPurge, fmt.Sprintf("%d entries older than %s", removed, cutoff.Format(time.DateOnly)))
	}
	return total, nil
}

// ExportUser is the account part of an Export.
type ExportUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Export is the user data download.
type Export struct {
	User         ExportUser        `json:"user"`
	Entries      []model.TimeEntry `json:"entries"`
	ExportDate   time.Time         `json:"exportDate"`
	TotalEntries int               `json:"totalEntries"`
	TotalHours   float64           `json:"totalHours"`
}

// JSON renders the export as indented JSON.
func (e Export) JSON() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// Export collects everything stored for the session's user. The password
// hash is never included.
func (s *Service) Export(ctx context.Context, sess model.Session) Export {
	out := Export{
		User: ExportUser{
			ID:    sess.UserID,
			Name:  sess.Name,
			Email: sess.Email,
		},
		Entries:    s.repo.Entries(ctx, sess.UserID),
		ExportDate: s.Now().UTC(),
	}
	for _, u := range s.repo.Users(ctx) {
		if u.ID == sess.UserID {
			out.User.CreatedAt = u.CreatedAt
			break
		}
	}
	if out.Entries == nil {
		out.Entries = []model.TimeEntry{}
	}
	for _, e := range out.Entries {
		out.TotalHours += e.Duration
	}
	out.TotalEntries = len(out.Entries)
	s.record(ctx, sess.UserID, audit.ActionDataExport, fmt.Sprintf("%d entries", out.TotalEntries))
	return out
}

// Anonymize returns copies of entries that keep only the date, duration and
// creation time; everything else is replaced or cleared.
func Anonymize(entries []model.TimeEntry) []model.TimeEntry {
	out := make([]model.TimeEntry, len(entries))
	for i, e := range entries {
		out[i] = model.TimeEntry{
			ID:          anonID(),
			Date:        e.Date,
			Project:     AnonymizedProject,
			Description: AnonymizedDescription,
			Duration:    e.Duration,
			CreatedAt:   e.CreatedAt,
		}
	}
	return out
}

func anonID() string {
	return "anon_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// DeleteUserData removes the account and every per-user document. The
// shared audit log keeps its history. When the deleted user is logged in,
// the session ends.
func (s *Service) DeleteUserData(ctx context.Context, userID string) error {
	if err := s.repo.DeleteUserKeys(ctx, userID); err != nil {
		return err
	}

	users := s.repo.Users(ctx)
	kept := users[:0:0]
	for _, u := range users {
		if u.ID != userID {
			kept = append(kept, u)
		}
	}
	if len(kept) != len(users) {
		if err := s.repo.SaveUsers(ctx, kept); err != nil {
			return err
		}
	}

	if cur, ok := s.repo.CurrentSession(ctx); ok && cur.UserID == userID {
		if err := s.repo.ClearSession(ctx); err != nil {
			return err
		}
	}
	s.log.Info("user data deleted", "user_id", userID)
	s.record(ctx, userID, audit.ActionDataDelete, "")
	return nil
}

func (s *Service) Settings(ctx context.Context, userID string) model.PrivacySettings {
	return s.repo.Privacy(ctx, userID)
}

// UpdateSettings stores settings and stamps UpdatedAt.
func (s *Service) UpdateSettings(ctx context.Context, userID string, settings model.PrivacySettings) (model.PrivacySettings, error) {
	settings.UpdatedAt = s.Now().UTC()
	if err := s.repo.SavePrivacy(ctx, userID, settings); err != nil {
		return model.PrivacySettings{}, err
	}
	s.record(ctx, userID, audit.ActionPrivacyUpdate, fmt.Sprintf("retention=%t export=%t analytics=%t",
		settings.DataRetention, settings.DataExport, settings.Analytics))
	return settings, nil
}

// ValidateIntegrity returns one message per user with entries that lack an
// id or date or carry a negative duration.
func (s *Service) ValidateIntegrity(ctx context.Context) []string {
	var issues []string
	for _, u := range s.repo.Users(ctx) {
		invalid := 0
		for _, e := range s.repo.Entries(ctx, u.ID) {
			if e.ID == "" || e.Date == "" || e.Duration < 0 {
				invalid++
			}
		}
		if invalid > 0 {
			issues = append(issues, fmt.Sprintf("User %s has %d invalid entries", u.ID, invalid))
		}
	}
	return issues
}

// Consent returns the stored cookie consent, or "" when never answered.
func (s *Service) Consent(ctx context.Context) string {
	return s.repo.CookieConsent(ctx)
}

func (s *Service) SetConsent(ctx context.Context, accepted bool) error {
	v := model.ConsentDeclined
	if accepted {
		v = model.ConsentAccepted
	}
	return s.repo.SaveCookieConsent(ctx, v)
}

// AuditTrail returns the user's audit events, oldest first.
func (s *Service) AuditTrail(ctx context.Context, userID string) []model.AuditEvent {
	if s.audit == nil {
		return nil
	}
	return s.audit.ForUser(ctx, userID)
}

func (s *Service) record(ctx context.Context, userID, action, details string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, userID, action, details); err != nil {
		s.log.Warn("audit event not recorded", "action", action, "error", err)
	}
}
