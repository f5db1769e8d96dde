// Package audit keeps the shared, capped log of security-relevant actions.
package audit

import (
	"context"
	"os"
	"time"

	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/storage"
)

// MaxEvents is the number of audit events retained.
const MaxEvents = 1000

// Actions recorded by timeex.
const (
	ActionRegister       = "register"
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionProfileUpdate  = "profile_update"
	ActionEntryAdd       = "entry_add"
	ActionEntryUpdate    = "entry_update"
	ActionEntryDelete    = "entry_delete"
	ActionReportExport   = "report_export"
	ActionArchiveSetup   = "archive_setup"
	ActionArchiveDisable = "archive_disable"
	ActionDataExport     = "data_export"
	ActionDataPurge      = "data_purge"
	ActionDataDelete     = "data_delete"
	ActionPrivacyUpdate  = "privacy_update"
	ActionOutlookSync    = "outlook_sync"
)

// Log appends events to the timeex_audit_logs document.
type Log struct {
	repo *storage.Repository
	host string
	Now  func() time.Time
}

func New(repo *storage.Repository) *Log {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return &Log{repo: repo, host: host, Now: time.Now}
}

// Record appends one event, evicting the oldest beyond MaxEvents.
func (l *Log) Record(ctx context.Context, userID, action, details string) error {
	events := l.repo.AuditLog(ctx)
	events = storage.AppendCapped(events, model.AuditEvent{
		UserID:    userID,
		Action:    action,
		Details:   details,
		Timestamp: l.Now().UTC(),
		Host:      l.host,
	}, MaxEvents)
	return l.repo.SaveAuditLog(ctx, events)
}

// ForUser returns the user's events, oldest first.
func (l *Log) ForUser(ctx context.Context, userID string) []model.AuditEvent {
	var out []model.AuditEvent
	for _, e := range l.repo.AuditLog(ctx) {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
