package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Tiliavir/timeex/internal/log"
	"github.com/Tiliavir/timeex/internal/model"
)

const keyPrefix = "timeex_"

// Persisted keys.
const (
	KeyUsers         = "timeex_users"
	KeyCurrentUser   = "timeex_current_user"
	KeyAuditLogs     = "timeex_audit_logs"
	KeyCookieConsent = "timeex_cookie_consent"
)

func EntriesKey(userID string) string         { return "timeex_entries_" + userID }
func PrivacyKey(userID string) string         { return "timeex_privacy_" + userID }
func ArchiveInfoKey(userID string) string     { return "timeex_archive_info_" + userID }
func ArchivedReportsKey(userID string) string { return "timeex_archived_reports_" + userID }
func TimerKey(userID string) string           { return "timeex_timer_" + userID }

// Repository reads and writes the typed documents kept in a Store.
// Unreadable documents are logged and replaced by an empty default; write
// failures are returned as *model.StorageWriteError.
type Repository struct {
	store Store
	log   *log.Logger
}

func NewRepository(store Store, logger *log.Logger) *Repository {
	if logger == nil {
		logger = log.Nop()
	}
	return &Repository{store: store, log: logger.WithComponent(log.ComponentStorage)}
}

// load decodes key into v and reports whether a value was present. On a
// read or decode failure the failure is logged and false is returned; the
// caller then falls back to its default.
func (r *Repository) load(ctx context.Context, key string, v any) bool {
	data, err := r.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err == nil {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		r.log.Err(ctx, "recovering with default value", &model.StorageReadError{Key: key, Err: err}, "key", key)
		return false
	}
	return true
}

func (r *Repository) save(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &model.StorageWriteError{Key: key, Err: fmt.Errorf("marshalling JSON: %w", err)}
	}
	if err := r.store.Put(ctx, key, data); err != nil {
		return &model.StorageWriteError{Key: key, Err: err}
	}
	return nil
}

func (r *Repository) remove(ctx context.Context, key string) error {
	if err := r.store.Delete(ctx, key); err != nil {
		return &model.StorageWriteError{Key: key, Err: err}
	}
	return nil
}

func (r *Repository) Users(ctx context.Context) []model.User {
	var users []model.User
	if !r.load(ctx, KeyUsers, &users) || users == nil {
		return []model.User{}
	}
	return users
}

func (r *Repository) SaveUsers(ctx context.Context, users []model.User) error {
	return r.save(ctx, KeyUsers, users)
}

// CurrentSession returns the persisted session, if any.
func (r *Repository) CurrentSession(ctx context.Context) (model.Session, bool) {
	var s model.Session
	if !r.load(ctx, KeyCurrentUser, &s) || s.UserID == "" {
		return model.Session{}, false
	}
	return s, true
}

func (r *Repository) SaveSession(ctx context.Context, s model.Session) error {
	return r.save(ctx, KeyCurrentUser, s)
}

func (r *Repository) ClearSession(ctx context.Context) error {
	return r.remove(ctx, KeyCurrentUser)
}

// Entries returns the user's entries in storage order.
func (r *Repository) Entries(ctx context.Context, userID string) []model.TimeEntry {
	var entries []model.TimeEntry
	if !r.load(ctx, EntriesKey(userID), &entries) || entries == nil {
		return []model.TimeEntry{}
	}
	return entries
}

func (r *Repository) SaveEntries(ctx context.Context, userID string, entries []model.TimeEntry) error {
	if entries == nil {
		entries = []model.TimeEntry{}
	}
	return r.save(ctx, EntriesKey(userID), entries)
}

// Privacy returns the user's privacy settings, all disabled by default.
func (r *Repository) Privacy(ctx context.Context, userID string) model.PrivacySettings {
	var s model.PrivacySettings
	if !r.load(ctx, PrivacyKey(userID), &s) {
		return model.PrivacySettings{}
	}
	return s
}

func (r *Repository) SavePrivacy(ctx context.Context, userID string, s model.PrivacySettings) error {
	return r.save(ctx, PrivacyKey(userID), s)
}

// ArchiveInfo returns the user's archive configuration and whether one was
// ever set up.
func (r *Repository) ArchiveInfo(ctx context.Context, userID string) (model.ArchiveInfo, bool) {
	var info model.ArchiveInfo
	if !r.load(ctx, ArchiveInfoKey(userID), &info) {
		return model.ArchiveInfo{}, false
	}
	return info, true
}

func (r *Repository) SaveArchiveInfo(ctx context.Context, userID string, info model.ArchiveInfo) error {
	return r.save(ctx, ArchiveInfoKey(userID), info)
}

// ArchivedReports returns the archive log, oldest first.
func (r *Repository) ArchivedReports(ctx context.Context, userID string) []model.ArchiveRecord {
	var records []model.ArchiveRecord
	if !r.load(ctx, ArchivedReportsKey(userID), &records) || records == nil {
		return []model.ArchiveRecord{}
	}
	return records
}

func (r *Repository) SaveArchivedReports(ctx context.Context, userID string, records []model.ArchiveRecord) error {
	return r.save(ctx, ArchivedReportsKey(userID), records)
}

func (r *Repository) AuditLog(ctx context.Context) []model.AuditEvent {
	var events []model.AuditEvent
	if !r.load(ctx, KeyAuditLogs, &events) || events == nil {
		return []model.AuditEvent{}
	}
	return events
}

func (r *Repository) SaveAuditLog(ctx context.Context, events []model.AuditEvent) error {
	return r.save(ctx, KeyAuditLogs, events)
}

// CookieConsent returns "accepted", "declined" or "" when never answered.
func (r *Repository) CookieConsent(ctx context.Context) string {
	var v string
	if !r.load(ctx, KeyCookieConsent, &v) {
		return ""
	}
	return v
}

func (r *Repository) SaveCookieConsent(ctx context.Context, v string) error {
	return r.save(ctx, KeyCookieConsent, v)
}

func (r *Repository) Timer(ctx context.Context, userID string) model.TimerState {
	var t model.TimerState
	if !r.load(ctx, TimerKey(userID), &t) {
		return model.TimerState{}
	}
	return t
}

func (r *Repository) SaveTimer(ctx context.Context, userID string, t model.TimerState) error {
	return r.save(ctx, TimerKey(userID), t)
}

func (r *Repository) ClearTimer(ctx context.Context, userID string) error {
	return r.remove(ctx, TimerKey(userID))
}

// DeleteUserKeys removes every document whose key ends in userID.
func (r *Repository) DeleteUserKeys(ctx context.Context, userID string) error {
	keys, err := r.store.Keys(ctx, keyPrefix)
	if err != nil {
		return &model.StorageReadError{Key: keyPrefix + "*", Err: err}
	}
	for _, key := range keys {
		if !strings.HasSuffix(key, "_"+userID) {
			continue
		}
		if err := r.remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// AppendCapped appends item to items and drops the oldest elements so that
// at most limit remain.
func AppendCapped[T any](items []T, item T, limit int) []T {
	items = append(items, item)
	if len(items) > limit {
		items = append([]T(nil), items[len(items)-limit:]...)
	}
	return items
}
