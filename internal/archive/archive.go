// Package archive writes cycle reports into a user-chosen directory and
// keeps the log used to avoid archiving a cycle twice.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Tiliavir/timeex/internal/audit"
	"github.com/Tiliavir/timeex/internal/log"
	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/report"
	"github.com/Tiliavir/timeex/internal/storage"
	"github.com/Tiliavir/timeex/internal/timecalc"
)

// MaxRecords is the number of archive log records retained per user.
const MaxRecords = 100

// Capability is the current write access to the archive directory.
type Capability int

const (
	NotConfigured Capability = iota
	Granted
	Denied
)

func (c Capability) String() string {
	switch c {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return "not configured"
	}
}

// Result summarizes one archive pass.
type Result struct {
	Written []string
	Skipped int
}

// Status is what `timeex archive status` shows.
type Status struct {
	Info         model.ArchiveInfo
	Capability   Capability
	Records      int
	LastArchived time.Time
}

// Tracker writes archive files and maintains the archive log.
type Tracker struct {
	repo  *storage.Repository
	audit *audit.Log
	log   *log.Logger
	group singleflight.Group

	Now func() time.Time
}

func New(repo *storage.Repository, auditLog *audit.Log, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.Nop()
	}
	return &Tracker{
		repo:  repo,
		audit: auditLog,
		log:   logger.WithComponent(log.ComponentArchive),
		Now:   time.Now,
	}
}

// probe checks that dir is a directory timeex can create files in.
func probe(dir string) error {
	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".timeex-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// Setup makes dir the user's archive directory, creating it if needed,
// and enables archiving.
func (t *Tracker) Setup(ctx context.Context, userID, dir string) (model.ArchiveInfo, error) {
	if strings.TrimSpace(dir) == "" {
		return model.ArchiveInfo{}, model.NewValidationError("archive directory", "is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return model.ArchiveInfo{}, model.NewValidationError("archive directory", err.Error())
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return model.ArchiveInfo{}, &model.PermissionDeniedError{Dir: abs, Err: err}
	}
	if err := probe(abs); err != nil {
		return model.ArchiveInfo{}, &model.PermissionDeniedError{Dir: abs, Err: err}
	}

	info := model.ArchiveInfo{Dir: abs, SetupDate: t.Now().UTC(), Enabled: true}
	if err := t.repo.SaveArchiveInfo(ctx, userID, info); err != nil {
		return model.ArchiveInfo{}, err
	}
	t.log.Info("archive directory set up", "user_id", userID, "dir", abs)
	t.record(ctx, userID, audit.ActionArchiveSetup, abs)
	return info, nil
}

// Disable turns automatic archiving off. The directory is remembered.
func (t *Tracker) Disable(ctx context.Context, userID string) error {
	info, ok := t.repo.ArchiveInfo(ctx, userID)
	if !ok {
		return model.ErrArchiveNotSetUp
	}
	info.Enabled = false
	if err := t.repo.SaveArchiveInfo(ctx, userID, info); err != nil {
		return err
	}
	t.record(ctx, userID, audit.ActionArchiveDisable, info.Dir)
	return nil
}

// Check returns the enabled archive directory and the capability to write
// to it.
func (t *Tracker) Check(ctx context.Context, userID string) (string, Capability) {
	info, ok := t.repo.ArchiveInfo(ctx, userID)
	if !ok || !info.Enabled || info.Dir == "" {
		return "", NotConfigured
	}
	if err := probe(info.Dir); err != nil {
		t.log.Warn("archive directory not writable", "dir", info.Dir, "error", err)
		return info.Dir, Denied
	}
	return info.Dir, Granted
}

func (t *Tracker) Status(ctx context.Context, userID string) Status {
	info, _ := t.repo.ArchiveInfo(ctx, userID)
	_, capability := t.Check(ctx, userID)
	records := t.repo.ArchivedReports(ctx, userID)
	st := Status{Info: info, Capability: capability, Records: len(records)}
	if n := len(records); n > 0 {
		st.LastArchived = records[n-1].ArchivedAt
	}
	return st
}

// List returns the archive log, newest first.
func (t *Tracker) List(ctx context.Context, userID string) []model.ArchiveRecord {
	records := t.repo.ArchivedReports(ctx, userID)
	out := make([]model.ArchiveRecord, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out
}

// IsArchived reports whether the log holds a file for the named cycle.
func IsArchived(records []model.ArchiveRecord, cycleName string) bool {
	prefix := report.DedupPrefix(cycleName)
	for _, r := range records {
		if report.HasDedupPrefix(r.Filename, prefix) {
			return true
		}
	}
	return false
}

// RecordDownload logs a user-exported report file.
func (t *Tracker) RecordDownload(ctx context.Context, userID, filename string) error {
	records := storage.AppendCapped(t.repo.ArchivedReports(ctx, userID), model.ArchiveRecord{
		Filename:   filename,
		ArchivedAt: t.Now().UTC(),
		UserID:     userID,
	}, MaxRecords)
	return t.repo.SaveArchivedReports(ctx, userID, records)
}

// ArchiveReport writes an already rendered report of c into the archive
// directory and logs it, whether or not the cycle was archived before.
func (t *Tracker) ArchiveReport(ctx context.Context, userID string, c model.Cycle, csv string) (string, error) {
	dir, capability := t.Check(ctx, userID)
	switch capability {
	case NotConfigured:
		return "", model.ErrArchiveNotSetUp
	case Denied:
		return "", &model.PermissionDeniedError{Dir: dir, Err: os.ErrPermission}
	}

	now := t.Now()
	name := report.ArchiveFilename(c.Name, now)
	if err := writeFile(filepath.Join(dir, name), []byte(csv)); err != nil {
		return "", err
	}
	records := storage.AppendCapped(t.repo.ArchivedReports(ctx, userID), model.ArchiveRecord{
		Filename:   name,
		ArchivedAt: now.UTC(),
		UserID:     userID,
	}, MaxRecords)
	if err := t.repo.SaveArchivedReports(ctx, userID, records); err != nil {
		return name, err
	}
	t.log.Info("report archived", "user_id", userID, "file", name)
	return name, nil
}

// Run archives every cycle with entries that the log does not know yet.
// Concurrent calls for the same user share one pass.
func (t *Tracker) Run(ctx context.Context, userID string) (Result, error) {
	v, err, shared := t.group.Do("run:"+userID, func() (any, error) {
		return t.pass(ctx, userID, true)
	})
	if shared {
		t.log.Debug("archive pass coalesced", "user_id", userID)
	}
	res, _ := v.(Result)
	return res, err
}

// All archives every cycle with entries regardless of the log.
func (t *Tracker) All(ctx context.Context, userID string) (Result, error) {
	v, err, _ := t.group.Do("all:"+userID, func() (any, error) {
		return t.pass(ctx, userID, false)
	})
	res, _ := v.(Result)
	return res, err
}

// Trigger runs a pass when archiving is enabled and writable. Failures are
// logged, never returned.
func (t *Tracker) Trigger(ctx context.Context, userID string) {
	if _, capability := t.Check(ctx, userID); capability != Granted {
		return
	}
	res, err := t.Run(ctx, userID)
	if err != nil {
		t.log.Err(ctx, "automatic archive failed", err, "user_id", userID)
		return
	}
	if len(res.Written) > 0 {
		t.log.Info("auto-archived new reports", "user_id", userID, "count", len(res.Written))
	}
}

func (t *Tracker) pass(ctx context.Context, userID string, respectLog bool) (Result, error) {
	dir, capability := t.Check(ctx, userID)
	switch capability {
	case NotConfigured:
		return Result{}, model.ErrArchiveNotSetUp
	case Denied:
		return Result{}, &model.PermissionDeniedError{Dir: dir, Err: os.ErrPermission}
	}

	now := t.Now()
	entries := t.repo.Entries(ctx, userID)
	records := t.repo.ArchivedReports(ctx, userID)
	var written []model.ArchiveRecord

	var res Result
	var passErr error
	for _, c := range timecalc.AllCycles(now, entries) {
		if err := ctx.Err(); err != nil {
			passErr = err
			break
		}
		selected := report.SelectEntries(entries, c)
		if len(selected) == 0 {
			continue
		}
		if IsArchived(written, c.Name) || (respectLog && IsArchived(records, c.Name)) {
			res.Skipped++
			continue
		}

		name := report.ArchiveFilename(c.Name, now)
		if err := writeFile(filepath.Join(dir, name), []byte(report.ToCSV(selected))); err != nil {
			passErr = err
			break
		}
		written = append(written, model.ArchiveRecord{Filename: name, ArchivedAt: now.UTC(), UserID: userID})
		res.Written = append(res.Written, name)
		t.log.Debug("report archived", "user_id", userID, "file", name, "entries", len(selected))
	}

	if len(written) > 0 {
		for _, r := range written {
			records = storage.AppendCapped(records, r, MaxRecords)
		}
		if err := t.repo.SaveArchivedReports(ctx, userID, records); err != nil {
			return res, errors.Join(passErr, err)
		}
	}
	return res, passErr
}

// writeFile writes data atomically.
func writeFile(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return &model.PermissionDeniedError{Dir: filepath.Dir(path), Err: err}
		}
		return &model.FileOperationError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &model.FileOperationError{Path: path, Err: err}
	}
	return nil
}

func (t *Tracker) record(ctx context.Context, userID, action, details string) {
	if t.audit == nil {
		return
	}
	if err := t.audit.Record(ctx, userID, action, details); err != nil {
		t.log.Warn("audit event not recorded", "action", action, "error", err)
	}
}
