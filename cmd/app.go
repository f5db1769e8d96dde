package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tiliavir/timeex/internal/archive"
	"github.com/Tiliavir/timeex/internal/audit"
	"github.com/Tiliavir/timeex/internal/config"
	"github.com/Tiliavir/timeex/internal/log"
	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/privacy"
	"github.com/Tiliavir/timeex/internal/session"
	"github.com/Tiliavir/timeex/internal/storage"
	"github.com/Tiliavir/timeex/internal/tracker"
)

// app holds the services shared by all commands.
type app struct {
	cfg      config.Config
	log      *log.Logger
	store    storage.Store
	repo     *storage.Repository
	audit    *audit.Log
	sessions *session.Manager
	tracker  *tracker.Service
	archive  *archive.Tracker
	privacy  *privacy.Service
}

// current is set by the root command before any subcommand runs.
var current *app

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, model.NewValidationError("config", err.Error())
	}

	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(cfg.LogLevel)
	logger := log.New(logCfg)
	log.SetDefault(logger)

	store, err := storage.Open(cfg.Storage.Backend, cfg.DataDir(), cfg.SQLiteFile())
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	a := &app{cfg: cfg, log: logger, store: store}
	a.repo = storage.NewRepository(store, logger)
	a.audit = audit.New(a.repo)
	a.sessions = session.NewManager(a.repo, a.audit, cfg.SessionTTL(), logger)
	a.tracker = tracker.New(a.repo, a.audit, logger)
	a.tracker.DefaultRate = cfg.Timer.DefaultHourlyRate
	a.archive = archive.New(a.repo, a.audit, logger)
	a.tracker.SetArchiveTrigger(a.archive)
	a.privacy = privacy.New(a.repo, a.audit, logger)

	if cfg.Session.SeedDemoUser {
		if _, err := a.sessions.SeedDemoUser(ctx); err != nil {
			logger.Warn("demo user not created", "error", err)
		}
	}
	return a, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing storage", "error", err)
	}
}

// requireSession returns the live session or an error telling the user to
// log in.
func (a *app) requireSession(ctx context.Context) (model.Session, error) {
	sess, err := a.sessions.Current(ctx)
	switch {
	case err == nil:
		return sess, nil
	case !session.IsAuthError(err):
		return model.Session{}, err
	case errors.Is(err, model.ErrSessionExpired):
		return model.Session{}, fmt.Errorf("%w: run `timeex login` again", err)
	default:
		return model.Session{}, fmt.Errorf("%w: run `timeex login` or `timeex register` first", err)
	}
}

// userIDs lists every registered user, for scheduled archive passes.
func (a *app) userIDs(ctx context.Context) []string {
	users := a.repo.Users(ctx)
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}
