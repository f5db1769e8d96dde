// Package session manages accounts and the logged-in session.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Tiliavir/timeex/internal/audit"
	"github.com/Tiliavir/timeex/internal/log"
	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/storage"
)

// Demo account created on first run.
const (
	DemoUserID   = "demo-user-001"
	DemoName     = "Demo User"
	DemoEmail    = "demo@timeex.com"
	DemoPassword = "demo123"
)

// DefaultTTL is how long a login stays valid.
const DefaultTTL = 24 * time.Hour

type Manager struct {
	repo  *storage.Repository
	audit *audit.Log
	log   *log.Logger
	ttl   time.Duration

	// Cost is the bcrypt cost used for new password hashes.
	Cost int
	Now  func() time.Time
}

func NewManager(repo *storage.Repository, auditLog *audit.Log, ttl time.Duration, logger *log.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Manager{
		repo:  repo,
		audit: auditLog,
		log:   logger.WithComponent(log.ComponentSession),
		ttl:   ttl,
		Cost:  bcrypt.DefaultCost,
		Now:   time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return model.NewValidationError("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.NewValidationError("email", fmt.Sprintf("%q is not an email address", email))
	}
	return nil
}

// Register creates an account and logs it in.
func (m *Manager) Register(ctx context.Context, name, email, password, confirm string) (model.Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return model.Session{}, model.NewValidationError("name", "is required")
	}
	if err := validateEmail(email); err != nil {
		return model.Session{}, err
	}
	if password == "" {
		return model.Session{}, model.NewValidationError("password", "is required")
	}
	if password != confirm {
		return model.Session{}, model.NewValidationError("password", "passwords do not match")
	}

	users := m.repo.Users(ctx)
	for _, u := range users {
		if normalizeEmail(u.Email) == email {
			return model.Session{}, model.ErrEmailTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.Cost)
	if err != nil {
		return model.Session{}, fmt.Errorf("hashing password: %w", err)
	}
	user := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    m.Now().UTC(),
	}
	if err := m.repo.SaveUsers(ctx, append(users, user)); err != nil {
		return model.Session{}, err
	}
	m.log.Info("user registered", "user_id", user.ID)
	m.record(ctx, user.ID, audit.ActionRegister, "")
	return m.start(ctx, user)
}

// Login verifies the credentials and persists a new session.
func (m *Manager) Login(ctx context.Context, email, password string) (model.Session, error) {
	email = normalizeEmail(email)
	for _, u := range m.repo.Users(ctx) {
		if normalizeEmail(u.Email) != email {
			continue
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
			break
		}
		sess, err := m.start(ctx, u)
		if err != nil {
			return model.Session{}, err
		}
		m.record(ctx, u.ID, audit.ActionLogin, "")
		return sess, nil
	}
	m.log.Warn("failed login", "email", email)
	return model.Session{}, model.ErrInvalidCredentials
}

func (m *Manager) start(ctx context.Context, u model.User) (model.Session, error) {
	sess := model.Session{
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		LoginTime: m.Now().UTC(),
	}
	if err := m.repo.SaveSession(ctx, sess); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// Logout destroys the current session. Logging out twice is not an error.
func (m *Manager) Logout(ctx context.Context) error {
	sess, ok := m.repo.CurrentSession(ctx)
	if err := m.repo.ClearSession(ctx); err != nil {
		return err
	}
	if ok {
		m.record(ctx, sess.UserID, audit.ActionLogout, "")
	}
	return nil
}

// Current returns the live session. An expired session is destroyed and
// reported as model.ErrSessionExpired.
func (m *Manager) Current(ctx context.Context) (model.Session, error) {
	sess, ok := m.repo.CurrentSession(ctx)
	if !ok {
		return model.Session{}, model.ErrNotLoggedIn
	}
	if sess.ExpiredAt(m.Now(), m.ttl) {
		if err := m.repo.ClearSession(ctx); err != nil {
			m.log.Warn("clearing expired session", "error", err)
		}
		return model.Session{}, model.ErrSessionExpired
	}
	return sess, nil
}

// UpdateProfile changes the name and email of the session's user. Empty
// arguments keep the current value.
func (m *Manager) UpdateProfile(ctx context.Context, sess model.Session, name, email string) (model.Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if email != "" {
		if err := validateEmail(email); err != nil {
			return model.Session{}, err
		}
	}

	users := m.repo.Users(ctx)
	idx := -1
	for i, u := range users {
		if u.ID == sess.UserID {
			idx = i
			continue
		}
		if email != "" && normalizeEmail(u.Email) == email {
			return model.Session{}, model.ErrEmailTaken
		}
	}
	if idx < 0 {
		return model.Session{}, model.ErrNotLoggedIn
	}
	if name != "" {
		users[idx].Name = name
	}
	if email != "" {
		users[idx].Email = email
	}
	if err := m.repo.SaveUsers(ctx, users); err != nil {
		return model.Session{}, err
	}

	sess.Name = users[idx].Name
	sess.Email = users[idx].Email
	if err := m.repo.SaveSession(ctx, sess); err != nil {
		return model.Session{}, err
	}
	m.record(ctx, sess.UserID, audit.ActionProfileUpdate, "")
	return sess, nil
}

// SeedDemoUser creates the demo account when no user exists yet and
// reports whether it did.
func (m *Manager) SeedDemoUser(ctx context.Context) (bool, error) {
	if len(m.repo.Users(ctx)) > 0 {
		return false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), m.Cost)
	if err != nil {
		return false, fmt.Errorf("hashing demo password: %w", err)
	}
	demo := model.User{
		ID:           DemoUserID,
		Name:         DemoName,
		Email:        DemoEmail,
		PasswordHash: string(hash),
		CreatedAt:    m.Now().UTC(),
	}
	if err := m.repo.SaveUsers(ctx, []model.User{demo}); err != nil {
		return false, err
	}
	m.log.Info("demo user created", "email", DemoEmail)
	return true, nil
}

func (m *Manager) record(ctx context.Context, userID, action, details string) {
	if m.audit == nil {
		return
	}
	if err := m.audit.Record(ctx, userID, action, details); err != nil {
		m.log.Warn("audit event not recorded", "action", action, "error", err)
	}
}

// IsAuthError reports whether err means the user has to log in again.
func IsAuthError(err error) bool {
	return errors.Is(err, model.ErrNotLoggedIn) || errors.Is(err, model.ErrSessionExpired)
}
