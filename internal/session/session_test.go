package session_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Tiliavir/timeex/internal/audit"
	"github.com/Tiliavir/timeex/internal/log"
	"github.com/Tiliavir/timeex/internal/model"
	"github.com/Tiliavir/timeex/internal/session"
	"github.com/Tiliavir/timeex/internal/storage"
)

type fixture struct {
	repo  *storage.Repository
	audit *audit.Log
	mgr   *session.Manager
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	f.repo = storage.NewRepository(fs, nil)
	f.audit = audit.New(f.repo)
	f.mgr = session.NewManager(f.repo, f.audit, 24*time.Hour, nil)
	f.mgr.Cost = bcrypt.MinCost
	f.mgr.Now = func() time.Time { return f.now }
	return f
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.mgr.Register(ctx, "Ada", " Ada@Example.com ", "s3cret", "s3cret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.Email != "ada@example.com" || sess.UserID == "" {
		t.Errorf("Register session = %+v", sess)
	}
	users := f.repo.Users(ctx)
	if len(users) != 1 || users[0].PasswordHash == "s3cret" {
		t.Fatalf("stored users = %+v, want one user with a hashed password", users)
	}

	if err := f.mgr.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := f.mgr.Current(ctx); !errors.Is(err, model.ErrNotLoggedIn) {
		t.Errorf("Current after logout: err = %v, want ErrNotLoggedIn", err)
	}

	if _, err := f.mgr.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("Login wrong password: err = %v", err)
	}
	got, err := f.mgr.Login(ctx, "ADA@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.UserID != sess.UserID {
		t.Errorf("Login user = %s, want %s", got.UserID, sess.UserID)
	}

	actions := map[string]bool{}
	for _, e := range f.audit.ForUser(ctx, sess.UserID) {
		actions[e.Action] = true
	}
	for _, a := range []string{audit.ActionRegister, audit.ActionLogout, audit.ActionLogin} {
		if !actions[a] {
			t.Errorf("audit log missing %s", a)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name, user, email, pw, confirm string
	}{
		{"missing name", "", "a@b.c", "pw", "pw"},
		{"bad email", "Ada", "not-an-email", "pw", "pw"},
		{"missing password", "Ada", "a@b.c", "", ""},
		{"mismatch", "Ada", "a@b.c", "pw", "pw2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.mgr.Register(ctx, tt.user, tt.email, tt.pw, tt.confirm)
			if !model.IsValidation(err) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if len(f.repo.Users(ctx)) != 0 {
				t.Error("user stored despite validation failure")
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.mgr.Register(ctx, "Ada", "ada@example.com", "pw", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.mgr.Register(ctx, "Other", "ADA@example.com", "pw", "pw"); !errors.Is(err, model.ErrEmailTaken) {
		t.Errorf("duplicate Register: err = %v, want ErrEmailTaken", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.mgr.Register(ctx, "Ada", "ada@example.com", "pw", "pw"); err != nil {
		t.Fatal(err)
	}

	f.now = f.now.Add(23 * time.Hour)
	if _, err := f.mgr.Current(ctx); err != nil {
		t.Fatalf("Current within TTL: %v", err)
	}

	f.now = f.now.Add(time.Hour)
	if _, err := f.mgr.Current(ctx); !errors.Is(err, model.ErrSessionExpired) {
		t.Fatalf("Current after TTL: err = %v, want ErrSessionExpired", err)
	}
	if _, ok := f.repo.CurrentSession(ctx); ok {
		t.Error("expired session still persisted")
	}
	if _, err := f.mgr.Current(ctx); !session.IsAuthError(err) {
		t.Errorf("Current after expiry cleanup: err = %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.mgr.Register(ctx, "Other", "other@example.com", "pw", "pw"); err != nil {
		t.Fatal(err)
	}
	sess, err := f.mgr.Register(ctx, "Ada", "ada@example.com", "pw", "pw")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.mgr.UpdateProfile(ctx, sess, "", "other@example.com"); !errors.Is(err, model.ErrEmailTaken) {
		t.Errorf("UpdateProfile to taken email: err = %v", err)
	}

	updated, err := f.mgr.UpdateProfile(ctx, sess, "Ada Lovelace", "")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Ada Lovelace" || updated.Email != "ada@example.com" {
		t.Errorf("UpdateProfile = %+v", updated)
	}
	cur, err := f.mgr.Current(ctx)
	if err != nil || cur.Name != "Ada Lovelace" {
		t.Errorf("Current after update = %+v, %v", cur, err)
	}
}

func TestSeedDemoUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.mgr.SeedDemoUser(ctx)
	if err != nil || !created {
		t.Fatalf("SeedDemoUser = %v, %v", created, err)
	}
	created, err = f.mgr.SeedDemoUser(ctx)
	if err != nil || created {
		t.Errorf("second SeedDemoUser = %v, %v, want no-op", created, err)
	}

	sess, err := f.mgr.Login(ctx, session.DemoEmail, session.DemoPassword)
	if err != nil {
		t.Fatalf("demo login: %v", err)
	}
	if sess.UserID != session.DemoUserID {
		t.Errorf("demo user id = %s", sess.UserID)
	}
}

func TestSeedDemoUserLogsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	var buf bytes.Buffer
	mgr := session.NewManager(f.repo, f.audit, 24*time.Hour, log.New(log.Config{Output: &buf}))
	mgr.Cost = bcrypt.MinCost

	for i := 0; i < 2; i++ {
		if _, err := mgr.SeedDemoUser(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if n := strings.Count(buf.String(), "demo user created"); n != 1 {
		t.Errorf("demo user creation logged %d times, want 1:\n%s", n, buf.String())
	}
}
