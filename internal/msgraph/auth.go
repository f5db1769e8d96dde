package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/timeex/internal/log"
)

var requiredScopes = []string{
	"https://graph.microsoft.com/Calendars.Read",
	"offline_access",
}

func msEndpoint(tenantID, path string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/" + path
}

// Auth obtains Microsoft Graph tokens with the OAuth2 device code flow and
// keeps them under Home/auth.
type Auth struct {
	Home     string
	TenantID string
	ClientID string

	// Out receives the sign-in instructions.
	Out io.Writer
	Log *log.Logger
}

// TokenPath returns the path of the stored token file.
func (a *Auth) TokenPath() string {
	return filepath.Join(a.Home, "auth", "msgraph_tokens.json")
}

func (a *Auth) logger() *log.Logger {
	if a.Log == nil {
		return log.Nop()
	}
	return a.Log
}

func (a *Auth) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID: a.ClientID,
		Scopes:   requiredScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: msEndpoint(a.TenantID, "devicecode"),
			TokenURL:      msEndpoint(a.TenantID, "token"),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// loadToken returns the stored token, or nil when none was saved.
func (a *Auth) loadToken() (*oauth2.Token, error) {
	path := a.TokenPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", path, err)
	}
	return &tok, nil
}

func (a *Auth) saveToken(tok *oauth2.Token) error {
	path := a.TokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

// Token returns a usable token. It loads the saved token, refreshes it if
// needed, or runs a new device code flow when neither works.
func (a *Auth) Token(ctx context.Context) (*oauth2.Token, error) {
	cfg := a.config()
	l := a.logger()

	tok, err := a.loadToken()
	if err != nil {
		l.Warn("ignoring stored token", "error", err)
		tok = nil
	}
	if tok != nil && tok.Valid() {
		return tok, nil
	}

	if tok != nil && tok.RefreshToken != "" {
		refreshed, err := cfg.TokenSource(ctx, tok).Token()
		if err == nil {
			if err := a.saveToken(refreshed); err != nil {
				l.Warn("could not save refreshed token", "error", err)
			}
			return refreshed, nil
		}
		l.Info("token refresh failed, re-authenticating", "error", err)
	}

	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}
	out := a.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To sign in, use a web browser to open the page:")
	fmt.Fprintf(out, "  %s\n", resp.VerificationURI)
	fmt.Fprintf(out, "Enter the code: %s\n", resp.UserCode)
	fmt.Fprintln(out)

	newTok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device authentication failed: %w", err)
	}
	if err := a.saveToken(newTok); err != nil {
		l.Warn("could not save token", "error", err)
	}
	return newTok, nil
}

// Client returns a Graph client whose refreshed tokens are saved back to
// the token file.
func (a *Auth) Client(ctx context.Context) (*Client, error) {
	tok, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	ts := &savingTokenSource{ts: a.config().TokenSource(ctx, tok), auth: a}
	return NewClient(oauth2.NewClient(ctx, ts), ""), nil
}

// savingTokenSource persists every token it hands out.
type savingTokenSource struct {
	ts   oauth2.TokenSource
	auth *Auth
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if err := s.auth.saveToken(tok); err != nil {
		s.auth.logger().Debug("token not saved", "error", err)
	}
	return tok, nil
}
