package model

import "time"

// User is a registered account. PasswordHash is a bcrypt hash and never
// leaves the storage layer through a Session.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is the logged-in user context handed to every user-scoped
// operation.
type Session struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	LoginTime time.Time `json:"loginTime"`
}

// ExpiredAt reports whether the session is older than ttl at now.
func (s Session) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LoginTime) >= ttl
}

type PrivacySettings struct {
	DataRetention bool      `json:"dataRetention"`
	DataExport    bool      `json:"dataExport"`
	Analytics     bool      `json:"analytics"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

type AuditEvent struct {
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Host      string    `json:"host"`
}

// Cookie consent values.
const (
	ConsentAccepted = "accepted"
	ConsentDeclined = "declined"
)
