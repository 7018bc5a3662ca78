package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/fablekeep/fablekeep/pkg/authz"
)

// RefreshToken is the persisted row behind a long-lived credential. Rows are
// never deleted by the lifecycle itself: a row is logically dead once revoked
// or past ExpiresAt. Multiple historical rows per user coexist; only UserID
// links them.
type RefreshToken struct {
	Token      string    `json:"token"`
	UserID     uuid.UUID `json:"user_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsRevoked  bool      `json:"is_revoked"`
	DeviceInfo string    `json:"device_info,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Live reports whether the row may still be used at the given instant.
func (t *RefreshToken) Live(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}

// Account is the subject projection the credential lifecycle needs: enough
// to authenticate a login and to re-check standing on rotation.
type Account struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         authz.Role `json:"role"`
	IsActive     bool       `json:"is_active"`
	IsBanned     bool       `json:"is_banned"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Standing reports whether the account may currently hold credentials.
func (a *Account) Standing() bool {
	return a.IsActive && !a.IsBanned
}
