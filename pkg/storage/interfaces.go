// Package storage defines the collaborator interfaces the authorization and
// credential engine depends on, the record types they exchange, and an
// in-memory implementation used by tests. The postgres subpackage provides
// the production implementation.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fablekeep/fablekeep/pkg/authz"
	"github.com/fablekeep/fablekeep/pkg/content"
	"github.com/fablekeep/fablekeep/pkg/query"
)

// OwnershipStore loads the minimal ownership/visibility projection for a
// resource instance. A nil context with nil error means the instance does
// not exist.
type OwnershipStore interface {
	FindResourceOwnership(ctx context.Context, resource authz.Resource, id uuid.UUID) (*authz.OwnershipContext, error)
}

// RefreshTokenStore persists refresh-token rows. Revocation operations are
// idempotent: revoking an unknown or already-revoked token is a no-op.
type RefreshTokenStore interface {
	// FindRefreshToken returns the row for a token value, or nil when absent.
	FindRefreshToken(ctx context.Context, token string) (*RefreshToken, error)

	// CreateRefreshToken persists a new row.
	CreateRefreshToken(ctx context.Context, rec *RefreshToken) error

	// RotateRefreshToken atomically revokes the old row and creates next.
	// The claim is a conditional update, not read-then-write: when two
	// callers race on the same token value, exactly one succeeds and the
	// other gets a TOKEN_INVALID fault.
	RotateRefreshToken(ctx context.Context, oldToken string, next *RefreshToken) error

	// RevokeRefreshToken marks a row revoked.
	RevokeRefreshToken(ctx context.Context, token string) error

	// RevokeAllRefreshTokens marks every row for the user revoked.
	RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error

	// DeleteExpiredRefreshTokens removes rows whose expiry is older than the
	// cutoff. Storage hygiene only; liveness never depends on deletion.
	DeleteExpiredRefreshTokens(ctx context.Context, olderThan time.Time) (int64, error)
}

// AccountStore loads subject accounts for login and rotation re-checks.
// A nil account with nil error means no such account.
type AccountStore interface {
	FindAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
}

// ContentStore executes list fetches under a caller-composed predicate.
// The security filter has already been ANDed into the predicate by the time
// it reaches the store.
type ContentStore interface {
	ListCharacters(ctx context.Context, filter query.Expr, sortField string, dir query.SortDirection, limit int) ([]*content.Character, error)
	GetCharacter(ctx context.Context, id uuid.UUID) (*content.Character, error)

	// UpdateCharacter persists changed fields for an existing row. A missing
	// row is a RESOURCE_NOT_FOUND fault; authorization has already happened
	// by the time the store is called.
	UpdateCharacter(ctx context.Context, c *content.Character) error

	// DeleteCharacter removes a row. A missing row is a RESOURCE_NOT_FOUND
	// fault.
	DeleteCharacter(ctx context.Context, id uuid.UUID) error
}

// Store is the full storage collaborator.
type Store interface {
	OwnershipStore
	RefreshTokenStore
	AccountStore
	ContentStore
}
