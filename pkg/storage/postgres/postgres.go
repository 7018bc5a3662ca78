package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fablekeep/fablekeep/pkg/authz"
	"github.com/fablekeep/fablekeep/pkg/content"
	"github.com/fablekeep/fablekeep/pkg/fault"
	"github.com/fablekeep/fablekeep/pkg/query"
	"github.com/fablekeep/fablekeep/pkg/storage"
)

// Store implements storage.Store over database/sql with raw SQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ownershipTables maps each ownable resource to its table. Every table
// follows the same column convention: id, owner_id, visibility.
var ownershipTables = map[authz.Resource]string{
	authz.ResourceCharacters: "characters",
	authz.ResourceItems:      "items",
	authz.ResourceImages:     "images",
	authz.ResourceTags:       "tags",
	authz.ResourceSkills:     "skills",
	authz.ResourcePerks:      "perks",
	authz.ResourceRaces:      "races",
	authz.ResourceArchetypes: "archetypes",
	authz.ResourceEquipment:  "equipment",
}

// allowedSortFields whitelists list sort columns; the sort field is spliced
// into SQL and must never come from user input unchecked.
var allowedSortFields = map[string]bool{
	"id":         true,
	"name":       true,
	"level":      true,
	"created_at": true,
}

// FindResourceOwnership implements storage.OwnershipStore. For the users
// resource the account's own id and role are re-labeled as owner and target
// role; for everything else the owner's role is joined in.
func (s *Store) FindResourceOwnership(ctx context.Context, resource authz.Resource, id uuid.UUID) (*authz.OwnershipContext, error) {
	if resource == authz.ResourceUsers {
		row := s.db.QueryRowContext(ctx, `SELECT id, role FROM accounts WHERE id = $1`, id)

		var ownerID uuid.UUID
		var roleStr string
		if err := row.Scan(&ownerID, &roleStr); err == sql.ErrNoRows {
			return nil, nil
		} else if err != nil {
			return nil, fmt.Errorf("failed to load account projection: %w", err)
		}

		oc := &authz.OwnershipContext{OwnerID: &ownerID}
		if role, ok := authz.ParseRole(roleStr); ok {
			oc.TargetRole = &role
		}
		return oc, nil
	}

	table, ok := ownershipTables[resource]
	if !ok {
		return nil, fmt.Errorf("resource %q has no ownership projection", resource)
	}

	q := fmt.Sprintf(`
		SELECT t.owner_id, t.visibility, a.role
		FROM %s t
		LEFT JOIN accounts a ON a.id = t.owner_id
		WHERE t.id = $1
	`, table)

	var ownerID, visibility, ownerRole sql.NullString
	err := s.db.QueryRowContext(ctx, q, id).Scan(&ownerID, &visibility, &ownerRole)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ownership projection: %w", err)
	}

	oc := &authz.OwnershipContext{}
	if ownerID.Valid {
		if parsed, err := uuid.Parse(ownerID.String); err == nil {
			oc.OwnerID = &parsed
		}
	}
	if visibility.Valid {
		if vis, ok := authz.ParseVisibility(visibility.String); ok {
			oc.Visibility = &vis
		}
	}
	if ownerRole.Valid {
		if role, ok := authz.ParseRole(ownerRole.String); ok {
			oc.OwnerRole = &role
		}
	}
	return oc, nil
}

// FindRefreshToken implements storage.RefreshTokenStore.
func (s *Store) FindRefreshToken(ctx context.Context, token string) (*storage.RefreshToken, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, expires_at, is_revoked, device_info, created_at
		FROM refresh_tokens
		WHERE token = $1
	`, token)

	var rec storage.RefreshToken
	var device sql.NullString
	err := row.Scan(&rec.Token, &rec.UserID, &rec.ExpiresAt, &rec.IsRevoked, &device, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}
	rec.DeviceInfo = device.String
	return &rec, nil
}

// CreateRefreshToken implements storage.RefreshTokenStore.
func (s *Store) CreateRefreshToken(ctx context.Context, rec *storage.RefreshToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at, is_revoked, device_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.Token, rec.UserID, rec.ExpiresAt, rec.IsRevoked, rec.DeviceInfo, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

// RotateRefreshToken implements storage.RefreshTokenStore. The claim is a
// conditional update inside a transaction: it revokes the old row only while
// the row is still live, and the affected-row count decides the winner when
// two rotations race on the same value.
func (s *Store) RotateRefreshToken(ctx context.Context, oldToken string, next *storage.RefreshToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rotation: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET is_revoked = TRUE
		WHERE token = $1 AND is_revoked = FALSE AND expires_at > $2
	`, oldToken, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to claim refresh token: %w", err)
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to claim refresh token: %w", err)
	}
	if claimed == 0 {
		return fault.New(fault.KindTokenInvalid, "postgres.RotateRefreshToken", "refresh token is not live")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at, is_revoked, device_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, next.Token, next.UserID, next.ExpiresAt, next.IsRevoked, next.DeviceInfo, next.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rotated token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}
	return nil
}

// RevokeRefreshToken implements storage.RefreshTokenStore. Revoking an
// unknown or already-revoked token is a no-op.
func (s *Store) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET is_revoked = TRUE WHERE token = $1
	`, token)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllRefreshTokens implements storage.RefreshTokenStore.
func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET is_revoked = TRUE WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

// DeleteExpiredRefreshTokens implements storage.RefreshTokenStore.
func (s *Store) DeleteExpiredRefreshTokens(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at < $1
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return n, nil
}

// FindAccount implements storage.AccountStore.
func (s *Store) FindAccount(ctx context.Context, id uuid.UUID) (*storage.Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, role, is_active, is_banned, created_at
		FROM accounts
		WHERE id = $1
	`, id))
}

// FindAccountByEmail implements storage.AccountStore.
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*storage.Account, error) {
	return s.scanAccount(s.db.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, role, is_active, is_banned, created_at
		FROM accounts
		WHERE email = $1
	`, email))
}

func (s *Store) scanAccount(row *sql.Row) (*storage.Account, error) {
	var a storage.Account
	var roleStr string
	err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &roleStr, &a.IsActive, &a.IsBanned, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	role, ok := authz.ParseRole(roleStr)
	if !ok {
		return nil, fmt.Errorf("account %s has unknown role %q", a.ID, roleStr)
	}
	a.Role = role
	return &a, nil
}

// ListCharacters implements storage.ContentStore. The caller has already
// composed the security filter and any cursor predicate into filter; this
// method only renders it. Results carry a stable id tie-breaker so keyset
// pagination sees a total order.
func (s *Store) ListCharacters(ctx context.Context, filter query.Expr, sortField string, dir query.SortDirection, limit int) ([]*content.Character, error) {
	if !allowedSortFields[sortField] {
		return nil, fmt.Errorf("sort field %q is not sortable", sortField)
	}
	order := "ASC"
	if dir == query.SortDesc {
		order = "DESC"
	}

	q := `SELECT id, name, description, level, visibility, owner_id, created_at FROM characters`
	var args []interface{}
	if filter != nil {
		clause, a := filter.SQL(0)
		q += " WHERE " + clause
		args = a
	}
	q += fmt.Sprintf(" ORDER BY %s %s, id %s", sortField, order, order)
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer rows.Close()

	var out []*content.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	return out, nil
}

// GetCharacter implements storage.ContentStore. The single-row read also
// hydrates the owner summary.
func (s *Store) GetCharacter(ctx context.Context, id uuid.UUID) (*content.Character, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.name, c.description, c.level, c.visibility, c.owner_id, c.created_at, a.username
		FROM characters c
		LEFT JOIN accounts a ON a.id = c.owner_id
		WHERE c.id = $1
	`, id)

	var c content.Character
	var desc, visStr, ownerName sql.NullString
	var ownerID uuid.NullUUID
	err := row.Scan(&c.ID, &c.Name, &desc, &c.Level, &visStr, &ownerID, &c.CreatedAt, &ownerName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load character: %w", err)
	}

	c.Description = desc.String
	if vis, ok := authz.ParseVisibility(visStr.String); ok {
		c.Visibility = vis
	}
	if ownerID.Valid {
		oid := ownerID.UUID
		c.OwnerID = &oid
		if ownerName.Valid {
			c.Owner = &content.OwnerSummary{
				ID:         oid,
				Name:       ownerName.String,
				Visibility: authz.VisibilityPublic,
			}
		}
	}
	return &c, nil
}

// UpdateCharacter implements storage.ContentStore. Only the mutable fields
// change; ownership and creation time are fixed at creation.
func (s *Store) UpdateCharacter(ctx context.Context, c *content.Character) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE characters
		SET name = $1, description = $2, level = $3, visibility = $4
		WHERE id = $5
	`, c.Name, c.Description, c.Level, string(c.Visibility), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update character: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update character: %w", err)
	}
	if n == 0 {
		return fault.New(fault.KindNotFound, "postgres.UpdateCharacter", "character not found")
	}
	return nil
}

// DeleteCharacter implements storage.ContentStore.
func (s *Store) DeleteCharacter(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM characters WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	if n == 0 {
		return fault.New(fault.KindNotFound, "postgres.DeleteCharacter", "character not found")
	}
	return nil
}

func scanCharacter(rows *sql.Rows) (*content.Character, error) {
	var c content.Character
	var desc, visStr sql.NullString
	var ownerID uuid.NullUUID
	if err := rows.Scan(&c.ID, &c.Name, &desc, &c.Level, &visStr, &ownerID, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan character: %w", err)
	}
	c.Description = desc.String
	if vis, ok := authz.ParseVisibility(visStr.String); ok {
		c.Visibility = vis
	}
	if ownerID.Valid {
		oid := ownerID.UUID
		c.OwnerID = &oid
	}
	return &c, nil
}
