package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fablekeep/fablekeep/pkg/authz"
	"github.com/fablekeep/fablekeep/pkg/fault"
	"github.com/fablekeep/fablekeep/pkg/observability"
	"github.com/fablekeep/fablekeep/pkg/storage"
)

// MinSecretLen is the minimum signing secret length in bytes.
const MinSecretLen = 32

// SecretProvider supplies the current signing secret. Implementations may
// hot-reload the secret; callers must not retain the returned slice.
type SecretProvider interface {
	Secret() []byte
}

// StaticSecret is a fixed signing secret.
type StaticSecret []byte

// Secret implements SecretProvider.
func (s StaticSecret) Secret() []byte { return []byte(s) }

// Claims is the access-token claim set: registered claims plus the
// subject's role. Access tokens are never persisted; their validity is
// entirely signature plus expiry.
type Claims struct {
	jwt.RegisteredClaims
	Role authz.Role `json:"role"`
}

// AuthSubject reconstructs the typed subject from verified claims.
func (c *Claims) AuthSubject() (*authz.Subject, error) {
	id, err := uuid.Parse(c.RegisteredClaims.Subject)
	if err != nil {
		return nil, fault.Wrap(fault.KindTokenInvalid, "token.AuthSubject", err)
	}
	role, ok := authz.ParseRole(string(c.Role))
	if !ok {
		return nil, fault.New(fault.KindTokenInvalid, "token.AuthSubject", "unknown role claim")
	}
	return &authz.Subject{ID: id, Role: role}, nil
}

// Config holds the token service settings.
type Config struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Store is the slice of the storage collaborator the token service uses.
type Store interface {
	storage.RefreshTokenStore
	storage.AccountStore
}

// Pair is the result of a login or rotation.
type Pair struct {
	AccessToken  string
	RefreshToken *storage.RefreshToken
}

// Service issues and verifies stateless access tokens and manages stateful
// rotating refresh tokens. Storage failures during credential operations are
// surfaced as DATABASE_ERROR faults, never swallowed.
type Service struct {
	store  Store
	secret SecretProvider
	cfg    Config
	logger *observability.Logger

	// now is swapped in tests to simulate expiry.
	now func() time.Time
}

// NewService creates a token service.
func NewService(store Store, secret SecretProvider, cfg Config, logger *observability.Logger) (*Service, error) {
	if len(secret.Secret()) < MinSecretLen {
		return nil, fault.New(fault.KindInternal, "token.NewService", "signing secret must be at least 32 bytes")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fault.New(fault.KindInternal, "token.NewService", "issuer and audience are required")
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Service{
		store:  store,
		secret: secret,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// IssueAccessToken mints a signed HS256 access token for the subject with a
// fresh jti.
func (s *Service) IssueAccessToken(subject authz.Subject) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID.String(),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
			ID:        uuid.NewString(),
		},
		Role: subject.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret.Secret())
	if err != nil {
		return "", fault.Wrap(fault.KindInternal, "token.IssueAccessToken", err)
	}
	return signed, nil
}

// VerifyAccessToken checks signature, issuer, audience and expiry. An
// expired but otherwise valid token yields TOKEN_EXPIRED; every other
// failure mode yields TOKEN_INVALID.
func (s *Service) VerifyAccessToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithTimeFunc(s.now),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return s.secret.Secret(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fault.Wrap(fault.KindTokenExpired, "token.VerifyAccessToken", err)
		}
		return nil, fault.Wrap(fault.KindTokenInvalid, "token.VerifyAccessToken", err)
	}
	return claims, nil
}

// IssueRefreshToken persists a new refresh row for the user. The token value
// is a high-entropy opaque string looked up only by equality; it is never
// derived from any structured data.
func (s *Service) IssueRefreshToken(ctx context.Context, userID uuid.UUID, deviceInfo string) (*storage.RefreshToken, error) {
	now := s.now()
	rec := &storage.RefreshToken{
		Token:      uuid.NewString(),
		UserID:     userID,
		ExpiresAt:  now.Add(s.cfg.RefreshTTL),
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
	}
	if err := s.store.CreateRefreshToken(ctx, rec); err != nil {
		return nil, fault.Wrap(fault.KindDatabase, "token.IssueRefreshToken", err)
	}
	return rec, nil
}

// Login authenticates a first-party password credential and issues a fresh
// token pair. Unknown account, wrong password and bad standing are all the
// same UNAUTHORIZED to the caller.
func (s *Service) Login(ctx context.Context, email, password, deviceInfo string) (*Pair, error) {
	acct, err := s.store.FindAccountByEmail(ctx, email)
	if err != nil {
		return nil, fault.Wrap(fault.KindDatabase, "token.Login", err)
	}
	if acct == nil || !acct.Standing() {
		return nil, fault.New(fault.KindUnauthorized, "token.Login", "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, fault.New(fault.KindUnauthorized, "token.Login", "invalid credentials")
	}

	return s.issuePair(ctx, acct, deviceInfo)
}

// Rotate exchanges a live refresh token for a fresh pair. The old row is
// revoked and the new one created atomically at the storage layer, so two
// concurrent rotations of the same value produce exactly one winner; the
// loser observes TOKEN_INVALID. The subject's standing is re-checked here: a
// disabled or banned user does not get new credentials even with a valid
// refresh token.
func (s *Service) Rotate(ctx context.Context, oldToken, deviceInfo string) (*Pair, error) {
	rec, err := s.store.FindRefreshToken(ctx, oldToken)
	if err != nil {
		return nil, fault.Wrap(fault.KindDatabase, "token.Rotate", err)
	}
	if rec == nil || rec.IsRevoked {
		return nil, fault.New(fault.KindTokenInvalid, "token.Rotate", "unknown or revoked refresh token")
	}
	now := s.now()
	if !now.Before(rec.ExpiresAt) {
		return nil, fault.New(fault.KindTokenExpired, "token.Rotate", "refresh token past expiry")
	}

	acct, err := s.store.FindAccount(ctx, rec.UserID)
	if err != nil {
		return nil, fault.Wrap(fault.KindDatabase, "token.Rotate", err)
	}
	if acct == nil || !acct.Standing() {
		s.logger.WithField("user_id", rec.UserID.String()).Warn("refresh rotation denied for account out of standing")
		return nil, fault.New(fault.KindUnauthorized, "token.Rotate", "account is not in good standing")
	}

	next := &storage.RefreshToken{
		Token:      uuid.NewString(),
		UserID:     rec.UserID,
		ExpiresAt:  now.Add(s.cfg.RefreshTTL),
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
	}
	if err := s.store.RotateRefreshToken(ctx, oldToken, next); err != nil {
		if fault.IsKind(err, fault.KindTokenInvalid) {
			return nil, err
		}
		return nil, fault.Wrap(fault.KindDatabase, "token.Rotate", err)
	}

	access, err := s.IssueAccessToken(authz.Subject{ID: acct.ID, Role: acct.Role})
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: next}, nil
}

// Revoke marks a refresh token revoked. Revoking an already-revoked or
// unknown token is a no-op, not an error.
func (s *Service) Revoke(ctx context.Context, tokenValue string) error {
	if err := s.store.RevokeRefreshToken(ctx, tokenValue); err != nil {
		return fault.Wrap(fault.KindDatabase, "token.Revoke", err)
	}
	return nil
}

// RevokeAll revokes every refresh token the user holds, across devices.
func (s *Service) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.RevokeAllRefreshTokens(ctx, userID); err != nil {
		return fault.Wrap(fault.KindDatabase, "token.RevokeAll", err)
	}
	return nil
}

func (s *Service) issuePair(ctx context.Context, acct *storage.Account, deviceInfo string) (*Pair, error) {
	access, err := s.IssueAccessToken(authz.Subject{ID: acct.ID, Role: acct.Role})
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefreshToken(ctx, acct.ID, deviceInfo)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}
