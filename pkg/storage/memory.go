package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fablekeep/fablekeep/pkg/authz"
	"github.com/fablekeep/fablekeep/pkg/content"
	"github.com/fablekeep/fablekeep/pkg/fault"
	"github.com/fablekeep/fablekeep/pkg/query"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs unit tests,
// including the concurrent rotation tests: the claim step runs under the
// same lock discipline the postgres store gets from its conditional update.
type MemoryStore struct {
	mu         sync.RWMutex
	accounts   map[uuid.UUID]*Account
	byEmail    map[string]uuid.UUID
	tokens     map[string]*RefreshToken
	characters map[uuid.UUID]*content.Character
	ownership  map[authz.Resource]map[uuid.UUID]authz.OwnershipContext
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[uuid.UUID]*Account),
		byEmail:    make(map[string]uuid.UUID),
		tokens:     make(map[string]*RefreshToken),
		characters: make(map[uuid.UUID]*content.Character),
		ownership:  make(map[authz.Resource]map[uuid.UUID]authz.OwnershipContext),
	}
}

// AddAccount seeds an account.
func (s *MemoryStore) AddAccount(a *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.ID] = &cp
	s.byEmail[a.Email] = a.ID
}

// AddCharacter seeds a character.
func (s *MemoryStore) AddCharacter(c *content.Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters[c.ID] = c
}

// SeedOwnership seeds an ownership projection for an arbitrary resource.
func (s *MemoryStore) SeedOwnership(resource authz.Resource, id uuid.UUID, ctx authz.OwnershipContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownership[resource] == nil {
		s.ownership[resource] = make(map[uuid.UUID]authz.OwnershipContext)
	}
	s.ownership[resource][id] = ctx
}

// FindResourceOwnership implements OwnershipStore.
func (s *MemoryStore) FindResourceOwnership(_ context.Context, resource authz.Resource, id uuid.UUID) (*authz.OwnershipContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch resource {
	case authz.ResourceUsers:
		// The account's own id and role are re-labeled as owner and target.
		a, ok := s.accounts[id]
		if !ok {
			return nil, nil
		}
		ownerID := a.ID
		role := a.Role
		return &authz.OwnershipContext{OwnerID: &ownerID, TargetRole: &role}, nil

	case authz.ResourceCharacters:
		c, ok := s.characters[id]
		if !ok {
			return nil, nil
		}
		oc := c.OwnershipContext()
		if c.OwnerID != nil {
			if owner, ok := s.accounts[*c.OwnerID]; ok {
				role := owner.Role
				oc.OwnerRole = &role
			}
		}
		return &oc, nil
	}

	if byID, ok := s.ownership[resource]; ok {
		if oc, ok := byID[id]; ok {
			cp := oc
			return &cp, nil
		}
	}
	return nil, nil
}

// FindRefreshToken implements RefreshTokenStore.
func (s *MemoryStore) FindRefreshToken(_ context.Context, token string) (*RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// CreateRefreshToken implements RefreshTokenStore.
func (s *MemoryStore) CreateRefreshToken(_ context.Context, rec *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tokens[rec.Token]; exists {
		return fault.New(fault.KindDatabase, "storage.CreateRefreshToken", "token value already exists")
	}
	cp := *rec
	s.tokens[rec.Token] = &cp
	return nil
}

// RotateRefreshToken implements RefreshTokenStore. The revoke-if-live check
// and the insert happen under one lock, so concurrent rotations of the same
// token value see exactly one winner.
func (s *MemoryStore) RotateRefreshToken(_ context.Context, oldToken string, next *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tokens[oldToken]
	if !ok || !old.Live(time.Now()) {
		return fault.New(fault.KindTokenInvalid, "storage.RotateRefreshToken", "refresh token is not live")
	}

	old.IsRevoked = true
	cp := *next
	s.tokens[next.Token] = &cp
	return nil
}

// RevokeRefreshToken implements RefreshTokenStore.
func (s *MemoryStore) RevokeRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.tokens[token]; ok {
		rec.IsRevoked = true
	}
	return nil
}

// RevokeAllRefreshTokens implements RefreshTokenStore.
func (s *MemoryStore) RevokeAllRefreshTokens(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.tokens {
		if rec.UserID == userID {
			rec.IsRevoked = true
		}
	}
	return nil
}

// DeleteExpiredRefreshTokens implements RefreshTokenStore.
func (s *MemoryStore) DeleteExpiredRefreshTokens(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, rec := range s.tokens {
		if rec.ExpiresAt.Before(olderThan) {
			delete(s.tokens, token)
			n++
		}
	}
	return n, nil
}

// FindAccount implements AccountStore.
func (s *MemoryStore) FindAccount(_ context.Context, id uuid.UUID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// FindAccountByEmail implements AccountStore.
func (s *MemoryStore) FindAccountByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *s.accounts[id]
	return &cp, nil
}

// ListCharacters implements ContentStore by evaluating the predicate against
// each row, then sorting with the id tie-breaker keyset pagination relies on.
func (s *MemoryStore) ListCharacters(_ context.Context, filter query.Expr, sortField string, dir query.SortDirection, limit int) ([]*content.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*content.Character
	for _, c := range s.characters {
		if filter == nil || filter.Match(c.Row()) {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Row(), out[j].Row()
		cmp := query.Compare(ri[sortField], rj[sortField])
		if cmp == 0 {
			cmp = query.Compare(ri["id"], rj["id"])
		}
		if dir == query.SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateCharacter implements ContentStore.
func (s *MemoryStore) UpdateCharacter(_ context.Context, c *content.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.characters[c.ID]; !ok {
		return fault.New(fault.KindNotFound, "storage.UpdateCharacter", "character not found")
	}
	s.characters[c.ID] = c
	return nil
}

// DeleteCharacter implements ContentStore.
func (s *MemoryStore) DeleteCharacter(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.characters[id]; !ok {
		return fault.New(fault.KindNotFound, "storage.DeleteCharacter", "character not found")
	}
	delete(s.characters, id)
	return nil
}

// GetCharacter implements ContentStore.
func (s *MemoryStore) GetCharacter(_ context.Context, id uuid.UUID) (*content.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.characters[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}
