package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablekeep/fablekeep/pkg/authz"
	"github.com/fablekeep/fablekeep/pkg/content"
	"github.com/fablekeep/fablekeep/pkg/masking"
	"github.com/fablekeep/fablekeep/pkg/storage"
)

// seedWorld seeds an owner with one character per visibility level plus a
// second plain user who owns nothing.
func seedWorld(t *testing.T, env *testEnv) (owner, other *storage.Account) {
	t.Helper()
	owner = env.seedAccount(t, "owner@example.com", "pw-owner", authz.RoleUser)
	other = env.seedAccount(t, "other@example.com", "pw-other", authz.RoleUser)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env.seedCharacter("Aria", 5, authz.VisibilityPublic, &owner.ID, t0)
	env.seedCharacter("Brom", 3, authz.VisibilityPrivate, &owner.ID, t0.Add(time.Hour))
	env.seedCharacter("Cyn", 9, authz.VisibilityHidden, &owner.ID, t0.Add(2*time.Hour))
	return owner, other
}

func TestListCharacters_AnonymousSeesOnlyPublic(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)

	w := env.do(t, "GET", "/characters", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp listCharactersResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Characters, 1)
	assert.Equal(t, "Aria", resp.Characters[0].Name)
}

func TestListCharacters_OwnerSeesOwnRows(t *testing.T) {
	env := newTestEnv(t)
	owner, other := seedWorld(t, env)

	w := env.do(t, "GET", "/characters", env.accessToken(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp listCharactersResponse
	decodeBody(t, w, &resp)
	assert.Len(t, resp.Characters, 3)

	// A non-owner plain user is back to public only.
	w = env.do(t, "GET", "/characters", env.accessToken(t, other), nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &resp)
	require.Len(t, resp.Characters, 1)
	assert.Equal(t, "Aria", resp.Characters[0].Name)
}

func TestListCharacters_ModeratorSeesAllUnmasked(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	mod := env.seedAccount(t, "mod@example.com", "pw-mod", authz.RoleModerator)

	w := env.do(t, "GET", "/characters", env.accessToken(t, mod), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp listCharactersResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Characters, 3)
	for _, c := range resp.Characters {
		assert.NotEqual(t, masking.Sentinel, c.Name)
	}
}

func TestListCharacters_CallerFilterCannotWiden(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := seedWorld(t, env)

	// Asking for private rows anonymously yields nothing; the entitlement
	// constraint wraps the caller's filter.
	w := env.do(t, "GET", "/characters?visibility=PRIVATE", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp listCharactersResponse
	decodeBody(t, w, &resp)
	assert.Empty(t, resp.Characters)

	// Naming the owner does not help either.
	w = env.do(t, "GET", "/characters?owner_id="+owner.ID.String()+"&visibility=HIDDEN", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &resp)
	assert.Empty(t, resp.Characters)
}

func TestListCharacters_KeysetPagination(t *testing.T) {
	env := newTestEnv(t)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"Aldo", "Bera", "Ciri", "Dain", "Eryn"} {
		env.seedCharacter(name, i+1, authz.VisibilityPublic, nil, t0.Add(time.Duration(i)*time.Hour))
	}

	w := env.do(t, "GET", "/characters?limit=2&sort=name", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page1 listCharactersResponse
	decodeBody(t, w, &page1)
	require.Len(t, page1.Characters, 2)
	assert.Equal(t, "Aldo", page1.Characters[0].Name)
	assert.Equal(t, "Bera", page1.Characters[1].Name)
	require.NotEmpty(t, page1.NextCursor)

	w = env.do(t, "GET", "/characters?limit=2&sort=name&cursor="+page1.NextCursor, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page2 listCharactersResponse
	decodeBody(t, w, &page2)
	require.Len(t, page2.Characters, 2)
	assert.Equal(t, "Ciri", page2.Characters[0].Name)
	assert.Equal(t, "Dain", page2.Characters[1].Name)
	require.NotEmpty(t, page2.NextCursor)

	w = env.do(t, "GET", "/characters?limit=2&sort=name&cursor="+page2.NextCursor, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page3 listCharactersResponse
	decodeBody(t, w, &page3)
	require.Len(t, page3.Characters, 1)
	assert.Equal(t, "Eryn", page3.Characters[0].Name)
	assert.Empty(t, page3.NextCursor)
}

func TestListCharacters_BadParams(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/characters?limit=0",
		"/characters?limit=nope",
		"/characters?sort=password_hash",
		"/characters?order=sideways",
		"/characters?visibility=LOUD",
		"/characters?owner_id=not-a-uuid",
		"/characters?cursor=not-a-cursor",
	} {
		w := env.do(t, "GET", path, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "path %s", path)
	}
}

func TestGetCharacter_VisibilityRules(t *testing.T) {
	env := newTestEnv(t)
	owner, other := seedWorld(t, env)

	var chars listCharactersResponse
	w := env.do(t, "GET", "/characters", env.accessToken(t, owner), nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &chars)
	byName := map[string]string{}
	for _, c := range chars.Characters {
		byName[c.Name] = c.ID.String()
	}

	// Public: readable by everyone.
	w = env.do(t, "GET", "/characters/"+byName["Aria"], "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Private: anonymous is asked to authenticate, a stranger is refused.
	w = env.do(t, "GET", "/characters/"+byName["Brom"], "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(t, "GET", "/characters/"+byName["Brom"], env.accessToken(t, other), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Hidden: only the owner reads it in full.
	w = env.do(t, "GET", "/characters/"+byName["Cyn"], env.accessToken(t, other), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, "GET", "/characters/"+byName["Cyn"], env.accessToken(t, owner), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetCharacter_MasksHiddenNestedEntities(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedAccount(t, "owner@example.com", "pw", authz.RoleUser)

	c := &content.Character{
		ID:         uuid.New(),
		Name:       "Aria",
		Visibility: authz.VisibilityPublic,
		OwnerID:    &owner.ID,
		CreatedAt:  time.Now().UTC(),
		Equipment: map[content.Slot]*content.Item{
			content.SlotMainHand: {
				ID:         uuid.New(),
				Name:       "Dawnbreaker",
				Power:      12,
				Visibility: authz.VisibilityHidden,
				OwnerID:    &owner.ID,
			},
		},
	}
	env.store.AddCharacter(c)

	w := env.do(t, "GET", "/characters/"+c.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got content.Character
	decodeBody(t, w, &got)
	assert.Equal(t, "Aria", got.Name)
	require.NotNil(t, got.Equipment[content.SlotMainHand])
	assert.Equal(t, masking.Sentinel, got.Equipment[content.SlotMainHand].Name)
	assert.Equal(t, 12, got.Equipment[content.SlotMainHand].Power, "numeric fields survive masking")
}

func TestGetCharacter_NotFound(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedAccount(t, "admin@example.com", "pw", authz.RoleAdmin)

	w := env.do(t, "GET", "/characters/"+uuid.New().String(), env.accessToken(t, admin), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "RESOURCE_NOT_FOUND")
}

func TestUpdateCharacter(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedAccount(t, "owner@example.com", "pw", authz.RoleUser)
	other := env.seedAccount(t, "other@example.com", "pw", authz.RoleUser)
	c := env.seedCharacter("Brom", 3, authz.VisibilityPrivate, &owner.ID, time.Now().UTC())

	name := "Brom the Quiet"
	level := 4

	// A stranger is refused before any row is touched.
	w := env.do(t, "PUT", "/characters/"+c.ID.String(), env.accessToken(t, other), updateCharacterRequest{Name: &name})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Anonymous is asked to authenticate.
	w = env.do(t, "PUT", "/characters/"+c.ID.String(), "", updateCharacterRequest{Name: &name})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The owner's partial update applies only the supplied fields.
	w = env.do(t, "PUT", "/characters/"+c.ID.String(), env.accessToken(t, owner), updateCharacterRequest{Name: &name, Level: &level})
	require.Equal(t, http.StatusOK, w.Code)
	var got content.Character
	decodeBody(t, w, &got)
	assert.Equal(t, "Brom the Quiet", got.Name)
	assert.Equal(t, 4, got.Level)
	assert.Equal(t, authz.VisibilityPrivate, got.Visibility)

	bad := "LOUD"
	w = env.do(t, "PUT", "/characters/"+c.ID.String(), env.accessToken(t, owner), updateCharacterRequest{Visibility: &bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateCharacter_MissingRowIsNotFoundForUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedAccount(t, "user@example.com", "pw", authz.RoleUser)

	// The gate lets the mutation proceed on an unresolvable instance; the
	// storage layer then reports non-existence. A plain user therefore sees
	// 404, not 403, and cannot distinguish absent from never-existed.
	name := "Ghost"
	w := env.do(t, "PUT", "/characters/"+uuid.New().String(), env.accessToken(t, user), updateCharacterRequest{Name: &name})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCharacter(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedAccount(t, "owner@example.com", "pw", authz.RoleUser)
	other := env.seedAccount(t, "other@example.com", "pw", authz.RoleUser)
	admin := env.seedAccount(t, "admin@example.com", "pw", authz.RoleAdmin)
	c := env.seedCharacter("Cyn", 9, authz.VisibilityHidden, &owner.ID, time.Now().UTC())

	w := env.do(t, "DELETE", "/characters/"+c.ID.String(), env.accessToken(t, other), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, "DELETE", "/characters/"+c.ID.String(), env.accessToken(t, admin), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "GET", "/characters/"+c.ID.String(), env.accessToken(t, admin), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
