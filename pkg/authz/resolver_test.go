package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a scripted OwnershipSource.
type fakeSource struct {
	ctx   *OwnershipContext
	err   error
	calls int
}

func (f *fakeSource) FindResourceOwnership(_ context.Context, _ Resource, _ uuid.UUID) (*OwnershipContext, error) {
	f.calls++
	return f.ctx, f.err
}

func TestResolver_Resolve(t *testing.T) {
	owner := uuid.New()
	vis := VisibilityPrivate
	src := &fakeSource{ctx: &OwnershipContext{OwnerID: &owner, Visibility: &vis}}
	r := NewResolver(src)

	oc, exists := r.Resolve(context.Background(), ResourceCharacters, uuid.New())
	assert.True(t, exists)
	assert.Equal(t, owner, *oc.OwnerID)
	assert.Equal(t, VisibilityPrivate, *oc.Visibility)
	assert.Equal(t, 1, src.calls, "exactly one storage round-trip per call")
}

func TestResolver_Resolve_Absent(t *testing.T) {
	r := NewResolver(&fakeSource{})

	oc, exists := r.Resolve(context.Background(), ResourceCharacters, uuid.New())
	assert.False(t, exists)
	assert.Equal(t, OwnershipContext{}, oc)
}

// A storage failure becomes an empty context, not an error: reads fail
// toward permissive, and the failure is reported through the hook.
func TestResolver_Resolve_StorageFailureSwallowed(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	r := NewResolver(src)

	var seenResource Resource
	var seenErr error
	r.OnStorageError(func(resource Resource, err error) {
		seenResource = resource
		seenErr = err
	})

	oc, exists := r.Resolve(context.Background(), ResourceItems, uuid.New())
	assert.True(t, exists, "an outage must not masquerade as absence")
	assert.Equal(t, OwnershipContext{}, oc)
	assert.Equal(t, ResourceItems, seenResource)
	require.Error(t, seenErr)
}

func TestResolver_ResolveCreation(t *testing.T) {
	r := NewResolver(&fakeSource{})
	owner := uuid.New()

	oc := r.ResolveCreation(CreationClaim{OwnerID: &owner, Visibility: "PRIVATE"})
	assert.Equal(t, owner, *oc.OwnerID)
	assert.Equal(t, VisibilityPrivate, *oc.Visibility)

	// Invalid visibility becomes nil, not an error.
	oc = r.ResolveCreation(CreationClaim{Visibility: "SHINY"})
	assert.Nil(t, oc.Visibility)
	assert.Nil(t, oc.OwnerID)
}
