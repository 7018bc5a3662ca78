package authz

import (
	"context"

	"github.com/google/uuid"
)

// OwnershipSource is the single storage call the resolver depends on.
// A nil context with nil error means the instance does not exist.
type OwnershipSource interface {
	FindResourceOwnership(ctx context.Context, resource Resource, id uuid.UUID) (*OwnershipContext, error)
}

// CreationClaim carries the caller-declared ownership facts of a creation
// payload, before any row exists to resolve against.
type CreationClaim struct {
	OwnerID    *uuid.UUID
	Visibility string
}

// Resolver loads the ownership/visibility projection for a resource
// instance. It performs exactly one storage round-trip per call and never
// caches or batches.
type Resolver struct {
	source OwnershipSource

	// onStorageError observes swallowed storage failures so an outage stays
	// distinguishable from orphaned content operationally, even though the
	// decision path treats both the same. Optional.
	onStorageError func(resource Resource, err error)
}

// NewResolver creates a resolver over the given source.
func NewResolver(source OwnershipSource) *Resolver {
	return &Resolver{source: source}
}

// OnStorageError registers an observer for swallowed storage failures.
func (r *Resolver) OnStorageError(fn func(resource Resource, err error)) {
	r.onStorageError = fn
}

// Resolve fetches the projection for an existing instance. The second return
// reports existence: false means storage positively confirmed absence.
//
// Storage failures are swallowed into an empty context with exists=true:
// reads fail toward permissive (the instance looks orphaned), writes fail
// toward restrictive for everyone but the orphan-mutation branch. The
// failure is reported through OnStorageError rather than propagated.
func (r *Resolver) Resolve(ctx context.Context, resource Resource, id uuid.UUID) (OwnershipContext, bool) {
	oc, err := r.source.FindResourceOwnership(ctx, resource, id)
	if err != nil {
		if r.onStorageError != nil {
			r.onStorageError(resource, err)
		}
		return OwnershipContext{}, true
	}
	if oc == nil {
		return OwnershipContext{}, false
	}
	return *oc, true
}

// ResolveCreation builds a context from a creation payload. An invalid
// visibility value becomes nil rather than an error: the claim is still
// usable, just ambiguous.
func (r *Resolver) ResolveCreation(claim CreationClaim) OwnershipContext {
	oc := OwnershipContext{}
	if claim.OwnerID != nil {
		id := *claim.OwnerID
		oc.OwnerID = &id
	}
	if vis, ok := ParseVisibility(claim.Visibility); ok {
		oc.Visibility = &vis
	}
	return oc
}
