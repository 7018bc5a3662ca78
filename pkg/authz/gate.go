package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/fablekeep/fablekeep/pkg/fault"
)

// Gate is the façade the request pipeline invokes once per single-resource
// operation: it resolves ownership when the caller has not already done so,
// asks the policy engine, and converts a denial into a classified error.
type Gate struct {
	engine   *Engine
	resolver *Resolver
}

// NewGate creates a gate over the given engine and resolver.
func NewGate(engine *Engine, resolver *Resolver) *Gate {
	return &Gate{engine: engine, resolver: resolver}
}

// Check evaluates a pre-resolved ownership context. It returns nil on allow,
// an UNAUTHORIZED fault when an anonymous subject was denied, and FORBIDDEN
// otherwise. The policy engine itself never errors.
func (g *Gate) Check(subject *Subject, action Action, resource Resource, oc OwnershipContext) error {
	if g.engine.Can(subject, action, resource, oc) {
		return nil
	}
	if subject == nil {
		return fault.New(fault.KindUnauthorized, "authz.Check", "authentication required")
	}
	return fault.New(fault.KindForbidden, "authz.Check", "insufficient permissions")
}

// CheckResource resolves the instance's ownership first, then checks.
// Resolution always runs for single-resource operations, so visibility is a
// resolved fact by the time the policy evaluates a read.
//
// Absence is not surfaced here: an absent instance yields an empty context,
// the mutation branch of the policy then decides, and the storage layer
// reports non-existence one layer up. Non-owners can therefore never tell
// "does not exist" apart from "exists but not yours".
func (g *Gate) CheckResource(ctx context.Context, subject *Subject, action Action, resource Resource, id uuid.UUID) error {
	oc, _ := g.resolver.Resolve(ctx, resource, id)
	return g.Check(subject, action, resource, oc)
}

// CheckCreation checks a creation payload's declared ownership claim.
func (g *Gate) CheckCreation(subject *Subject, resource Resource, claim CreationClaim) error {
	return g.Check(subject, ActionCreate, resource, g.resolver.ResolveCreation(claim))
}
