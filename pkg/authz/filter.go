package authz

import (
	"github.com/fablekeep/fablekeep/pkg/query"
)

// FilterBuilder composes the row-entitlement constraint for list fetches.
// It is defense in depth, independent of per-row policy checks: even if a
// per-row check were wrong, the fetch itself never returns rows outside the
// subject's entitlement.
type FilterBuilder struct{}

// NewFilterBuilder creates a filter builder.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

// Apply ANDs the subject's entitlement constraint onto the caller's filter.
// The combination always wraps the base expression, so an OR-disjunction in
// the caller's filter can never loosen the constraint.
func (f *FilterBuilder) Apply(base query.Expr, subject *Subject) query.Expr {
	if subject == nil {
		return query.And(base, query.Eq("visibility", string(VisibilityPublic)))
	}

	switch subject.Role {
	case RoleAdmin:
		// No constraint.
		return base
	case RoleModerator:
		// Currently equivalent to "all rows"; kept explicit as the seam for
		// a future restriction.
		return query.And(base, query.Or(
			query.Eq("visibility", string(VisibilityPublic)),
			query.Eq("visibility", string(VisibilityPrivate)),
			query.Eq("visibility", string(VisibilityHidden)),
			query.Eq("owner_id", subject.ID.String()),
		))
	default:
		return query.And(base, query.Or(
			query.Eq("visibility", string(VisibilityPublic)),
			query.Eq("owner_id", subject.ID.String()),
		))
	}
}
