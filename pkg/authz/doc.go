// Package authz is the authorization engine: it decides, for every request,
// whether a subject may perform an action on a resource.
//
// The package is built from four pieces with strictly separated duties:
//
//   - Engine is the pure policy decision function. It performs no I/O and
//     holds no state; identical inputs always produce identical results.
//
//   - Resolver loads the minimal ownership/visibility projection for one
//     resource instance from the storage collaborator, or reads it off a
//     creation payload when no row exists yet.
//
//   - FilterBuilder restricts list fetches to rows the subject is entitled
//     to see, as an additive AND constraint on the caller's predicate. It is
//     defense in depth against any per-row check being bypassed or wrong.
//
//   - Gate is the façade the request pipeline calls: resolve, decide, and
//     convert a denial into an UNAUTHORIZED or FORBIDDEN fault.
//
// Decision order inside the engine, first match wins: anonymous subjects may
// only read public instances; admins may do anything except role-change
// their own account or touch another admin's account; owners may do
// anything to their own instances except self-promote; then moderator and
// user rules apply; the default is deny.
//
// Two deliberate asymmetries are worth knowing about. First, the resolver
// swallows storage failures into an empty context, so an outage reads as
// orphaned content rather than cascading 5xx across every authorization
// check; the failure is still observable through the resolver's error hook.
// Second, the policy allows a plain user to read when visibility is
// unresolved, deferring to the list path, which always applies the security
// filter before rows reach a per-row check.
package authz
