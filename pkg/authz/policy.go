package authz

// Engine is the pure policy decision function. It performs no I/O, holds no
// state, and is safe for concurrent use from any number of goroutines.
type Engine struct{}

// NewEngine creates a policy engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Can decides whether subject may perform action on a resource instance
// described by ctx. A nil subject is anonymous. Evaluation is first match
// wins; the final rule is deny.
func (e *Engine) Can(subject *Subject, action Action, resource Resource, ctx OwnershipContext) bool {
	// Anonymous subjects may only read public instances.
	if subject == nil {
		return action == ActionRead && ctx.Visibility != nil && *ctx.Visibility == VisibilityPublic
	}

	if subject.Role == RoleAdmin {
		return e.adminCan(subject, action, resource, ctx)
	}

	// Ownership beats role rules: owners may do anything to their own
	// instances except change roles on a user account.
	if ctx.Owns(subject) {
		return !(resource == ResourceUsers && action == ActionManage)
	}

	switch subject.Role {
	case RoleModerator:
		return e.moderatorCan(subject, action, resource, ctx)
	case RoleUser:
		return e.userCan(subject, action, resource, ctx)
	}

	return false
}

// adminCan allows everything except the two user-account carve-outs:
// admins cannot change roles on their own account, and cannot touch
// another admin's account.
func (e *Engine) adminCan(subject *Subject, action Action, resource Resource, ctx OwnershipContext) bool {
	if resource != ResourceUsers {
		return true
	}

	if ctx.Owns(subject) {
		return action != ActionManage
	}

	if ctx.TargetRole != nil && *ctx.TargetRole == RoleAdmin {
		switch action {
		case ActionUpdate, ActionDelete, ActionManage:
			return false
		}
	}

	return true
}

// moderatorCan handles a moderator acting on instances it does not own.
func (e *Engine) moderatorCan(_ *Subject, action Action, resource Resource, ctx OwnershipContext) bool {
	if action == ActionRead || action == ActionCreate {
		return true
	}

	if resource == ResourceUsers {
		// Moderators may only manage plain users; update and delete on
		// accounts are off limits entirely.
		return action == ActionManage && ctx.TargetRole != nil && *ctx.TargetRole == RoleUser
	}

	if action == ActionUpdate || action == ActionDelete {
		// Orphaned content, or content owned by a plain user, is fair game
		// for moderation.
		if ctx.OwnerID == nil {
			return true
		}
		return ctx.OwnerRole != nil && *ctx.OwnerRole == RoleUser
	}

	return false
}

// userCan handles a plain user acting on instances it does not own.
//
// The unset-visibility read branch intentionally defers the real decision to
// the list path, which is required to have applied the security filter before
// any row reaches this check. The only list entry point exported by this
// module composes filter, fetch and mask together, so no caller can skip it.
func (e *Engine) userCan(subject *Subject, action Action, _ Resource, ctx OwnershipContext) bool {
	switch action {
	case ActionCreate:
		// Creation may claim ownership of oneself, nothing else.
		return ctx.OwnerID == nil || *ctx.OwnerID == subject.ID
	case ActionRead:
		return ctx.Visibility == nil || *ctx.Visibility == VisibilityPublic
	case ActionUpdate, ActionDelete:
		// Allowing the unowned case lets the caller distinguish "not found"
		// from "forbidden" one layer up: the mutation proceeds and the
		// storage layer reports non-existence.
		return ctx.OwnerID == nil || *ctx.OwnerID == subject.ID
	}

	return false
}
