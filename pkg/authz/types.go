package authz

import (
	"github.com/google/uuid"
)

// Role is the closed set of subject roles.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleUser      Role = "USER"
)

// ParseRole validates a role string at the system boundary. Internal code
// trusts the type and never re-validates.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleModerator, RoleUser:
		return Role(s), true
	}
	return "", false
}

// Action is the verb being attempted on a resource. Manage is reserved for
// privileged state changes (role assignment, ban/unban) and is never implied
// by Update.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// ParseAction validates an action string at the system boundary.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionManage:
		return Action(s), true
	}
	return "", false
}

// Resource is the closed set of entity categories the engine decides on.
type Resource string

const (
	ResourceCharacters Resource = "characters"
	ResourceUsers      Resource = "users"
	ResourceItems      Resource = "items"
	ResourceImages     Resource = "images"
	ResourceTags       Resource = "tags"
	ResourceSkills     Resource = "skills"
	ResourcePerks      Resource = "perks"
	ResourceRaces      Resource = "races"
	ResourceArchetypes Resource = "archetypes"
	ResourceEquipment  Resource = "equipment"
)

// ParseResource validates a resource string at the system boundary.
func ParseResource(s string) (Resource, bool) {
	switch Resource(s) {
	case ResourceCharacters, ResourceUsers, ResourceItems, ResourceImages,
		ResourceTags, ResourceSkills, ResourcePerks, ResourceRaces,
		ResourceArchetypes, ResourceEquipment:
		return Resource(s), true
	}
	return "", false
}

// Visibility is the per-instance disclosure level of ownable resources.
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityHidden  Visibility = "HIDDEN"
)

// ParseVisibility validates a visibility string at the system boundary.
func ParseVisibility(s string) (Visibility, bool) {
	switch Visibility(s) {
	case VisibilityPublic, VisibilityPrivate, VisibilityHidden:
		return Visibility(s), true
	}
	return "", false
}

// Subject is the authenticated actor making a request. A nil *Subject means
// anonymous. Immutable for the lifetime of a request.
type Subject struct {
	ID   uuid.UUID
	Role Role
}

// OwnershipContext is the resolved snapshot of facts needed to decide an
// action on one resource instance. It is a value, not a live reference.
// TargetRole is populated only when the resource is users and denotes the
// role of the user being acted upon.
type OwnershipContext struct {
	OwnerID    *uuid.UUID
	Visibility *Visibility
	OwnerRole  *Role
	TargetRole *Role
}

// Owns reports whether the subject owns the instance described by the context.
func (c OwnershipContext) Owns(s *Subject) bool {
	return s != nil && c.OwnerID != nil && *c.OwnerID == s.ID
}
