// Package masking redacts descriptive fields on entities a viewer may
// enumerate but not fully read. Entities that need no redaction are returned
// as the same reference, so callers and tests can rely on pointer equality to
// detect that no masking occurred. Masking is idempotent.
package masking

import (
	"github.com/google/uuid"

	"github.com/fablekeep/fablekeep/pkg/authz"
)

// Sentinel replaces descriptive string fields on masked entities.
// Identifiers and numeric or structural fields are left untouched.
const Sentinel = "[hidden]"

// Options controls how nested sub-objects are handled.
type Options struct {
	// NullHiddenNested drops an un-viewable nested entity entirely instead of
	// sentinel-masking it. Callers choose per call site.
	NullHiddenNested bool
}

// Maskable is implemented by ownable entities that can be redacted.
// Implementations are pointer types; Redacted returns a shallow copy with
// descriptive fields replaced and nested entities masked recursively.
type Maskable[T any] interface {
	MaskVisibility() authz.Visibility
	MaskOwnerID() *uuid.UUID
	Redacted(viewer *authz.Subject, opts Options) T
}

// Visible reports whether the viewer may read e in full: the entity is not
// hidden, the viewer owns it, or the viewer is staff.
func Visible[T Maskable[T]](e T, viewer *authz.Subject) bool {
	if e.MaskVisibility() != authz.VisibilityHidden {
		return true
	}
	if viewer == nil {
		return false
	}
	if viewer.Role == authz.RoleAdmin || viewer.Role == authz.RoleModerator {
		return true
	}
	owner := e.MaskOwnerID()
	return owner != nil && *owner == viewer.ID
}

// Mask returns e unmodified (same reference) when the viewer may read it in
// full, and a redacted shallow copy otherwise.
func Mask[T Maskable[T]](e T, viewer *authz.Subject, opts Options) T {
	if Visible(e, viewer) {
		return e
	}
	return e.Redacted(viewer, opts)
}

// Nested masks a nested sub-object by the same rule, honoring the
// NullHiddenNested option: un-viewable nested entities become the zero value
// (nil for pointer implementations) instead of a sentinel-masked copy.
func Nested[T Maskable[T]](e T, viewer *authz.Subject, opts Options) T {
	if Visible(e, viewer) {
		return e
	}
	if opts.NullHiddenNested {
		var zero T
		return zero
	}
	return e.Redacted(viewer, opts)
}

// MaskSlice masks elements of a slice element-wise. If no element required
// masking, the original slice reference is returned.
func MaskSlice[T Maskable[T]](es []T, viewer *authz.Subject, opts Options) []T {
	masked := es
	copied := false
	for i, e := range es {
		m := Mask(e, viewer, opts)
		if any(m) == any(e) {
			continue
		}
		if !copied {
			masked = make([]T, len(es))
			copy(masked, es)
			copied = true
		}
		masked[i] = m
	}
	return masked
}
