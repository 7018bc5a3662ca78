package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fablekeep/fablekeep/pkg/authz"
	"github.com/fablekeep/fablekeep/pkg/content"
	"github.com/fablekeep/fablekeep/pkg/fault"
	"github.com/fablekeep/fablekeep/pkg/httputil"
	"github.com/fablekeep/fablekeep/pkg/masking"
	"github.com/fablekeep/fablekeep/pkg/middleware"
	"github.com/fablekeep/fablekeep/pkg/query"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// listSortFields mirrors the storage-layer whitelist; validated here so a
// bad sort is a BAD_REQUEST rather than a storage error.
var listSortFields = map[string]bool{
	"id":         true,
	"name":       true,
	"level":      true,
	"created_at": true,
}

type listCharactersResponse struct {
	Characters []*content.Character `json:"characters"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

type updateCharacterRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Level       *int    `json:"level"`
	Visibility  *string `json:"visibility"`
}

// listCharacters handles GET /characters. This is the single list entry
// point: it composes the security filter, the keyset cursor and post-fetch
// masking, in that order. Callers can narrow the result with visibility and
// owner_id parameters, but never widen it; the entitlement constraint wraps
// whatever they ask for.
func (s *Server) listCharacters(w http.ResponseWriter, r *http.Request) {
	subject := middleware.GetSubject(r)

	limit, err := httputil.ParseQueryInt(r, "limit", defaultPageSize)
	if err != nil || limit < 1 {
		httputil.WriteBadRequest(w, "limit must be a positive integer")
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	sortField := httputil.ParseQueryString(r, "sort", "name")
	if !listSortFields[sortField] {
		httputil.WriteBadRequest(w, "unsupported sort field")
		return
	}
	dir := query.SortAsc
	switch httputil.ParseQueryString(r, "order", "asc") {
	case "asc":
	case "desc":
		dir = query.SortDesc
	default:
		httputil.WriteBadRequest(w, "order must be asc or desc")
		return
	}

	var base query.Expr
	if vis := httputil.ParseQueryString(r, "visibility", ""); vis != "" {
		parsed, ok := authz.ParseVisibility(vis)
		if !ok {
			httputil.WriteBadRequest(w, "unknown visibility value")
			return
		}
		base = query.And(base, query.Eq("visibility", string(parsed)))
	}
	if owner := httputil.ParseQueryString(r, "owner_id", ""); owner != "" {
		ownerID, err := uuid.Parse(owner)
		if err != nil {
			httputil.WriteBadRequest(w, "owner_id must be a UUID")
			return
		}
		base = query.And(base, query.Eq("owner_id", ownerID.String()))
	}

	filter := s.filters.Apply(base, subject)

	if cursorStr := httputil.ParseQueryString(r, "cursor", ""); cursorStr != "" {
		cursor, err := query.DecodeCursor(cursorStr)
		if err != nil {
			httputil.WriteBadRequest(w, "malformed cursor")
			return
		}
		filter = query.And(filter, cursor.Predicate(sortField, dir))
	}

	// Fetch one row past the page to learn whether another page exists.
	chars, err := s.store.ListCharacters(r.Context(), filter, sortField, dir, limit+1)
	if err != nil {
		httputil.WriteFault(w, fault.Wrap(fault.KindDatabase, "api.listCharacters", err))
		return
	}

	var nextCursor string
	if len(chars) > limit {
		chars = chars[:limit]
		last := chars[len(chars)-1]
		cursor := query.Cursor{LastValue: last.Row()[sortField], LastID: last.ID.String()}
		if nextCursor, err = cursor.Encode(); err != nil {
			httputil.WriteFault(w, fault.Wrap(fault.KindInternal, "api.listCharacters", err))
			return
		}
	}

	masked := masking.MaskSlice(chars, subject, masking.Options{})
	if s.metrics != nil {
		for i := range chars {
			if masked[i] != chars[i] {
				s.metrics.MaskedEntitiesTotal.WithLabelValues("character").Inc()
			}
		}
	}

	httputil.WriteSuccess(w, listCharactersResponse{Characters: masked, NextCursor: nextCursor})
}

// getCharacter handles GET /characters/{id}. The gate resolves ownership
// before the policy decides, so visibility is always a resolved fact for
// reads; a row outside the subject's read entitlement is FORBIDDEN even
// though it exists, and a missing row is reported only after the gate
// allowed the read.
func (s *Server) getCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathUUID(w, r, "id")
	if !ok {
		return
	}
	subject := middleware.GetSubject(r)

	err := s.gate.CheckResource(r.Context(), subject, authz.ActionRead, authz.ResourceCharacters, id)
	s.recordDecision(subject, authz.ActionRead, authz.ResourceCharacters, err)
	if err != nil {
		httputil.WriteFault(w, err)
		return
	}

	c, err := s.store.GetCharacter(r.Context(), id)
	if err != nil {
		httputil.WriteFault(w, fault.Wrap(fault.KindDatabase, "api.getCharacter", err))
		return
	}
	if c == nil {
		httputil.WriteFault(w, fault.New(fault.KindNotFound, "api.getCharacter", "character not found"))
		return
	}

	masked := masking.Mask(c, subject, masking.Options{})
	if s.metrics != nil && masked != c {
		s.metrics.MaskedEntitiesTotal.WithLabelValues("character").Inc()
	}
	httputil.WriteSuccess(w, masked)
}

// updateCharacter handles PUT /characters/{id}.
func (s *Server) updateCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathUUID(w, r, "id")
	if !ok {
		return
	}
	subject := middleware.GetSubject(r)

	var req updateCharacterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	var vis authz.Visibility
	if req.Visibility != nil {
		parsed, ok := authz.ParseVisibility(*req.Visibility)
		if !ok {
			httputil.WriteBadRequest(w, "unknown visibility value")
			return
		}
		vis = parsed
	}

	err := s.gate.CheckResource(r.Context(), subject, authz.ActionUpdate, authz.ResourceCharacters, id)
	s.recordDecision(subject, authz.ActionUpdate, authz.ResourceCharacters, err)
	if err != nil {
		httputil.WriteFault(w, err)
		return
	}

	c, err := s.store.GetCharacter(r.Context(), id)
	if err != nil {
		httputil.WriteFault(w, fault.Wrap(fault.KindDatabase, "api.updateCharacter", err))
		return
	}
	if c == nil {
		httputil.WriteFault(w, fault.New(fault.KindNotFound, "api.updateCharacter", "character not found"))
		return
	}

	updated := *c
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Level != nil {
		updated.Level = *req.Level
	}
	if req.Visibility != nil {
		updated.Visibility = vis
	}

	if err := s.store.UpdateCharacter(r.Context(), &updated); err != nil {
		httputil.WriteFault(w, err)
		return
	}
	httputil.WriteSuccess(w, &updated)
}

// deleteCharacter handles DELETE /characters/{id}.
func (s *Server) deleteCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathUUID(w, r, "id")
	if !ok {
		return
	}
	subject := middleware.GetSubject(r)

	err := s.gate.CheckResource(r.Context(), subject, authz.ActionDelete, authz.ResourceCharacters, id)
	s.recordDecision(subject, authz.ActionDelete, authz.ResourceCharacters, err)
	if err != nil {
		httputil.WriteFault(w, err)
		return
	}

	if err := s.store.DeleteCharacter(r.Context(), id); err != nil {
		httputil.WriteFault(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
