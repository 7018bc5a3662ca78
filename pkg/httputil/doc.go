// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, and common HTTP middleware patterns.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, data)
//	httputil.WriteCreated(w, resource)
//
// Error responses carry a stable code from pkg/fault plus a message:
//
//	httputil.WriteFault(w, err)
//	httputil.WriteErrorCode(w, fault.KindForbidden, "cannot manage own account")
//	httputil.WriteBadRequest(w, "invalid input")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req loginRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path and query parameters:
//
//	id, ok := httputil.ParsePathUUID(w, r, "id")
//	limit, err := httputil.ParseQueryInt(r, "limit", 20)
//	cursor := httputil.ParseQueryString(r, "cursor", "")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.MaxBytesMiddleware(1*1024*1024),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Authentication and rate limiting middleware
package httputil
