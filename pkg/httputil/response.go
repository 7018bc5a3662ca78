// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fablekeep/fablekeep/pkg/fault"
)

// ErrorResponse is the error envelope every failure path returns. Error holds
// the stable code clients branch on; Message is human-readable.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteFault classifies err and writes the matching status and error code.
// This is the only place handler errors become HTTP responses.
func WriteFault(w http.ResponseWriter, err error) {
	kind := fault.KindOf(err)
	msg := ""
	var fe *fault.Error
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	writeErrorBody(w, fault.HTTPStatus(kind), kind.String(), msg)
}

// WriteErrorCode writes an explicit kind without an underlying error.
func WriteErrorCode(w http.ResponseWriter, kind fault.Kind, message string) {
	writeErrorBody(w, fault.HTTPStatus(kind), kind.String(), message)
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	writeErrorBody(w, http.StatusBadRequest, "BAD_REQUEST", message)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Message: message})
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
