// Package response writes the JSON envelope all API endpoints share:
// {"data": ...} on success, optionally with pagination meta, and
// {"error": {"code", "message", "details"}} on failure.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type envelope struct {
	Data any             `json:"data"`
	Meta *PaginationMeta `json:"meta,omitempty"`
}

type errorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the body of an error envelope. Code is a stable,
// machine-readable identifier; Message is for humans.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// PaginationMeta accompanies collection responses.
type PaginationMeta struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

// JSON writes a 200 envelope.
func JSON(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, envelope{Data: data})
}

// Created writes a 201 envelope.
func Created(w http.ResponseWriter, data any) {
	write(w, http.StatusCreated, envelope{Data: data})
}

// Accepted writes a 202 envelope, used when work continues asynchronously.
func Accepted(w http.ResponseWriter, data any) {
	write(w, http.StatusAccepted, envelope{Data: data})
}

// Collection writes a 200 envelope with pagination meta alongside the data.
func Collection(w http.ResponseWriter, data any, meta PaginationMeta) {
	write(w, http.StatusOK, envelope{Data: data, Meta: &meta})
}

// Error writes an error envelope with the given status and code.
func Error(w http.ResponseWriter, status int, code, message string, details any) {
	write(w, status, errorEnvelope{Error: ErrorDetail{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

func write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Status is already on the wire; nothing left but to record it.
		slog.Error("encode response", "error", err)
	}
}
