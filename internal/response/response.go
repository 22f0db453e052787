// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package response writes the JSON envelope every API answer uses:
// {"success": bool, "data": ..., "error": "..."}.
package response

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"backoffice/internal/apierr"
)

// APIResponse is the wire envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON sends a successful response.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, APIResponse{Success: true, Data: data})
}

// Error sends err with the status its class maps to. Unclassified errors
// are logged and answered with a generic 500 so internals never leak.
func Error(w http.ResponseWriter, err error) {
	status := apierr.Status(err)
	msg := apierr.Message(err)
	if status == http.StatusInternalServerError {
		slog.Error("internal error", "error", err)
		msg = "Internal server error."
	}
	ErrorWithMessage(w, status, msg)
}

// ErrorWithMessage sends a failure with an explicit status and message.
func ErrorWithMessage(w http.ResponseWriter, status int, message string) {
	write(w, status, APIResponse{Success: false, Error: message})
}

func write(w http.ResponseWriter, status int, body APIResponse) {
	payload, err := json.Marshal(body)
	if err != nil {
		slog.Error("encode response", "error", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(payload, '\n'))
}
