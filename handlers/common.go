package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"civiclens/reports"
	"civiclens/workflow"
)

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeServiceError maps lifecycle and workflow errors to HTTP statuses.
// Access denials never leak whether the resource exists.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reports.ErrAccessDenied):
		writeError(w, "Access denied", http.StatusForbidden)
	case errors.Is(err, reports.ErrReportNotFound):
		writeError(w, "Report not found", http.StatusNotFound)
	case errors.Is(err, reports.ErrInvalidStatus):
		writeError(w, "Invalid status value", http.StatusBadRequest)
	case errors.Is(err, reports.ErrMissingFields):
		writeError(w, "Missing required fields", http.StatusBadRequest)
	case errors.Is(err, workflow.ErrSessionNotFound):
		writeError(w, "Workflow session not found", http.StatusNotFound)
	case errors.Is(err, workflow.ErrInvalidInput):
		writeError(w, "Input does not match workflow state", http.StatusBadRequest)
	case errors.Is(err, workflow.ErrCompleted):
		writeError(w, "Workflow already completed", http.StatusConflict)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}
