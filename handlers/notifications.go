package handlers

import (
	"encoding/json"
	"net/http"

	"civiclens/middleware"
	"civiclens/reports"
)

type NotificationHandler struct {
	service *reports.Service
}

func NewNotificationHandler(service *reports.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	list, err := h.service.Notifications(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": list,
		"count":         len(list),
	})
}

type markReadRequest struct {
	ID string `json:"id"`
}

// MarkRead flags one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		writeError(w, "Notification ID is required", http.StatusBadRequest)
		return
	}

	if err := h.service.MarkNotificationRead(r.Context(), user, req.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}
