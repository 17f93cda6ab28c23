package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"civiclens/middleware"
	"civiclens/models"
	"civiclens/reports"
)

// Geocoder resolves coordinates to an address, degrading to a coordinate
// string on failure.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, latitude, longitude float64) string
}

type ReportHandler struct {
	service  *reports.Service
	geocoder Geocoder
}

func NewReportHandler(service *reports.Service, geocoder Geocoder) *ReportHandler {
	return &ReportHandler{
		service:  service,
		geocoder: geocoder,
	}
}

type createReportRequest struct {
	ImageURL      string  `json:"imageUrl"`
	Title         string  `json:"title"`
	AIDescription string  `json:"aiDescription"`
	UserNotes     string  `json:"userNotes"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

// Create persists a report outside the workflow sessions, for clients that
// already hold an uploaded image URL. The address is resolved server-side.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ImageURL == "" || req.AIDescription == "" || (req.Latitude == 0 && req.Longitude == 0) {
		writeError(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	authorID := ""
	if user, ok := middleware.GetUserFromContext(r.Context()); ok {
		authorID = user.UserID
	}

	address := h.geocoder.ReverseGeocode(r.Context(), req.Latitude, req.Longitude)

	report, err := h.service.Create(r.Context(), reports.CreateInput{
		AuthorID:      authorID,
		ImageURL:      req.ImageURL,
		Title:         req.Title,
		AIDescription: req.AIDescription,
		UserNotes:     req.UserNotes,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Address:       address,
	})
	if err != nil {
		log.Printf("❌ Failed to create report: %v", err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Report created successfully",
		"report":  report,
	})
}

// List returns all reports with optional status and date filters. Admin only
// (enforced by route middleware and again by the service).
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, _ := middleware.GetUserFromContext(r.Context())

	filter := reports.Filter{
		Status: models.ReportStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, "Invalid start_date", http.StatusBadRequest)
			return
		}
		filter.StartDate = t
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, "Invalid end_date", http.StatusBadRequest)
			return
		}
		filter.EndDate = t
	}

	list, err := h.service.ListAll(r.Context(), user, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": list,
		"count":   len(list),
	})
}

// Mine returns the caller's own reports; for anonymous callers, the reports
// submitted without an owner.
func (h *ReportHandler) Mine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, _ := middleware.GetUserFromContext(r.Context())
	userID := ""
	if user != nil {
		userID = user.UserID
	}

	list, err := h.service.ListForUser(r.Context(), user, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reports": list,
		"count":   len(list),
	})
}

// Get returns one report by id for its owner or an administrator.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, "Report ID is required", http.StatusBadRequest)
		return
	}

	user, _ := middleware.GetUserFromContext(r.Context())

	report, err := h.service.GetByID(r.Context(), user, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"report": report})
}

type updateStatusRequest struct {
	ID     string              `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// UpdateStatus moves a report through its lifecycle. Admin only.
func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		writeError(w, "Report ID is required", http.StatusBadRequest)
		return
	}

	report, err := h.service.UpdateStatus(r.Context(), user, req.ID, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logAuditEvent(user.UserID, "UPDATE_STATUS", fmt.Sprintf("report %s -> %s", req.ID, req.Status))
	log.Printf("✅ Report %s status updated to %s by %s", req.ID, req.Status, user.Username)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Report status updated successfully",
		"report":  report,
	})
}

type deleteReportRequest struct {
	ID string `json:"id"`
}

// Delete removes a report irreversibly, notifying the owner. Admin only.
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	var req deleteReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		writeError(w, "Report ID is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), user, req.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	logAuditEvent(user.UserID, "DELETE_REPORT", fmt.Sprintf("report %s", req.ID))
	log.Printf("✅ Report %s deleted by %s", req.ID, user.Username)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Report deleted"})
}

// Analytics returns total and per-status report counts. Admin only.
func (h *ReportHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, _ := middleware.GetUserFromContext(r.Context())

	analytics, err := h.service.Analytics(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analytics)
}

type locateRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Locate resolves coordinates to a display address. Geocoding failure
// degrades to a formatted coordinate string, so this never errors outward.
func (h *ReportHandler) Locate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req locateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	address := h.geocoder.ReverseGeocode(r.Context(), req.Latitude, req.Longitude)
	writeJSON(w, http.StatusOK, map[string]string{"address": address})
}
