package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"civiclens/middleware"
	"civiclens/workflow"
)

// maxImageBytes bounds uploaded report images (10 MB).
const maxImageBytes = 10 << 20

type WorkflowHandler struct {
	manager *workflow.Manager
}

func NewWorkflowHandler(manager *workflow.Manager) *WorkflowHandler {
	return &WorkflowHandler{manager: manager}
}

// Start opens a submission session for the caller (anonymous allowed) and
// returns its id with the initial capture state.
func (h *WorkflowHandler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	authorID := ""
	if user, ok := middleware.GetUserFromContext(r.Context()); ok {
		authorID = user.UserID
	}

	id := h.manager.Start(authorID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":    id,
		"state": workflow.StateCapture,
	})
}

type advanceRequest struct {
	ID       string `json:"id"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Review *struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		UserNotes   *string `json:"userNotes"`
	} `json:"review"`
}

// Advance drives a session forward. The capture stage posts
// multipart/form-data with the image file; the locate and review stages post
// JSON with the matching payload.
func (h *WorkflowHandler) Advance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		h.advanceWithImage(w, r)
		return
	}

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		writeError(w, "Session ID is required", http.StatusBadRequest)
		return
	}

	var input workflow.Input
	if req.Location != nil {
		input.Location = &workflow.LocationInput{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
		}
	}
	if req.Review != nil {
		input.Review = &workflow.ReviewInput{
			Title:       req.Review.Title,
			Description: req.Review.Description,
			UserNotes:   req.Review.UserNotes,
		}
	}

	// The review stage accepts an empty body: advance means submit.
	if input.Location == nil && input.Review == nil {
		input.Review = &workflow.ReviewInput{}
	}

	h.advance(w, r, req.ID, input)
}

func (h *WorkflowHandler) advanceWithImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	id := r.FormValue("id")
	if id == "" {
		writeError(w, "Session ID is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, "Image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		writeError(w, "Failed to read image", http.StatusBadRequest)
		return
	}
	if len(data) > maxImageBytes {
		writeError(w, "Image too large", http.StatusRequestEntityTooLarge)
		return
	}

	h.advance(w, r, id, workflow.Input{
		Image: &workflow.ImageInput{
			Name: header.Filename,
			Data: data,
		},
	})
}

func (h *WorkflowHandler) advance(w http.ResponseWriter, r *http.Request, id string, input workflow.Input) {
	tr, err := h.manager.Advance(r.Context(), id, input)
	if err != nil {
		log.Printf("⚠️  Workflow %s advance failed: %v", id, err)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":        tr.State,
		"rejected":     tr.Rejected,
		"reason":       tr.Reason,
		"usedFallback": tr.UsedFallback,
		"manualReview": tr.ManualReview,
		"report":       tr.Report,
	})
}

type backRequest struct {
	ID string `json:"id"`
}

// Back steps a session to the previous stage.
func (h *WorkflowHandler) Back(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req backRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		writeError(w, "Session ID is required", http.StatusBadRequest)
		return
	}

	state, err := h.manager.Back(req.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"state": state})
}

// State returns the session snapshot for rendering.
func (h *WorkflowHandler) State(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, "Session ID is required", http.StatusBadRequest)
		return
	}

	snapshot, err := h.manager.Snapshot(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}
