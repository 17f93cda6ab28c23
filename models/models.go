// models.go
// Defines the core data structures used by the CivicLens backend.

package models

import (
	"time"
)

// ReportStatus is the lifecycle state of a report.
// The three literal strings are a wire-format contract; any persisted or
// transmitted value outside this set is invalid.
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusInProgress ReportStatus = "in-progress"
	StatusResolved   ReportStatus = "resolved"
)

// ValidStatus reports whether s is one of the three lifecycle values.
func ValidStatus(s ReportStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Report is the central entity: one citizen-submitted civic issue.
// This struct maps directly to a Firestore document and is used for API
// request/response payloads.
type Report struct {
	ID string `firestore:"id" json:"id"`

	// AuthorID is empty for anonymous submissions.
	AuthorID string `firestore:"author_id" json:"authorId,omitempty"`

	// ImageURL references the stored image binary; the report never holds bytes.
	ImageURL string `firestore:"image_url" json:"imageUrl"`

	Title         string `firestore:"title" json:"title"`
	AIDescription string `firestore:"ai_description" json:"aiDescription"`
	UserNotes     string `firestore:"user_notes" json:"userNotes,omitempty"`

	Latitude  float64 `firestore:"latitude" json:"latitude"`
	Longitude float64 `firestore:"longitude" json:"longitude"`

	// Address is always populated; geocoding failures substitute formatted
	// coordinates, never an empty string.
	Address string `firestore:"address" json:"address"`

	Status ReportStatus `firestore:"status" json:"status"`

	CreatedAt time.Time `firestore:"created_at" json:"createdAt"`
	UpdatedAt time.Time `firestore:"updated_at" json:"updatedAt"`
}

// NotificationType classifies a notification for the UI.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// Notification is created as a side effect of administrative actions and
// consumed by the owning user.
type Notification struct {
	ID        string           `firestore:"id" json:"id"`
	UserID    string           `firestore:"user_id" json:"userId"`
	Title     string           `firestore:"title" json:"title"`
	Message   string           `firestore:"message" json:"message"`
	Type      NotificationType `firestore:"type" json:"type"`
	Read      bool             `firestore:"read" json:"read"`
	CreatedAt time.Time        `firestore:"created_at" json:"createdAt"`
}

// UserRole defines the access level of a user.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User represents an authenticated identity. Role-based access control for
// the report lifecycle hangs off Role.
type User struct {
	UserID    string    `firestore:"user_id" json:"user_id"`
	Username  string    `firestore:"username" json:"username"`
	Role      UserRole  `firestore:"role" json:"role"`
	LastLogin time.Time `firestore:"last_login" json:"last_login"`
}

// IsAdmin reports whether u carries the administrator role. A nil user is the
// anonymous caller.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ChangeEventType mirrors the backend platform's change-feed event kinds.
type ChangeEventType string

const (
	EventInsert ChangeEventType = "INSERT"
	EventUpdate ChangeEventType = "UPDATE"
	EventDelete ChangeEventType = "DELETE"
)

// ChangeEvent is one delivered change-feed event. New is set for inserts and
// updates, Old for updates and deletes.
type ChangeEvent struct {
	Type ChangeEventType `json:"eventType"`
	New  *Report         `json:"new,omitempty"`
	Old  *Report         `json:"old,omitempty"`
}

// Analytics is the admin dashboard aggregate. Total always equals
// Pending + InProgress + Resolved.
type Analytics struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
}

// AuditLog records an administrative mutation.
type AuditLog struct {
	LogID     string `firestore:"log_id" json:"log_id"`
	Timestamp string `firestore:"timestamp" json:"timestamp"`
	UserID    string `firestore:"user_id" json:"user_id"`
	Action    string `firestore:"action" json:"action"`
	Details   string `firestore:"details" json:"details"`
}

// AuthRequest is the payload for login.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse returns the tokens and user details.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}
