// Package reports owns the report lifecycle: creation, listing, status
// transitions, deletion with notification cascade, and analytics.
package reports

import (
	"context"
	"errors"
	"time"

	"civiclens/models"
)

// ErrReportNotFound is returned by stores for unknown report ids.
var ErrReportNotFound = errors.New("report not found")

// Filter narrows ListReports. Zero values mean no constraint.
type Filter struct {
	Status    models.ReportStatus
	StartDate time.Time
	EndDate   time.Time
}

// Store is the persistence surface the lifecycle service runs on. Implemented
// by db.FirestoreDB and by the in-memory store in this package. Listings are
// ordered newest-first.
type Store interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context, filter Filter) ([]models.Report, error)

	// ListReportsByAuthor returns reports owned by authorID; an empty
	// authorID selects ownerless (anonymous) reports.
	ListReportsByAuthor(ctx context.Context, authorID string) ([]models.Report, error)

	UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus, updatedAt time.Time) (*models.Report, error)
	DeleteReport(ctx context.Context, id string) error
	CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int, error)

	CreateNotification(ctx context.Context, notification *models.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}
