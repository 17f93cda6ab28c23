package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civiclens/models"

	"github.com/google/uuid"
)

var (
	// ErrAccessDenied is returned for non-owner, non-admin access.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidStatus is returned for status values outside the lifecycle enum.
	ErrInvalidStatus = errors.New("invalid status value")

	// ErrMissingFields is returned when a report is missing required fields.
	ErrMissingFields = errors.New("missing required report fields")
)

// CreateInput is the payload for Service.Create.
type CreateInput struct {
	AuthorID      string
	ImageURL      string
	Title         string
	AIDescription string
	UserNotes     string
	Latitude      float64
	Longitude     float64
	Address       string
}

// Service is the report lifecycle manager. Authorization is decided per
// operation from the acting user; a nil actor is the anonymous caller.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a lifecycle service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create persists a new report with status pending. A report is never
// persisted without image, description, coordinates and address; the check
// runs before any store call. No notification is emitted on creation.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Report, error) {
	if in.ImageURL == "" || in.AIDescription == "" || in.Latitude == 0 && in.Longitude == 0 {
		return nil, ErrMissingFields
	}
	if in.Address == "" {
		return nil, ErrMissingFields
	}

	title := in.Title
	if title == "" {
		title = "Civic Issue Report"
	}

	now := s.now().UTC()
	report := &models.Report{
		ID:            uuid.NewString(),
		AuthorID:      in.AuthorID,
		ImageURL:      in.ImageURL,
		Title:         title,
		AIDescription: in.AIDescription,
		UserNotes:     in.UserNotes,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		Address:       in.Address,
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return report, nil
}

// ListAll returns all reports matching the filter, newest first. Admin only.
func (s *Service) ListAll(ctx context.Context, actor *models.User, filter Filter) ([]models.Report, error) {
	if !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return nil, ErrInvalidStatus
	}
	return s.store.ListReports(ctx, filter)
}

// ListForUser returns the reports owned by userID. Admins may list anyone;
// other callers only themselves. The anonymous caller lists ownerless reports.
func (s *Service) ListForUser(ctx context.Context, actor *models.User, userID string) ([]models.Report, error) {
	if !actor.IsAdmin() {
		actorID := ""
		if actor != nil {
			actorID = actor.UserID
		}
		if userID != actorID {
			return nil, ErrAccessDenied
		}
	}
	return s.store.ListReportsByAuthor(ctx, userID)
}

// GetByID returns one report; only its owner or an administrator may read it.
func (s *Service) GetByID(ctx context.Context, actor *models.User, id string) (*models.Report, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canRead(actor, report) {
		return nil, ErrAccessDenied
	}
	return report, nil
}

func (s *Service) canRead(actor *models.User, report *models.Report) bool {
	if actor.IsAdmin() {
		return true
	}
	if report.AuthorID == "" {
		// Anonymous reports belong to the anonymous caller.
		return actor == nil
	}
	return actor != nil && actor.UserID == report.AuthorID
}

// UpdateStatus moves a report to newStatus. Admin only. Any value inside the
// three-value enum is accepted in either direction; administrators may revert
// resolved reports to pending. updated_at is refreshed on every mutation.
func (s *Service) UpdateStatus(ctx context.Context, actor *models.User, id string, newStatus models.ReportStatus) (*models.Report, error) {
	if !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}
	if !models.ValidStatus(newStatus) {
		return nil, ErrInvalidStatus
	}
	return s.store.UpdateReportStatus(ctx, id, newStatus, s.now().UTC())
}

// Delete removes a report irreversibly. Admin only. If the report has an
// owner, a warning notification is emitted to them before deletion.
func (s *Service) Delete(ctx context.Context, actor *models.User, id string) error {
	if !actor.IsAdmin() {
		return ErrAccessDenied
	}

	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return err
	}

	if report.AuthorID != "" {
		notification := &models.Notification{
			ID:      uuid.NewString(),
			UserID:  report.AuthorID,
			Title:   "Report Removed",
			Message: fmt.Sprintf("Your report %q was removed by an administrator.", report.Title),
			Type:    models.NotificationWarning,
			// Read defaults to false.
			CreatedAt: s.now().UTC(),
		}
		if err := s.store.CreateNotification(ctx, notification); err != nil {
			return fmt.Errorf("failed to notify report owner: %w", err)
		}
	}

	return s.store.DeleteReport(ctx, id)
}

// Analytics returns total and per-status counts. Admin only. The counts come
// from one store read, so total always equals the sum of the three statuses.
func (s *Service) Analytics(ctx context.Context, actor *models.User) (*models.Analytics, error) {
	if !actor.IsAdmin() {
		return nil, ErrAccessDenied
	}

	counts, err := s.store.CountReportsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}

	analytics := &models.Analytics{
		Pending:    counts[models.StatusPending],
		InProgress: counts[models.StatusInProgress],
		Resolved:   counts[models.StatusResolved],
	}
	analytics.Total = analytics.Pending + analytics.InProgress + analytics.Resolved
	return analytics, nil
}

// Notifications returns the actor's notifications, newest first.
func (s *Service) Notifications(ctx context.Context, actor *models.User) ([]models.Notification, error) {
	if actor == nil {
		return nil, ErrAccessDenied
	}
	return s.store.ListNotifications(ctx, actor.UserID)
}

// MarkNotificationRead flags one of the actor's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, actor *models.User, id string) error {
	if actor == nil {
		return ErrAccessDenied
	}
	notifications, err := s.store.ListNotifications(ctx, actor.UserID)
	if err != nil {
		return err
	}
	for _, n := range notifications {
		if n.ID == id {
			return s.store.MarkNotificationRead(ctx, id)
		}
	}
	return ErrAccessDenied
}
