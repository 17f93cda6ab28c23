package reports

import (
	"context"
	"sort"
	"sync"
	"time"

	"civiclens/models"
)

// MemoryStore is an in-memory Store for tests and credential-free local
// development. All mutations run under one lock, so a concurrent listing
// observes either the pre- or post-update state, never a partial one.
type MemoryStore struct {
	mu            sync.RWMutex
	reports       map[string]models.Report
	notifications map[string]models.Notification
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports:       make(map[string]models.Report),
		notifications: make(map[string]models.Notification),
	}
}

// CreateReport stores a new report.
func (s *MemoryStore) CreateReport(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = *report
	return nil
}

// GetReport returns a report by id.
func (s *MemoryStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return &report, nil
}

// ListReports returns reports matching the filter, newest first.
func (s *MemoryStore) ListReports(ctx context.Context, filter Filter) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Report
	for _, r := range s.reports {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if !filter.StartDate.IsZero() && r.CreatedAt.Before(filter.StartDate) {
			continue
		}
		if !filter.EndDate.IsZero() && r.CreatedAt.After(filter.EndDate) {
			continue
		}
		out = append(out, r)
	}
	sortNewestFirst(out)
	return out, nil
}

// ListReportsByAuthor returns reports owned by authorID; empty selects
// ownerless reports.
func (s *MemoryStore) ListReportsByAuthor(ctx context.Context, authorID string) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Report
	for _, r := range s.reports {
		if r.AuthorID == authorID {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// UpdateReportStatus sets the status and refreshes updated_at atomically.
func (s *MemoryStore) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus, updatedAt time.Time) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	report.Status = status
	report.UpdatedAt = updatedAt
	s.reports[id] = report
	return &report, nil
}

// DeleteReport removes a report.
func (s *MemoryStore) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return ErrReportNotFound
	}
	delete(s.reports, id)
	return nil
}

// CountReportsByStatus tallies all reports in one pass under the read lock,
// keeping the counts sum-consistent with ListReports.
func (s *MemoryStore) CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.ReportStatus]int)
	for _, r := range s.reports {
		counts[r.Status]++
	}
	return counts, nil
}

// CreateNotification stores a notification.
func (s *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = *n
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *MemoryStore) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkNotificationRead flags a notification as read.
func (s *MemoryStore) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return ErrReportNotFound
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

func sortNewestFirst(reports []models.Report) {
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}
