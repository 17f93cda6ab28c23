package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"civiclens/models"
	"civiclens/reports"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// FirestoreDB wraps the Firestore client. It implements reports.Store and the
// identity lookups used by the auth middleware.
type FirestoreDB struct {
	client *firestore.Client
}

// NewFirestoreDB initializes a new Firestore client
func NewFirestoreDB(ctx context.Context, projectID, credentialsPath string) (*FirestoreDB, error) {
	opt := option.WithCredentialsFile(credentialsPath)

	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	log.Printf("✅ Connected to Firestore project: %s", projectID)

	return &FirestoreDB{client: client}, nil
}

// Close closes the Firestore client
func (db *FirestoreDB) Close() error {
	return db.client.Close()
}

// --- Report Operations ---

// CreateReport creates a new report document
func (db *FirestoreDB) CreateReport(ctx context.Context, report *models.Report) error {
	_, err := db.client.Collection("reports").Doc(report.ID).Set(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID
func (db *FirestoreDB) GetReport(ctx context.Context, id string) (*models.Report, error) {
	doc, err := db.client.Collection("reports").Doc(id).Get(ctx)
	if err != nil {
		return nil, reports.ErrReportNotFound
	}

	var report models.Report
	if err := doc.DataTo(&report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListReports retrieves reports matching the filter, newest first
func (db *FirestoreDB) ListReports(ctx context.Context, filter reports.Filter) ([]models.Report, error) {
	query := db.client.Collection("reports").Query
	if filter.Status != "" {
		query = query.Where("status", "==", string(filter.Status))
	}
	if !filter.StartDate.IsZero() {
		query = query.Where("created_at", ">=", filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query = query.Where("created_at", "<=", filter.EndDate)
	}
	query = query.OrderBy("created_at", firestore.Desc)

	return db.collectReports(ctx, query)
}

// ListReportsByAuthor retrieves reports owned by authorID ("" = anonymous)
func (db *FirestoreDB) ListReportsByAuthor(ctx context.Context, authorID string) ([]models.Report, error) {
	query := db.client.Collection("reports").
		Where("author_id", "==", authorID).
		OrderBy("created_at", firestore.Desc)

	return db.collectReports(ctx, query)
}

func (db *FirestoreDB) collectReports(ctx context.Context, query firestore.Query) ([]models.Report, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var result []models.Report
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate reports: %w", err)
		}

		var report models.Report
		if err := doc.DataTo(&report); err != nil {
			log.Printf("Warning: failed to parse report %s: %v", doc.Ref.ID, err)
			continue
		}
		result = append(result, report)
	}

	return result, nil
}

// UpdateReportStatus sets a report's status inside a transaction so a
// concurrent read observes either the old or the new document, never a
// partial write.
func (db *FirestoreDB) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus, updatedAt time.Time) (*models.Report, error) {
	ref := db.client.Collection("reports").Doc(id)

	var updated models.Report
	err := db.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return reports.ErrReportNotFound
		}
		if err := doc.DataTo(&updated); err != nil {
			return fmt.Errorf("failed to parse report: %w", err)
		}
		updated.Status = status
		updated.UpdatedAt = updatedAt
		return tx.Set(ref, updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteReport deletes a report
func (db *FirestoreDB) DeleteReport(ctx context.Context, id string) error {
	_, err := db.client.Collection("reports").Doc(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// CountReportsByStatus tallies all reports in one pass so the totals stay
// sum-consistent with ListReports.
func (db *FirestoreDB) CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int, error) {
	iter := db.client.Collection("reports").Documents(ctx)
	defer iter.Stop()

	counts := make(map[models.ReportStatus]int)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate reports: %w", err)
		}

		var report models.Report
		if err := doc.DataTo(&report); err != nil {
			log.Printf("Warning: failed to parse report %s: %v", doc.Ref.ID, err)
			continue
		}
		counts[report.Status]++
	}

	return counts, nil
}

// --- Notification Operations ---

// CreateNotification creates a new notification document
func (db *FirestoreDB) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := db.client.Collection("notifications").Doc(n.ID).Set(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListNotifications retrieves a user's notifications, newest first
func (db *FirestoreDB) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	iter := db.client.Collection("notifications").
		Where("user_id", "==", userID).
		OrderBy("created_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var result []models.Notification
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate notifications: %w", err)
		}

		var n models.Notification
		if err := doc.DataTo(&n); err != nil {
			log.Printf("Warning: failed to parse notification %s: %v", doc.Ref.ID, err)
			continue
		}
		result = append(result, n)
	}

	return result, nil
}

// MarkNotificationRead flags a notification as read
func (db *FirestoreDB) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := db.client.Collection("notifications").Doc(id).Update(ctx, []firestore.Update{
		{Path: "read", Value: true},
	})
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// --- User Operations ---

// CreateUser creates a new user in Firestore
func (db *FirestoreDB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := db.client.Collection("users").Doc(user.UserID).Set(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (db *FirestoreDB) GetUser(ctx context.Context, userID string) (*models.User, error) {
	doc, err := db.client.Collection("users").Doc(userID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username
func (db *FirestoreDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	iter := db.client.Collection("users").
		Where("username", "==", username).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("user not found: %s", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}

	return &user, nil
}

// UpdateUser updates an existing user
func (db *FirestoreDB) UpdateUser(ctx context.Context, user *models.User) error {
	_, err := db.client.Collection("users").Doc(user.UserID).Set(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// --- Password Operations ---

// StorePasswordHash stores a password hash for a user
func (db *FirestoreDB) StorePasswordHash(ctx context.Context, userID, passwordHash string) error {
	_, err := db.client.Collection("passwords").Doc(userID).Set(ctx, map[string]interface{}{
		"user_id":       userID,
		"password_hash": passwordHash,
		"updated_at":    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to store password hash: %w", err)
	}
	return nil
}

// GetPasswordHash retrieves a password hash for a user
func (db *FirestoreDB) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	doc, err := db.client.Collection("passwords").Doc(userID).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get password hash: %w", err)
	}

	data := doc.Data()
	if hash, ok := data["password_hash"].(string); ok {
		return hash, nil
	}

	return "", fmt.Errorf("password hash not found for user: %s", userID)
}
