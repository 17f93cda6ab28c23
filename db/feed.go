package db

import (
	"context"
	"log"

	"civiclens/models"

	"cloud.google.com/go/firestore"
)

// ReportSubscription delivers report change events from a Firestore snapshot
// listener. It implements reports.Subscription.
type ReportSubscription struct {
	events chan models.ChangeEvent
	cancel context.CancelFunc
}

// Events returns the change event channel. It is closed after Stop.
func (s *ReportSubscription) Events() <-chan models.ChangeEvent {
	return s.events
}

// Stop tears down the snapshot listener and closes the event channel.
func (s *ReportSubscription) Stop() {
	s.cancel()
}

// SubscribeReports opens a change feed over the reports collection. An empty
// ownerID subscribes unfiltered (admin view); otherwise only the owner's
// reports are delivered. Callers must Stop the subscription on teardown.
func (db *FirestoreDB) SubscribeReports(ctx context.Context, ownerID string) *ReportSubscription {
	ctx, cancel := context.WithCancel(ctx)

	query := db.client.Collection("reports").Query
	if ownerID != "" {
		query = query.Where("author_id", "==", ownerID)
	}

	sub := &ReportSubscription{
		events: make(chan models.ChangeEvent, 16),
		cancel: cancel,
	}

	go func() {
		defer close(sub.events)

		snapshots := query.Snapshots(ctx)
		defer snapshots.Stop()

		for {
			snap, err := snapshots.Next()
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("⚠️  Report snapshot listener stopped: %v", err)
				}
				return
			}

			for _, change := range snap.Changes {
				event, ok := toChangeEvent(change)
				if !ok {
					continue
				}
				select {
				case sub.events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return sub
}

func toChangeEvent(change firestore.DocumentChange) (models.ChangeEvent, bool) {
	var report models.Report
	if err := change.Doc.DataTo(&report); err != nil {
		log.Printf("Warning: failed to parse report %s in change feed: %v", change.Doc.Ref.ID, err)
		return models.ChangeEvent{}, false
	}

	switch change.Kind {
	case firestore.DocumentAdded:
		return models.ChangeEvent{Type: models.EventInsert, New: &report}, true
	case firestore.DocumentModified:
		return models.ChangeEvent{Type: models.EventUpdate, New: &report}, true
	case firestore.DocumentRemoved:
		return models.ChangeEvent{Type: models.EventDelete, Old: &report}, true
	}
	return models.ChangeEvent{}, false
}
