package reports

import (
	"civiclens/models"
)

// Subscription is a handle to a live report change feed. Implemented by the
// db package's Firestore snapshot listener. Stop must be called on teardown.
type Subscription interface {
	Events() <-chan models.ChangeEvent
	Stop()
}

// ApplyEvent reconciles a report list against one change-feed event and
// returns the new list. Pure: the input slice is not modified.
//
// Inserts go to the front (listings are newest-first), updates replace by id,
// deletes remove by id. A delete for an unknown id is ignored; an update for
// an unknown id is treated as an insert, which covers events that raced a
// full refresh.
func ApplyEvent(list []models.Report, event models.ChangeEvent) []models.Report {
	switch event.Type {
	case models.EventInsert:
		if event.New == nil {
			return list
		}
		out := make([]models.Report, 0, len(list)+1)
		out = append(out, *event.New)
		for _, r := range list {
			if r.ID != event.New.ID {
				out = append(out, r)
			}
		}
		return out

	case models.EventUpdate:
		if event.New == nil {
			return list
		}
		out := make([]models.Report, 0, len(list)+1)
		found := false
		for _, r := range list {
			if r.ID == event.New.ID {
				out = append(out, *event.New)
				found = true
			} else {
				out = append(out, r)
			}
		}
		if !found {
			out = append([]models.Report{*event.New}, out...)
		}
		return out

	case models.EventDelete:
		if event.Old == nil {
			return list
		}
		out := make([]models.Report, 0, len(list))
		for _, r := range list {
			if r.ID != event.Old.ID {
				out = append(out, r)
			}
		}
		return out
	}

	return list
}
