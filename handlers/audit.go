package handlers

import (
	"fmt"
	"sync"
	"time"

	"civiclens/models"
)

// auditTrail keeps the most recent administrative mutations in memory and
// mirrors them to the operational log.
type auditTrail struct {
	mu     sync.Mutex
	events []models.AuditLog
}

const auditTrailLimit = 1000

var audit auditTrail

func logAuditEvent(userID, action, details string) {
	entry := models.AuditLog{
		LogID:     fmt.Sprintf("log-%d", time.Now().UnixNano()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		UserID:    userID,
		Action:    action,
		Details:   details,
	}

	audit.mu.Lock()
	audit.events = append(audit.events, entry)
	if len(audit.events) > auditTrailLimit {
		audit.events = audit.events[len(audit.events)-auditTrailLimit:]
	}
	audit.mu.Unlock()

	fmt.Printf("AUDIT: User '%s' performed action '%s' - Details: %s\n", userID, action, details)
}

// RecentAuditEvents returns a copy of the retained audit entries.
func RecentAuditEvents() []models.AuditLog {
	audit.mu.Lock()
	defer audit.mu.Unlock()
	out := make([]models.AuditLog, len(audit.events))
	copy(out, audit.events)
	return out
}
