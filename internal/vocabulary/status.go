// Package vocabulary holds the supporting value types shared by every
// entity: lifecycle status, role display data, and timecode/frame-range
// arithmetic.
package vocabulary

import (
	"fmt"
	"strings"
)

// Status is a canonical lifecycle value. Pipelines speak many dialects
// ("wip", "final", "omit") that all map onto one of these.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusDelivered  Status = "delivered"
	StatusArchived   Status = "archived"
)

var validStatuses = []Status{
	StatusPending, StatusInProgress, StatusReview,
	StatusApproved, StatusRejected, StatusDelivered, StatusArchived,
}

var statusAliases = map[string]Status{
	"wip":              StatusInProgress,
	"work_in_progress": StatusInProgress,
	"ip":               StatusInProgress,
	"pending_review":   StatusReview,
	"for_review":       StatusReview,
	"final":            StatusDelivered,
	"done":             StatusDelivered,
	"complete":         StatusDelivered,
	"omit":             StatusArchived,
}

// ParseStatus resolves a status string, applying the alias table before
// falling back to an exact canonical match.
func ParseStatus(value string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if alias, ok := statusAliases[normalized]; ok {
		return alias, nil
	}
	for _, s := range validStatuses {
		if string(s) == normalized {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q: valid values are %v", value, validStatuses)
}

// Valid reports whether s is one of the canonical status values.
func (s Status) Valid() bool {
	for _, v := range validStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }
