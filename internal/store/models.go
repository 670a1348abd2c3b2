// Package store is the persistence layer: typed rows over the tables
// migrations/ creates, a transaction-scope helper, and one repository
// per aggregate. Repositories never broadcast or touch the in-memory
// registry — that wiring belongs to the router.
package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSONMap is a JSONB column scanned into/out of a Go map. nil scans as
// an empty map so callers never nil-check attribute bags.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(m))
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = JSONMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("store: cannot scan %T into JSONMap", src)
	}
	if len(raw) == 0 {
		*m = JSONMap{}
		return nil
	}
	out := JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// RoleRow mirrors the roles table.
type RoleRow struct {
	Key          uuid.UUID `db:"key"`
	Name         string    `db:"name"`
	Label        string    `db:"label"`
	RoleOrder    int       `db:"role_order"`
	RoleClass    string    `db:"role_class"`
	PathTemplate string    `db:"path_template"`
	Aliases      JSONMap   `db:"aliases"`
	Protected    bool      `db:"protected"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// RelationshipTypeRow mirrors the relationship_types table.
type RelationshipTypeRow struct {
	Key            uuid.UUID `db:"key"`
	Name           string    `db:"name"`
	Label          string    `db:"label"`
	Description    string    `db:"description"`
	Directionality string    `db:"directionality"`
	Protected      bool      `db:"protected"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// ProjectRow mirrors the projects table.
type ProjectRow struct {
	ID         uuid.UUID `db:"id"`
	Code       string    `db:"code"`
	Name       string    `db:"name"`
	Attributes JSONMap   `db:"attributes"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// EntityRow mirrors the entities table.
type EntityRow struct {
	ID         uuid.UUID     `db:"id"`
	EntityType string        `db:"entity_type"`
	ProjectID  uuid.UUID     `db:"project_id"`
	Name       string        `db:"name"`
	Status     string        `db:"status"`
	ParentID   uuid.NullUUID `db:"parent_id"`
	ParentType string        `db:"parent_type"`
	RoleKey    uuid.NullUUID `db:"role_key"`
	Attributes JSONMap       `db:"attributes"`
	CreatedAt  time.Time     `db:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"`
}

// LocationRow mirrors the locations table.
type LocationRow struct {
	ID             uuid.UUID     `db:"id"`
	OwnerProjectID uuid.NullUUID `db:"owner_project_id"`
	OwnerEntityID  uuid.NullUUID `db:"owner_entity_id"`
	Path           string        `db:"path"`
	StorageType    string        `db:"storage_type"`
	Priority       int           `db:"priority"`
	ExistsCache    bool          `db:"exists_cache"`
	CheckedAt      *time.Time    `db:"checked_at"`
	Metadata       JSONMap       `db:"metadata"`
	CreatedAt      time.Time     `db:"created_at"`
}

// RelationshipRow mirrors the relationships table.
type RelationshipRow struct {
	SourceID   uuid.UUID `db:"source_id"`
	TargetID   uuid.UUID `db:"target_id"`
	RelTypeKey uuid.UUID `db:"rel_type_key"`
	Attributes JSONMap   `db:"attributes"`
	CreatedAt  time.Time `db:"created_at"`
}

// EventRow mirrors the events table. ID is a BIGSERIAL cursor rather
// than the UUID the original implementation used — an append-only
// integer sequence gives get_since a free, index-friendly ordering
// instead of needing a second monotonic column.
type EventRow struct {
	ID         int64         `db:"id"`
	EventType  string        `db:"event_type"`
	SessionID  uuid.NullUUID `db:"session_id"`
	ClientName string        `db:"client_name"`
	ProjectID  uuid.NullUUID `db:"project_id"`
	EntityID   uuid.NullUUID `db:"entity_id"`
	Payload    JSONMap       `db:"payload"`
	OccurredAt time.Time     `db:"occurred_at"`
}

// SessionRow mirrors the sessions table.
type SessionRow struct {
	ID             uuid.UUID  `db:"id"`
	ClientName     string     `db:"client_name"`
	EndpointType   string     `db:"endpoint_type"`
	Host           string     `db:"host"`
	Capabilities   JSONMap    `db:"capabilities"`
	ConnectedAt    time.Time  `db:"connected_at"`
	DisconnectedAt *time.Time `db:"disconnected_at"`
	LastSeenAt     time.Time  `db:"last_seen_at"`
}
