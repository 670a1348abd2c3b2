package router

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
	"github.com/forge-bridge/forge-bridge/internal/store"
	"github.com/forge-bridge/forge-bridge/internal/vocabulary"
)

func handleEntityCreate(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	entityType, hasType := requireString(msg, "entity_type")
	if !hasType {
		return invalid(requestID(msg), "entity_type", "entity_type is required")
	}
	projectID, validProject := requireUUID(msg, "project_id")
	if !validProject {
		return invalid(requestID(msg), "project_id", "project_id is required and must be a UUID")
	}
	attributes := optionalAttributes(msg, "attributes")

	status := vocabulary.StatusPending
	if s := optionalString(msg, "status"); s != "" {
		parsed, err := vocabulary.ParseStatus(s)
		if err != nil {
			return invalid(requestID(msg), "status", err.Error())
		}
		status = parsed
	}

	row := store.EntityRow{
		EntityType: entityType,
		ProjectID:  projectID,
		Name:       optionalString(msg, "name"),
		Status:     string(status),
		Attributes: attributes,
	}
	if parentID, ok := parseOptionalUUID(attributes["parent_id"]); ok {
		row.ParentID = uuid.NullUUID{UUID: parentID, Valid: true}
	}
	if parentType, ok := attributes["parent_type"].(string); ok {
		row.ParentType = parentType
	}
	if roleName, ok := attributes["role"].(string); ok && roleName != "" {
		key, err := r.Registry.Roles.GetKey(roleName)
		if err != nil {
			return errorFor(requestID(msg), err)
		}
		row.RoleKey = uuid.NullUUID{UUID: key, Valid: true}
	}

	var eventID int64
	var entityID uuid.UUID
	err := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		saved, err := r.Store.Entities.Save(ctx, tx, row)
		if err != nil {
			return err
		}
		entityID = saved.ID
		if row.RoleKey.Valid {
			r.Registry.Roles.RegisterUsage(row.RoleKey.UUID, entityID)
		}
		eventID, err = r.Store.Events.Append(ctx, tx, entityType+".created", map[string]any{
			"entity_id": entityID.String(), "entity_type": entityType, "project_id": projectID.String(),
		}, store.AppendOptions{SessionID: sessionID, ProjectID: projectID, EntityID: entityID})
		return err
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	r.Conns.BroadcastEvent(entityType+".created", map[string]any{
		"entity_id": entityID.String(), "entity_type": entityType, "project_id": projectID.String(),
	}, projectID, entityID, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"entity_id": entityID.String()})
}

func handleEntityUpdate(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	entityID, valid := requireUUID(msg, "entity_id")
	if !valid {
		return invalid(requestID(msg), "entity_id", "entity_id is required and must be a UUID")
	}

	var eventID int64
	var projectID uuid.UUID
	err := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		row, err := r.Store.Entities.Get(ctx, tx, entityID)
		if err != nil {
			return err
		}
		if name := optionalString(msg, "name"); name != "" {
			row.Name = name
		}
		if s := optionalString(msg, "status"); s != "" {
			parsed, perr := vocabulary.ParseStatus(s)
			if perr != nil {
				return perr
			}
			row.Status = string(parsed)
		}
		for k, v := range optionalAttributes(msg, "attributes") {
			if row.Attributes == nil {
				row.Attributes = store.JSONMap{}
			}
			row.Attributes[k] = v
		}
		if _, err := r.Store.Entities.Save(ctx, tx, row); err != nil {
			return err
		}
		projectID = row.ProjectID
		eventID, err = r.Store.Events.Append(ctx, tx, row.EntityType+".updated", map[string]any{
			"entity_id": entityID.String(), "entity_type": row.EntityType,
		}, store.AppendOptions{SessionID: sessionID, ProjectID: projectID, EntityID: entityID})
		return err
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	r.Conns.BroadcastEvent("entity.updated", map[string]any{
		"entity_id": entityID.String(),
	}, projectID, entityID, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"entity_id": entityID.String()})
}

// handleEntityGet returns the full persisted dict for one entity — not
// a trimmed projection — so a client never needs a follow-up round trip.
func handleEntityGet(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	entityID, valid := requireUUID(msg, "entity_id")
	if !valid {
		return invalid(requestID(msg), "entity_id", "entity_id is required and must be a UUID")
	}
	row, err := r.Store.Entities.Get(ctx, r.Store.DB, entityID)
	if err != nil {
		return errorFor(requestID(msg), err)
	}
	return ok(requestID(msg), entityDict(row))
}

func handleEntityList(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	entityType, hasType := requireString(msg, "entity_type")
	if !hasType {
		return invalid(requestID(msg), "entity_type", "entity_type is required")
	}
	projectID, _ := requireUUID(msg, "project_id")

	rows, err := r.Store.Entities.ListByType(ctx, r.Store.DB, entityType, projectID)
	if err != nil {
		return errorFor(requestID(msg), err)
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, entityDict(row))
	}
	return ok(requestID(msg), map[string]any{"entities": out})
}

func handleEntityDelete(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	entityID, valid := requireUUID(msg, "entity_id")
	if !valid {
		return invalid(requestID(msg), "entity_id", "entity_id is required and must be a UUID")
	}

	var eventID int64
	var projectID uuid.UUID
	err := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		row, err := r.Store.Entities.Get(ctx, tx, entityID)
		if err != nil {
			return err
		}
		projectID = row.ProjectID
		if err := r.Store.Entities.Delete(ctx, tx, entityID); err != nil {
			return err
		}
		if row.RoleKey.Valid {
			r.Registry.Roles.UnregisterUsage(row.RoleKey.UUID, entityID)
		}
		eventID, err = r.Store.Events.Append(ctx, tx, row.EntityType+".deleted", map[string]any{
			"entity_id": entityID.String(), "entity_type": row.EntityType,
		}, store.AppendOptions{SessionID: sessionID, ProjectID: projectID, EntityID: entityID})
		return err
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	r.Conns.BroadcastEvent("entity.deleted", map[string]any{
		"entity_id": entityID.String(),
	}, projectID, entityID, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"entity_id": entityID.String()})
}

func entityDict(row store.EntityRow) map[string]any {
	d := map[string]any{
		"entity_id":   row.ID.String(),
		"entity_type": row.EntityType,
		"project_id":  row.ProjectID.String(),
		"name":        row.Name,
		"status":      row.Status,
		"attributes":  map[string]any(row.Attributes),
		"created_at":  row.CreatedAt,
		"updated_at":  row.UpdatedAt,
	}
	if row.ParentID.Valid {
		d["parent_id"] = row.ParentID.UUID.String()
		d["parent_type"] = row.ParentType
	}
	if row.RoleKey.Valid {
		d["role_key"] = row.RoleKey.UUID.String()
	}
	return d
}

func parseOptionalUUID(v any) (uuid.UUID, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
