package router

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
	"github.com/forge-bridge/forge-bridge/internal/registry"
	"github.com/forge-bridge/forge-bridge/internal/store"
)

func handleRelationshipCreate(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	sourceID, validSource := requireUUID(msg, "source_id")
	targetID, validTarget := requireUUID(msg, "target_id")
	relType, hasType := requireString(msg, "rel_type")
	if !validSource {
		return invalid(requestID(msg), "source_id", "source_id is required and must be a UUID")
	}
	if !validTarget {
		return invalid(requestID(msg), "target_id", "target_id is required and must be a UUID")
	}
	if !hasType {
		return invalid(requestID(msg), "rel_type", "rel_type is required")
	}
	attributes := optionalAttributes(msg, "attributes")

	relKey, err := r.Registry.Relationships.GetKey(relType)
	if err != nil {
		return errorFor(requestID(msg), err)
	}
	r.Registry.Relationships.RegisterUsage(relKey, registry.RelHolder{SourceID: sourceID, TargetID: targetID})

	var eventID int64
	var projectID uuid.UUID
	err = store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if sourceRow, gerr := r.Store.Entities.Get(ctx, tx, sourceID); gerr == nil {
			projectID = sourceRow.ProjectID
		}
		if serr := r.Store.Relationships.Save(ctx, tx, store.RelationshipRow{
			SourceID: sourceID, TargetID: targetID, RelTypeKey: relKey, Attributes: attributes,
		}); serr != nil {
			return serr
		}
		var aerr error
		eventID, aerr = r.Store.Events.Append(ctx, tx, "relationship.created", map[string]any{
			"source_id": sourceID.String(), "target_id": targetID.String(), "rel_type": relType,
		}, store.AppendOptions{SessionID: sessionID, ProjectID: projectID})
		return aerr
	})
	if err != nil {
		r.Registry.Relationships.UnregisterUsage(relKey, registry.RelHolder{SourceID: sourceID, TargetID: targetID})
		return errorFor(requestID(msg), err)
	}

	r.Conns.BroadcastEvent("relationship.created", map[string]any{
		"source_id": sourceID.String(), "target_id": targetID.String(), "rel_type": relType,
	}, projectID, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"source_id": sourceID.String(), "target_id": targetID.String(), "rel_type": relType})
}

func handleRelationshipRemove(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	sourceID, validSource := requireUUID(msg, "source_id")
	targetID, validTarget := requireUUID(msg, "target_id")
	relType, hasType := requireString(msg, "rel_type")
	if !validSource || !validTarget || !hasType {
		return invalid(requestID(msg), "rel_type", "source_id, target_id, and rel_type are required")
	}

	relKey, err := r.Registry.Relationships.GetKey(relType)
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	var eventID int64
	var projectID uuid.UUID
	err = store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if sourceRow, gerr := r.Store.Entities.Get(ctx, tx, sourceID); gerr == nil {
			projectID = sourceRow.ProjectID
		}
		if derr := r.Store.Relationships.Delete(ctx, tx, sourceID, targetID, relKey); derr != nil {
			return derr
		}
		var aerr error
		eventID, aerr = r.Store.Events.Append(ctx, tx, "relationship.removed", map[string]any{
			"source_id": sourceID.String(), "target_id": targetID.String(), "rel_type": relType,
		}, store.AppendOptions{SessionID: sessionID, ProjectID: projectID})
		return aerr
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}
	r.Registry.Relationships.UnregisterUsage(relKey, registry.RelHolder{SourceID: sourceID, TargetID: targetID})

	r.Conns.BroadcastEvent("relationship.removed", map[string]any{
		"source_id": sourceID.String(), "target_id": targetID.String(), "rel_type": relType,
	}, projectID, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"source_id": sourceID.String(), "target_id": targetID.String(), "rel_type": relType})
}

func handleLocationAdd(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	entityID, valid := requireUUID(msg, "entity_id")
	if !valid {
		return invalid(requestID(msg), "entity_id", "entity_id is required and must be a UUID")
	}
	path, hasPath := requireString(msg, "path")
	if !hasPath {
		return invalid(requestID(msg), "path", "path is required")
	}
	storageType := optionalString(msg, "storage_type")
	if storageType == "" {
		storageType = "local"
	}
	priority := msg.Int("priority", 0)

	var eventID int64
	var projectID uuid.UUID
	err := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		row, err := r.Store.Entities.Get(ctx, tx, entityID)
		if err != nil {
			return err
		}
		projectID = row.ProjectID
		existing, err := r.Store.Locations.ListForEntity(ctx, tx, entityID)
		if err != nil {
			return err
		}
		rows := make([]store.LocationRow, 0, len(existing)+1)
		for _, e := range existing {
			rows = append(rows, e)
		}
		rows = append(rows, store.LocationRow{
			Path: path, StorageType: storageType, Priority: priority, Metadata: store.JSONMap{},
		})
		if err := r.Store.Locations.ReplaceEntityLocations(ctx, tx, entityID, rows); err != nil {
			return err
		}
		eventID, err = r.Store.Events.Append(ctx, tx, "location.added", map[string]any{
			"entity_id": entityID.String(), "path": path, "storage_type": storageType,
		}, store.AppendOptions{SessionID: sessionID, ProjectID: projectID, EntityID: entityID})
		return err
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	r.Conns.BroadcastEvent("location.added", map[string]any{
		"entity_id": entityID.String(), "path": path, "storage_type": storageType,
	}, projectID, entityID, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"entity_id": entityID.String(), "path": path})
}

func handleLocationRemove(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	entityID, valid := requireUUID(msg, "entity_id")
	if !valid {
		return invalid(requestID(msg), "entity_id", "entity_id is required and must be a UUID")
	}
	path, hasPath := requireString(msg, "path")
	if !hasPath {
		return invalid(requestID(msg), "path", "path is required")
	}

	var eventID int64
	var projectID uuid.UUID
	err := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		row, err := r.Store.Entities.Get(ctx, tx, entityID)
		if err != nil {
			return err
		}
		projectID = row.ProjectID
		existing, err := r.Store.Locations.ListForEntity(ctx, tx, entityID)
		if err != nil {
			return err
		}
		rows := make([]store.LocationRow, 0, len(existing))
		for _, e := range existing {
			if e.Path != path {
				rows = append(rows, e)
			}
		}
		if err := r.Store.Locations.ReplaceEntityLocations(ctx, tx, entityID, rows); err != nil {
			return err
		}
		eventID, err = r.Store.Events.Append(ctx, tx, "location.removed", map[string]any{
			"entity_id": entityID.String(), "path": path,
		}, store.AppendOptions{SessionID: sessionID, ProjectID: projectID, EntityID: entityID})
		return err
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	r.Conns.BroadcastEvent("location.removed", map[string]any{
		"entity_id": entityID.String(), "path": path,
	}, projectID, entityID, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"entity_id": entityID.String(), "path": path})
}
