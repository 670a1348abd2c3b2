package router

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
	"github.com/forge-bridge/forge-bridge/internal/store"
)

func handleQueryDependents(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	entityID, valid := requireUUID(msg, "entity_id")
	if !valid {
		return invalid(requestID(msg), "entity_id", "entity_id is required and must be a UUID")
	}
	rows, err := r.Store.Relationships.GetDependents(ctx, r.Store.DB, entityID)
	if err != nil {
		return errorFor(requestID(msg), err)
	}
	return ok(requestID(msg), map[string]any{"dependents": otherEndpointIDs(rows, entityID)})
}

func handleQueryDependencies(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	entityID, valid := requireUUID(msg, "entity_id")
	if !valid {
		return invalid(requestID(msg), "entity_id", "entity_id is required and must be a UUID")
	}
	rows, err := r.Store.Relationships.GetDependencies(ctx, r.Store.DB, entityID)
	if err != nil {
		return errorFor(requestID(msg), err)
	}
	return ok(requestID(msg), map[string]any{"dependencies": otherEndpointIDs(rows, entityID)})
}

// handleQueryShotStack resolves a shot's layer stack: the "stack"
// entity parented to the shot, and every "layer" entity parented to
// that stack, ordered by their declared stacking order.
func handleQueryShotStack(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	shotID, valid := requireUUID(msg, "shot_id")
	if !valid {
		return invalid(requestID(msg), "shot_id", "shot_id is required and must be a UUID")
	}

	shot, err := r.Store.Entities.Get(ctx, r.Store.DB, shotID)
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	stacks, err := r.Store.Entities.ListByType(ctx, r.Store.DB, "stack", shot.ProjectID)
	if err != nil {
		return errorFor(requestID(msg), err)
	}
	var stack *store.EntityRow
	for i := range stacks {
		if stacks[i].ParentID.Valid && stacks[i].ParentID.UUID == shotID {
			stack = &stacks[i]
			break
		}
	}
	if stack == nil {
		return ok(requestID(msg), map[string]any{"shot_id": shotID.String(), "layers": []map[string]any{}})
	}

	layers, err := r.Store.Entities.ListByType(ctx, r.Store.DB, "layer", shot.ProjectID)
	if err != nil {
		return errorFor(requestID(msg), err)
	}
	matched := make([]store.EntityRow, 0)
	for _, l := range layers {
		if l.ParentID.Valid && l.ParentID.UUID == stack.ID {
			matched = append(matched, l)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		oi, _ := matched[i].Attributes["order"].(float64)
		oj, _ := matched[j].Attributes["order"].(float64)
		return oi < oj
	})

	out := make([]map[string]any, 0, len(matched))
	for _, l := range matched {
		out = append(out, entityDict(l))
	}
	return ok(requestID(msg), map[string]any{"shot_id": shotID.String(), "stack_id": stack.ID.String(), "layers": out})
}

func handleQueryEvents(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	projectID, _ := requireUUID(msg, "project_id")
	entityID, _ := requireUUID(msg, "entity_id")
	limit := msg.Int("limit", 50)

	rows, err := r.Store.Events.GetRecent(ctx, r.Store.DB, limit, projectID, entityID)
	if err != nil {
		return errorFor(requestID(msg), err)
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, eventDict(row))
	}
	return ok(requestID(msg), map[string]any{"events": out})
}

// otherEndpointIDs reduces a set of edges touching entityID down to the
// other endpoint on each edge, as a flat list of UUID strings — what
// query.dependents/query.dependencies report on the wire, rather than
// the edge records themselves.
func otherEndpointIDs(rows []store.RelationshipRow, entityID uuid.UUID) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.SourceID == entityID {
			out = append(out, row.TargetID.String())
		} else {
			out = append(out, row.SourceID.String())
		}
	}
	return out
}

func eventDict(row store.EventRow) map[string]any {
	d := map[string]any{
		"event_id":   row.ID,
		"event_type": row.EventType,
		"payload":    map[string]any(row.Payload),
		"occurred_at": row.OccurredAt,
	}
	if row.ProjectID.Valid {
		d["project_id"] = row.ProjectID.UUID.String()
	}
	if row.EntityID.Valid {
		d["entity_id"] = row.EntityID.UUID.String()
	}
	return d
}
