package router

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
	"github.com/forge-bridge/forge-bridge/internal/store"
)

func handleProjectCreate(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	name, hasName := requireString(msg, "name")
	code, hasCode := requireString(msg, "code")
	if !hasName {
		return invalid(requestID(msg), "name", "name is required")
	}
	if !hasCode {
		return invalid(requestID(msg), "code", "code is required")
	}
	attributes := optionalAttributes(msg, "metadata")

	var eventID int64
	var projectID uuid.UUID
	err := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		saved, err := r.Store.Projects.Save(ctx, tx, store.ProjectRow{Code: code, Name: name, Attributes: attributes})
		if err != nil {
			return err
		}
		projectID = saved.ID
		eventID, err = r.Store.Events.Append(ctx, tx, "project.created", map[string]any{
			"project_id": projectID.String(), "name": name, "code": code,
		}, store.AppendOptions{SessionID: sessionID, ProjectID: projectID})
		return err
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	r.Conns.BroadcastEvent("project.created", map[string]any{
		"project_id": projectID.String(), "name": name, "code": code,
	}, projectID, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"project_id": projectID.String()})
}

func handleProjectUpdate(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	projectID, valid := requireUUID(msg, "project_id")
	if !valid {
		return invalid(requestID(msg), "project_id", "project_id is required and must be a UUID")
	}
	fields := msg.Map("fields")

	var eventID int64
	err := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		row, err := r.Store.Projects.Get(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if name, ok := fields["name"].(string); ok {
			row.Name = name
		}
		if attrs, ok := fields["attributes"].(map[string]any); ok {
			for k, v := range attrs {
				if row.Attributes == nil {
					row.Attributes = store.JSONMap{}
				}
				row.Attributes[k] = v
			}
		}
		_, err = r.Store.Projects.Save(ctx, tx, row)
		if err != nil {
			return err
		}
		eventID, err = r.Store.Events.Append(ctx, tx, "project.updated", map[string]any{
			"project_id": projectID.String(), "fields": fields,
		}, store.AppendOptions{SessionID: sessionID, ProjectID: projectID})
		return err
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	r.Conns.BroadcastEvent("project.updated", map[string]any{
		"project_id": projectID.String(), "fields": fields,
	}, projectID, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"project_id": projectID.String()})
}

func handleProjectGet(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	projectID, valid := requireUUID(msg, "project_id")
	if !valid {
		return invalid(requestID(msg), "project_id", "project_id is required and must be a UUID")
	}
	row, err := r.Store.Projects.Get(ctx, r.Store.DB, projectID)
	if err != nil {
		return errorFor(requestID(msg), err)
	}
	return ok(requestID(msg), projectDict(row))
}

func handleProjectList(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	rows, err := r.Store.Projects.ListAll(ctx, r.Store.DB)
	if err != nil {
		return errorFor(requestID(msg), err)
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, projectDict(row))
	}
	return ok(requestID(msg), map[string]any{"projects": out})
}

func handleProjectDelete(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	projectID, valid := requireUUID(msg, "project_id")
	if !valid {
		return invalid(requestID(msg), "project_id", "project_id is required and must be a UUID")
	}

	var eventID int64
	err := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if err := r.Store.Projects.Delete(ctx, tx, projectID); err != nil {
			return err
		}
		var err error
		eventID, err = r.Store.Events.Append(ctx, tx, "project.deleted", map[string]any{
			"project_id": projectID.String(),
		}, store.AppendOptions{SessionID: sessionID, ProjectID: projectID})
		return err
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	r.Conns.BroadcastEvent("project.deleted", map[string]any{
		"project_id": projectID.String(),
	}, projectID, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"project_id": projectID.String()})
}

func projectDict(row store.ProjectRow) map[string]any {
	return map[string]any{
		"project_id": row.ID.String(),
		"code":       row.Code,
		"name":       row.Name,
		"attributes": map[string]any(row.Attributes),
		"created_at": row.CreatedAt,
		"updated_at": row.UpdatedAt,
	}
}
