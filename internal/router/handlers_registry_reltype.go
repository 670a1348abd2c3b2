package router

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
	"github.com/forge-bridge/forge-bridge/internal/registry"
	"github.com/forge-bridge/forge-bridge/internal/store"
)

func handleRelTypeRegister(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	name, hasName := requireString(msg, "name")
	if !hasName {
		return invalid(requestID(msg), "name", "name is required")
	}
	label := optionalString(msg, "label")
	description := optionalString(msg, "description")
	dir := registry.Directionality(optionalString(msg, "directionality"))
	if dir == "" {
		dir = registry.DirForward
	}

	def, err := r.Registry.Relationships.Register(name, registry.RegisterRelTypeOptions{
		Label: label, Description: description, Directionality: dir,
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	var eventID int64
	perr := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if err := r.Store.Registry.SaveRelationshipType(ctx, tx, def); err != nil {
			return err
		}
		var aerr error
		eventID, aerr = r.Store.Events.Append(ctx, tx, "rel_type.registered", map[string]any{
			"name": def.Name, "key": def.Key.String(),
		}, store.AppendOptions{SessionID: sessionID})
		return aerr
	})
	if perr != nil {
		r.Registry.Relationships.Delete(name, "", nil)
		return errorFor(requestID(msg), perr)
	}

	r.Conns.BroadcastEvent("rel_type.registered", map[string]any{
		"name": def.Name, "key": def.Key.String(),
	}, uuid.Nil, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"name": def.Name, "key": def.Key.String()})
}

func handleRelTypeRename(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	oldName, hasOld := requireString(msg, "old_name")
	newName, hasNew := requireString(msg, "new_name")
	if !hasOld || !hasNew {
		return invalid(requestID(msg), "new_name", "old_name and new_name are required")
	}

	def, err := r.Registry.Relationships.Rename(oldName, newName)
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	var eventID int64
	perr := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if err := r.Store.Registry.DeleteRelationshipType(ctx, tx, oldName); err != nil {
			return err
		}
		if err := r.Store.Registry.SaveRelationshipType(ctx, tx, def); err != nil {
			return err
		}
		var aerr error
		eventID, aerr = r.Store.Events.Append(ctx, tx, "rel_type.renamed", map[string]any{
			"old_name": oldName, "new_name": newName, "key": def.Key.String(),
		}, store.AppendOptions{SessionID: sessionID})
		return aerr
	})
	if perr != nil {
		r.Registry.Relationships.Rename(newName, oldName)
		return errorFor(requestID(msg), perr)
	}

	r.Conns.BroadcastEvent("rel_type.renamed", map[string]any{
		"old_name": oldName, "new_name": newName, "key": def.Key.String(),
	}, uuid.Nil, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"name": def.Name, "key": def.Key.String()})
}

func handleRelTypeRenameLabel(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	name, hasName := requireString(msg, "name")
	newLabel, hasLabel := requireString(msg, "new_label")
	if !hasName || !hasLabel {
		return invalid(requestID(msg), "new_label", "name and new_label are required")
	}

	def, err := r.Registry.Relationships.RenameLabel(name, newLabel)
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	var eventID int64
	perr := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if err := r.Store.Registry.SaveRelationshipType(ctx, tx, def); err != nil {
			return err
		}
		var aerr error
		eventID, aerr = r.Store.Events.Append(ctx, tx, "rel_type.label_renamed", map[string]any{
			"name": name, "new_label": newLabel,
		}, store.AppendOptions{SessionID: sessionID})
		return aerr
	})
	if perr != nil {
		return errorFor(requestID(msg), perr)
	}

	r.Conns.BroadcastEvent("rel_type.label_renamed", map[string]any{
		"name": name, "new_label": newLabel,
	}, uuid.Nil, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"name": def.Name, "label": def.Label})
}

func handleRelTypeUpdate(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	name, hasName := requireString(msg, "name")
	if !hasName {
		return invalid(requestID(msg), "name", "name is required")
	}
	fields := msg.Map("fields")
	var update registry.UpdateRelTypeFields
	if label, ok := fields["label"].(string); ok {
		update.Label = &label
	}
	if desc, ok := fields["description"].(string); ok {
		update.Description = &desc
	}

	def, err := r.Registry.Relationships.Update(name, update)
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	var eventID int64
	perr := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if err := r.Store.Registry.SaveRelationshipType(ctx, tx, def); err != nil {
			return err
		}
		var aerr error
		eventID, aerr = r.Store.Events.Append(ctx, tx, "rel_type.updated", map[string]any{
			"name": name, "fields": fields,
		}, store.AppendOptions{SessionID: sessionID})
		return aerr
	})
	if perr != nil {
		return errorFor(requestID(msg), perr)
	}

	r.Conns.BroadcastEvent("rel_type.updated", map[string]any{
		"name": name, "fields": fields,
	}, uuid.Nil, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"name": def.Name})
}

func handleRelTypeList(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	defs := r.Registry.Relationships.All()
	out := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		out = append(out, map[string]any{
			"name": d.Name, "label": d.Label, "key": d.Key.String(),
			"description": d.Description, "directionality": string(d.Directionality),
			"protected": d.Protected,
		})
	}
	return ok(requestID(msg), map[string]any{"relationship_types": out})
}

func handleRelTypeDelete(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	name, hasName := requireString(msg, "name")
	if !hasName {
		return invalid(requestID(msg), "name", "name is required")
	}
	migrateTo := optionalString(msg, "migrate_to")

	migrated, err := r.Registry.Relationships.Delete(name, migrateTo, func(holder registry.RelHolder, newKey uuid.UUID) {
		_, _ = r.Store.DB.ExecContext(ctx,
			`UPDATE relationships SET rel_type_key = $1 WHERE source_id = $2 AND target_id = $3`,
			newKey, holder.SourceID, holder.TargetID)
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	var eventID int64
	perr := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if err := r.Store.Registry.DeleteRelationshipType(ctx, tx, name); err != nil {
			return err
		}
		var aerr error
		eventID, aerr = r.Store.Events.Append(ctx, tx, "rel_type.deleted", map[string]any{
			"name": name, "migrated": migrated,
		}, store.AppendOptions{SessionID: sessionID})
		return aerr
	})
	if perr != nil {
		return errorFor(requestID(msg), perr)
	}

	r.Conns.BroadcastEvent("rel_type.deleted", map[string]any{
		"name": name, "migrated": migrated,
	}, uuid.Nil, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"name": name, "migrated": migrated})
}
