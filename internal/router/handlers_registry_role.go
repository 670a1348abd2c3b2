package router

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/forge-bridge/forge-bridge/internal/protocol"
	"github.com/forge-bridge/forge-bridge/internal/registry"
	"github.com/forge-bridge/forge-bridge/internal/store"
	"github.com/forge-bridge/forge-bridge/internal/vocabulary"
)

func handleRoleRegister(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	name, hasName := requireString(msg, "name")
	if !hasName {
		return invalid(requestID(msg), "name", "name is required")
	}
	label := optionalString(msg, "label")
	order := msg.Int("order", 0)
	pathTemplate := optionalString(msg, "path_template")
	aliases := map[string]string{}
	for k, v := range msg.Map("aliases") {
		if s, ok := v.(string); ok {
			aliases[k] = s
		}
	}

	def, err := r.Registry.Roles.Register(name, registry.RegisterRoleOptions{
		Label: label, Order: order, PathTemplate: pathTemplate,
		RoleClass: vocabulary.RoleClassTrack, Aliases: aliases,
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	var eventID int64
	perr := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if err := r.Store.Registry.SaveRole(ctx, tx, def); err != nil {
			return err
		}
		var aerr error
		eventID, aerr = r.Store.Events.Append(ctx, tx, "role.registered", map[string]any{
			"name": def.Name, "key": def.Key.String(),
		}, store.AppendOptions{SessionID: sessionID})
		return aerr
	})
	if perr != nil {
		r.Registry.Roles.Delete(name, "", nil)
		return errorFor(requestID(msg), perr)
	}

	r.Conns.BroadcastEvent("role.registered", map[string]any{
		"name": def.Name, "key": def.Key.String(),
	}, uuid.Nil, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"name": def.Name, "key": def.Key.String()})
}

func handleRoleRename(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	oldName, hasOld := requireString(msg, "old_name")
	newName, hasNew := requireString(msg, "new_name")
	if !hasOld || !hasNew {
		return invalid(requestID(msg), "new_name", "old_name and new_name are required")
	}

	def, err := r.Registry.Roles.Rename(oldName, newName)
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	var eventID int64
	perr := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if err := r.Store.Registry.DeleteRole(ctx, tx, oldName); err != nil {
			return err
		}
		if err := r.Store.Registry.SaveRole(ctx, tx, def); err != nil {
			return err
		}
		var aerr error
		eventID, aerr = r.Store.Events.Append(ctx, tx, "role.renamed", map[string]any{
			"old_name": oldName, "new_name": newName, "key": def.Key.String(),
		}, store.AppendOptions{SessionID: sessionID})
		return aerr
	})
	if perr != nil {
		r.Registry.Roles.Rename(newName, oldName)
		return errorFor(requestID(msg), perr)
	}

	r.Conns.BroadcastEvent("role.renamed", map[string]any{
		"old_name": oldName, "new_name": newName, "key": def.Key.String(),
	}, uuid.Nil, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"name": def.Name, "key": def.Key.String()})
}

func handleRoleRenameLabel(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	name, hasName := requireString(msg, "name")
	newLabel, hasLabel := requireString(msg, "new_label")
	if !hasName || !hasLabel {
		return invalid(requestID(msg), "new_label", "name and new_label are required")
	}

	def, err := r.Registry.Roles.RenameLabel(name, newLabel)
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	var eventID int64
	perr := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if err := r.Store.Registry.SaveRole(ctx, tx, def); err != nil {
			return err
		}
		var aerr error
		eventID, aerr = r.Store.Events.Append(ctx, tx, "role.label_renamed", map[string]any{
			"name": name, "new_label": newLabel,
		}, store.AppendOptions{SessionID: sessionID})
		return aerr
	})
	if perr != nil {
		return errorFor(requestID(msg), perr)
	}

	r.Conns.BroadcastEvent("role.label_renamed", map[string]any{
		"name": name, "new_label": newLabel,
	}, uuid.Nil, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"name": def.Name, "label": def.Label})
}

func handleRoleUpdate(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	name, hasName := requireString(msg, "name")
	if !hasName {
		return invalid(requestID(msg), "name", "name is required")
	}
	fields := msg.Map("fields")
	var update registry.UpdateRoleFields
	if label, ok := fields["label"].(string); ok {
		update.Label = &label
	}
	if order, ok := fields["order"].(float64); ok {
		oi := int(order)
		update.Order = &oi
	}
	if pt, ok := fields["path_template"].(string); ok {
		update.PathTemplate = &pt
	}

	def, err := r.Registry.Roles.Update(name, update)
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	// role.update persists and appends an event unconditionally, closing a
	// gap in the original implementation where updating a role's mutable
	// fields never reached the event log or connected clients.
	var eventID int64
	perr := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if err := r.Store.Registry.SaveRole(ctx, tx, def); err != nil {
			return err
		}
		var aerr error
		eventID, aerr = r.Store.Events.Append(ctx, tx, "role.updated", map[string]any{
			"name": name, "fields": fields,
		}, store.AppendOptions{SessionID: sessionID})
		return aerr
	})
	if perr != nil {
		return errorFor(requestID(msg), perr)
	}

	r.Conns.BroadcastEvent("role.updated", map[string]any{
		"name": name, "fields": fields,
	}, uuid.Nil, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"name": def.Name})
}

func handleRoleList(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	defs := r.Registry.Roles.All()
	out := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		out = append(out, map[string]any{
			"name": d.Name, "label": d.Label, "key": d.Key.String(),
			"order": d.Order, "role_class": string(d.RoleClass),
			"path_template": d.PathTemplate, "aliases": d.Aliases, "protected": d.Protected,
		})
	}
	return ok(requestID(msg), map[string]any{"roles": out})
}

func handleRoleDelete(ctx context.Context, r *Router, sessionID uuid.UUID, msg protocol.Message) *protocol.Message {
	name, hasName := requireString(msg, "name")
	if !hasName {
		return invalid(requestID(msg), "name", "name is required")
	}
	migrateTo := optionalString(msg, "migrate_to")

	migrated, err := r.Registry.Roles.Delete(name, migrateTo, func(holder uuid.UUID, newKey uuid.UUID) {
		_, _ = r.Store.DB.ExecContext(ctx, `UPDATE entities SET role_key = $1 WHERE id = $2`, newKey, holder)
	})
	if err != nil {
		return errorFor(requestID(msg), err)
	}

	var eventID int64
	perr := store.WithTx(ctx, r.Store.DB, func(tx *sqlx.Tx) error {
		if err := r.Store.Registry.DeleteRole(ctx, tx, name); err != nil {
			return err
		}
		var aerr error
		eventID, aerr = r.Store.Events.Append(ctx, tx, "role.deleted", map[string]any{
			"name": name, "migrated": migrated,
		}, store.AppendOptions{SessionID: sessionID})
		return aerr
	})
	if perr != nil {
		return errorFor(requestID(msg), perr)
	}

	r.Conns.BroadcastEvent("role.deleted", map[string]any{
		"name": name, "migrated": migrated,
	}, uuid.Nil, uuid.Nil, sessionID, eventID)

	return ok(requestID(msg), map[string]any{"name": name, "migrated": migrated})
}
