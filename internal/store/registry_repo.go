package store

import (
	"context"

	"github.com/forge-bridge/forge-bridge/internal/platform/bridgeerr"
	"github.com/forge-bridge/forge-bridge/internal/registry"
	"github.com/forge-bridge/forge-bridge/internal/vocabulary"
)

// RegistryRepo persists the roles and relationship_types tables and
// rebuilds an in-memory registry.Registry from them at startup.
type RegistryRepo struct{}

func NewRegistryRepo() *RegistryRepo { return &RegistryRepo{} }

// SaveRole upserts one role definition.
func (r *RegistryRepo) SaveRole(ctx context.Context, db DBTX, def registry.RoleDefinition) error {
	aliases := map[string]any{}
	for k, v := range def.Aliases {
		aliases[k] = v
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO roles (key, name, label, role_order, role_class, path_template, aliases, protected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (key) DO UPDATE SET
			name = EXCLUDED.name,
			label = EXCLUDED.label,
			role_order = EXCLUDED.role_order,
			path_template = EXCLUDED.path_template,
			aliases = EXCLUDED.aliases,
			updated_at = now()
	`, def.Key, def.Name, def.Label, def.Order, string(def.RoleClass), def.PathTemplate, JSONMap(aliases), def.Protected)
	if err != nil {
		return bridgeerr.Internal("save role", err)
	}
	return nil
}

// DeleteRole removes one persisted role by name.
func (r *RegistryRepo) DeleteRole(ctx context.Context, db DBTX, name string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM roles WHERE name = $1`, name)
	if err != nil {
		return bridgeerr.Internal("delete role", err)
	}
	return nil
}

// SaveRelationshipType upserts one relationship-type definition.
func (r *RegistryRepo) SaveRelationshipType(ctx context.Context, db DBTX, def registry.RelationshipDefinition) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO relationship_types (key, name, label, description, directionality, protected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (key) DO UPDATE SET
			name = EXCLUDED.name,
			label = EXCLUDED.label,
			description = EXCLUDED.description,
			directionality = EXCLUDED.directionality,
			updated_at = now()
	`, def.Key, def.Name, def.Label, def.Description, string(def.Directionality), def.Protected)
	if err != nil {
		return bridgeerr.Internal("save relationship type", err)
	}
	return nil
}

// DeleteRelationshipType removes one persisted relationship type by name.
func (r *RegistryRepo) DeleteRelationshipType(ctx context.Context, db DBTX, name string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM relationship_types WHERE name = $1`, name)
	if err != nil {
		return bridgeerr.Internal("delete relationship type", err)
	}
	return nil
}

// RestoreRegistry rebuilds an in-memory registry.Registry from
// persisted rows. Called once at server startup, before the first
// connection is accepted. An empty database yields Default()'s seeded
// standard vocabulary, matching a fresh installation.
func (r *RegistryRepo) RestoreRegistry(ctx context.Context, db DBTX) (*registry.Registry, error) {
	var roleRows []RoleRow
	if err := db.SelectContext(ctx, &roleRows, `
		SELECT key, name, label, role_order, role_class, path_template, aliases, protected, created_at, updated_at
		FROM roles ORDER BY role_order
	`); err != nil {
		return nil, bridgeerr.Internal("load roles", err)
	}

	var relRows []RelationshipTypeRow
	if err := db.SelectContext(ctx, &relRows, `
		SELECT key, name, label, description, directionality, protected, created_at, updated_at
		FROM relationship_types ORDER BY name
	`); err != nil {
		return nil, bridgeerr.Internal("load relationship types", err)
	}

	if len(roleRows) == 0 && len(relRows) == 0 {
		return registry.Default(), nil
	}

	roles := registry.NewRoleRegistry()
	for _, row := range roleRows {
		key := row.Key
		aliases := map[string]string{}
		for k, v := range row.Aliases {
			if s, ok := v.(string); ok {
				aliases[k] = s
			}
		}
		roles.Register(row.Name, registry.RegisterRoleOptions{
			Key:          &key,
			Label:        row.Label,
			Order:        row.RoleOrder,
			PathTemplate: row.PathTemplate,
			RoleClass:    vocabulary.RoleClass(row.RoleClass),
			Aliases:      aliases,
			Protected:    row.Protected,
		})
	}

	rels := registry.NewRelationshipRegistry()
	for _, row := range relRows {
		key := row.Key
		rels.Register(row.Name, registry.RegisterRelTypeOptions{
			Key:            &key,
			Label:          row.Label,
			Description:    row.Description,
			Directionality: registry.Directionality(row.Directionality),
			Protected:      row.Protected,
		})
	}

	return &registry.Registry{Roles: roles, Relationships: rels}, nil
}
