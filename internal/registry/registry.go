package registry

// Registry bundles the role and relationship-type registries that
// together describe a project's structural grammar.
type Registry struct {
	Roles         *RoleRegistry
	Relationships *RelationshipRegistry
}

// Default returns a Registry seeded with all standard roles and system
// relationship types, each protected and keyed by its fixed UUID.
func Default() *Registry {
	roles := NewRoleRegistry()
	roles.SeedStandardRoles()
	rels := NewRelationshipRegistry()
	rels.SeedSystemTypes()
	return &Registry{Roles: roles, Relationships: rels}
}

// Empty returns a Registry seeded with only the system relationship
// types — no standard roles.
func Empty() *Registry {
	roles := NewRoleRegistry()
	rels := NewRelationshipRegistry()
	rels.SeedSystemTypes()
	return &Registry{Roles: roles, Relationships: rels}
}

// RoleSummary is the wire-facing shape of a single role entry in a
// registry summary.
type RoleSummary struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Label     string `json:"label"`
	Order     int    `json:"order"`
	RoleClass string `json:"role_class"`
	Protected bool   `json:"protected"`
}

// RelationshipTypeSummary is the wire-facing shape of a single
// relationship-type entry in a registry summary.
type RelationshipTypeSummary struct {
	Key            string `json:"key"`
	Name           string `json:"name"`
	Label          string `json:"label"`
	Directionality string `json:"directionality"`
	Protected      bool   `json:"protected"`
}

// Summary is the compact registry_summary block sent in the welcome
// message so a newly connected client can render role and relationship
// pickers without a separate round trip.
type Summary struct {
	Roles             []RoleSummary             `json:"roles"`
	RelationshipTypes []RelationshipTypeSummary `json:"relationship_types"`
}

// Summary builds the welcome-message registry snapshot.
func (r *Registry) Summary() Summary {
	roles := r.Roles.All()
	roleSummaries := make([]RoleSummary, 0, len(roles))
	for _, def := range roles {
		roleSummaries = append(roleSummaries, RoleSummary{
			Key:       def.Key.String(),
			Name:      def.Name,
			Label:     def.Label,
			Order:     def.Order,
			RoleClass: string(def.RoleClass),
			Protected: def.Protected,
		})
	}
	rels := r.Relationships.All()
	relSummaries := make([]RelationshipTypeSummary, 0, len(rels))
	for _, def := range rels {
		relSummaries = append(relSummaries, RelationshipTypeSummary{
			Key:            def.Key.String(),
			Name:           def.Name,
			Label:          def.Label,
			Directionality: string(def.Directionality),
			Protected:      def.Protected,
		})
	}
	return Summary{Roles: roleSummaries, RelationshipTypes: relSummaries}
}
