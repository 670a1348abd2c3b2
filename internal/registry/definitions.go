package registry

import (
	"github.com/google/uuid"

	"github.com/forge-bridge/forge-bridge/internal/vocabulary"
)

// Directionality describes how a relationship type's edges are read.
type Directionality string

const (
	DirForward       Directionality = "forward"
	DirBackward      Directionality = "backward"
	DirBidirectional Directionality = "bidirectional"
)

// RoleDefinition is a role with a stable key and mutable display fields.
// Entities hold Key; the name can change freely via Rename.
type RoleDefinition struct {
	Key          uuid.UUID
	Name         string
	Label        string
	PathTemplate string
	Order        int
	RoleClass    vocabulary.RoleClass
	Aliases      map[string]string
	Protected    bool
}

func (d RoleDefinition) clone() RoleDefinition {
	aliases := make(map[string]string, len(d.Aliases))
	for k, v := range d.Aliases {
		aliases[k] = v
	}
	d.Aliases = aliases
	return d
}

// ToRole projects a RoleDefinition onto the read-only vocabulary.Role
// display surface.
func (d RoleDefinition) ToRole() vocabulary.Role {
	return vocabulary.Role{
		Name:         d.Name,
		Label:        d.Label,
		PathTemplate: d.PathTemplate,
		Order:        d.Order,
		RoleClass:    d.RoleClass,
		Aliases:      d.Aliases,
	}
}

// RelationshipDefinition is a relationship type with a stable key and
// mutable display fields. Protected entries describe the structural
// grammar of the dependency graph and may be renamed but never deleted.
type RelationshipDefinition struct {
	Key            uuid.UUID
	Name           string
	Label          string
	Description    string
	Directionality Directionality
	Protected      bool
}
