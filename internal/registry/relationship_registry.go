package registry

import (
	"sync"

	"github.com/google/uuid"
)

// RelHolder identifies a single relationship instance between two
// entities, the unit tracked by RelationshipRegistry's usage map.
type RelHolder struct {
	SourceID uuid.UUID
	TargetID uuid.UUID
}

// RelationshipRegistry holds relationship-type definitions with the same
// rename/delete safety as RoleRegistry, keyed by (source, target) edges
// rather than single entity ids.
type RelationshipRegistry struct {
	mu     sync.Mutex
	byKey  map[uuid.UUID]*RelationshipDefinition
	byName map[string]uuid.UUID
	usage  map[uuid.UUID]map[RelHolder]struct{}
}

// NewRelationshipRegistry returns an empty registry with no seeded types.
func NewRelationshipRegistry() *RelationshipRegistry {
	return &RelationshipRegistry{
		byKey:  make(map[uuid.UUID]*RelationshipDefinition),
		byName: make(map[string]uuid.UUID),
		usage:  make(map[uuid.UUID]map[RelHolder]struct{}),
	}
}

// RegisterRelTypeOptions carries the optional fields accepted by Register.
type RegisterRelTypeOptions struct {
	Key            *uuid.UUID
	Label          string
	Description    string
	Directionality Directionality
	Protected      bool
}

// Register adds a new relationship type.
func (r *RelationshipRegistry) Register(name string, opts RegisterRelTypeOptions) (RelationshipDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return RelationshipDefinition{}, newDuplicate("relationship type %q already exists", name)
	}
	key := uuid.New()
	if opts.Key != nil {
		key = *opts.Key
		if _, exists := r.byKey[key]; exists {
			return RelationshipDefinition{}, newDuplicate("relationship type key %s already exists", key)
		}
	}
	dir := opts.Directionality
	if dir == "" {
		dir = DirForward
	}
	label := opts.Label
	if label == "" {
		label = titleizeName(name)
	}
	def := &RelationshipDefinition{
		Key:            key,
		Name:           name,
		Label:          label,
		Description:    opts.Description,
		Directionality: dir,
		Protected:      opts.Protected,
	}
	r.byKey[key] = def
	r.byName[name] = key
	r.usage[key] = make(map[RelHolder]struct{})
	return *def, nil
}

// GetByName returns the definition registered under name.
func (r *RelationshipRegistry) GetByName(name string) (RelationshipDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byName[name]
	if !ok {
		return RelationshipDefinition{}, newNotFound("no relationship type named %q", name)
	}
	return *r.byKey[key], nil
}

// GetByKey returns the definition for key.
func (r *RelationshipRegistry) GetByKey(key uuid.UUID) (RelationshipDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.byKey[key]
	if !ok {
		return RelationshipDefinition{}, newNotFound("no relationship type with key %s", key)
	}
	return *def, nil
}

// GetKey resolves name to its stable key.
func (r *RelationshipRegistry) GetKey(name string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byName[name]
	if !ok {
		return uuid.Nil, newNotFound("no relationship type named %q", name)
	}
	return key, nil
}

// Exists reports whether name is registered.
func (r *RelationshipRegistry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byName[name]
	return ok
}

// All returns every definition, protected (system) types first, then
// custom types. The order within each group is not defined.
func (r *RelationshipRegistry) All() []RelationshipDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	system := make([]RelationshipDefinition, 0, len(r.byKey))
	custom := make([]RelationshipDefinition, 0, len(r.byKey))
	for _, d := range r.byKey {
		if d.Protected {
			system = append(system, *d)
		} else {
			custom = append(custom, *d)
		}
	}
	return append(system, custom...)
}

// Rename rebinds a name to the same key.
func (r *RelationshipRegistry) Rename(oldName, newName string) (RelationshipDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byName[oldName]
	if !ok {
		return RelationshipDefinition{}, newNotFound("no relationship type named %q", oldName)
	}
	if existingKey, exists := r.byName[newName]; exists && existingKey != key {
		return RelationshipDefinition{}, newDuplicate("cannot rename to %q: name already in use", newName)
	}
	def := r.byKey[key]
	if def.Label == titleizeName(oldName) {
		def.Label = titleizeName(newName)
	}
	delete(r.byName, oldName)
	def.Name = newName
	r.byName[newName] = key
	return *def, nil
}

// RenameLabel changes only the display label.
func (r *RelationshipRegistry) RenameLabel(name, newLabel string) (RelationshipDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byName[name]
	if !ok {
		return RelationshipDefinition{}, newNotFound("no relationship type named %q", name)
	}
	def := r.byKey[key]
	def.Label = newLabel
	return *def, nil
}

// UpdateRelTypeFields carries the optional mutable fields for Update.
type UpdateRelTypeFields struct {
	Label       *string
	Description *string
}

// Update merges the supplied fields into the definition named name.
func (r *RelationshipRegistry) Update(name string, fields UpdateRelTypeFields) (RelationshipDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byName[name]
	if !ok {
		return RelationshipDefinition{}, newNotFound("no relationship type named %q", name)
	}
	def := r.byKey[key]
	if fields.Label != nil {
		def.Label = *fields.Label
	}
	if fields.Description != nil {
		def.Description = *fields.Description
	}
	return *def, nil
}

// Delete removes the relationship type named name. Protected types can
// never be deleted. Without migrateTo, delete is blocked while any edge
// still references the key.
func (r *RelationshipRegistry) Delete(name string, migrateTo string, migrateCallback func(holder RelHolder, newKey uuid.UUID)) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byName[name]
	if !ok {
		return 0, newNotFound("no relationship type named %q", name)
	}
	def := r.byKey[key]
	if def.Protected {
		return 0, newProtected(name)
	}
	holders := r.usage[key]

	if migrateTo != "" {
		newKey, ok := r.byName[migrateTo]
		if !ok {
			return 0, newNotFound("migration target %q not found", migrateTo)
		}
		migrated := 0
		for holder := range holders {
			if migrateCallback != nil {
				migrateCallback(holder, newKey)
			}
			r.usage[newKey][holder] = struct{}{}
			migrated++
		}
		r.deleteLocked(name, key)
		return migrated, nil
	}

	if len(holders) > 0 {
		return 0, newOrphan(key, name, len(holders))
	}
	r.deleteLocked(name, key)
	return 0, nil
}

func (r *RelationshipRegistry) deleteLocked(name string, key uuid.UUID) {
	delete(r.byName, name)
	delete(r.byKey, key)
	delete(r.usage, key)
}

// RegisterUsage records that the edge source->target exists under key.
func (r *RelationshipRegistry) RegisterUsage(key uuid.UUID, holder RelHolder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usage[key] == nil {
		r.usage[key] = make(map[RelHolder]struct{})
	}
	r.usage[key][holder] = struct{}{}
}

// UnregisterUsage removes the edge's reference to key.
func (r *RelationshipRegistry) UnregisterUsage(key uuid.UUID, holder RelHolder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if holders, ok := r.usage[key]; ok {
		delete(holders, holder)
	}
}

// RefCount returns the number of live edges using name's key.
func (r *RelationshipRegistry) RefCount(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byName[name]
	if !ok {
		return 0, newNotFound("no relationship type named %q", name)
	}
	return len(r.usage[key]), nil
}

// WhoReferences returns the edges currently using name's key.
func (r *RelationshipRegistry) WhoReferences(name string) ([]RelHolder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byName[name]
	if !ok {
		return nil, newNotFound("no relationship type named %q", name)
	}
	out := make([]RelHolder, 0, len(r.usage[key]))
	for holder := range r.usage[key] {
		out = append(out, holder)
	}
	return out, nil
}

// SeedSystemTypes registers the always-present relationship types with
// Protected set, matching both default() and empty().
func (r *RelationshipRegistry) SeedSystemTypes() {
	for _, st := range SystemRelationshipTypes {
		key := st.Key
		r.Register(st.Name, RegisterRelTypeOptions{
			Key:            &key,
			Label:          st.Label,
			Description:    st.Description,
			Directionality: st.Directionality,
			Protected:      true,
		})
	}
}
