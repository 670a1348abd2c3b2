package registry

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/forge-bridge/forge-bridge/internal/vocabulary"
)

// RoleRegistry holds role definitions with rename/delete safety. Rename
// is always safe — the key is unchanged, every holder observes the new
// name through a lookup. Delete is blocked while any holder still
// references the key, unless migrate_to reassigns them first.
type RoleRegistry struct {
	mu      sync.Mutex
	byKey   map[uuid.UUID]*RoleDefinition
	byName  map[string]uuid.UUID
	usage   map[uuid.UUID]map[uuid.UUID]struct{} // role key -> holder entity ids
}

// NewRoleRegistry returns an empty registry with no seeded roles.
func NewRoleRegistry() *RoleRegistry {
	return &RoleRegistry{
		byKey:  make(map[uuid.UUID]*RoleDefinition),
		byName: make(map[string]uuid.UUID),
		usage:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// RegisterRoleOptions carries the optional fields accepted by Register.
type RegisterRoleOptions struct {
	Key          *uuid.UUID
	Label        string
	Order        int
	PathTemplate string
	RoleClass    vocabulary.RoleClass
	Aliases      map[string]string
	Protected    bool
}

// Register adds a new role. It returns DuplicateError if name or an
// explicit key already exists.
func (r *RoleRegistry) Register(name string, opts RegisterRoleOptions) (RoleDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return RoleDefinition{}, newDuplicate("role %q already exists", name)
	}
	key := uuid.New()
	if opts.Key != nil {
		key = *opts.Key
		if _, exists := r.byKey[key]; exists {
			return RoleDefinition{}, newDuplicate("role key %s already exists", key)
		}
	}
	class := opts.RoleClass
	if class == "" {
		class = vocabulary.RoleClassTrack
	}
	label := opts.Label
	if label == "" {
		label = vocabulary.NewRole(name, "", 0, class).Label
	}
	aliases := opts.Aliases
	if aliases == nil {
		aliases = map[string]string{}
	}
	def := &RoleDefinition{
		Key:          key,
		Name:         name,
		Label:        label,
		Order:        opts.Order,
		PathTemplate: opts.PathTemplate,
		RoleClass:    class,
		Aliases:      aliases,
		Protected:    opts.Protected,
	}
	r.byKey[key] = def
	r.byName[name] = key
	r.usage[key] = make(map[uuid.UUID]struct{})
	return def.clone(), nil
}

// GetByName returns the definition registered under name.
func (r *RoleRegistry) GetByName(name string) (RoleDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getByNameLocked(name)
}

func (r *RoleRegistry) getByNameLocked(name string) (RoleDefinition, error) {
	key, ok := r.byName[name]
	if !ok {
		return RoleDefinition{}, newNotFound("no role named %q", name)
	}
	return r.byKey[key].clone(), nil
}

// GetByKey returns the definition for key.
func (r *RoleRegistry) GetByKey(key uuid.UUID) (RoleDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.byKey[key]
	if !ok {
		return RoleDefinition{}, newNotFound("no role with key %s", key)
	}
	return def.clone(), nil
}

// GetKey resolves name to its stable key.
func (r *RoleRegistry) GetKey(name string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byName[name]
	if !ok {
		return uuid.Nil, newNotFound("no role named %q", name)
	}
	return key, nil
}

// Exists reports whether name is registered.
func (r *RoleRegistry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byName[name]
	return ok
}

// All returns every definition ordered by Order.
func (r *RoleRegistry) All() []RoleDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RoleDefinition, 0, len(r.byKey))
	for _, d := range r.byKey {
		out = append(out, d.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Rename rebinds a name to the same key. Always safe regardless of the
// Protected flag — protected entries may be renamed but never deleted.
func (r *RoleRegistry) Rename(oldName, newName string) (RoleDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byName[oldName]
	if !ok {
		return RoleDefinition{}, newNotFound("no role named %q", oldName)
	}
	if existingKey, exists := r.byName[newName]; exists && existingKey != key {
		return RoleDefinition{}, newDuplicate("cannot rename to %q: name already in use", newName)
	}
	def := r.byKey[key]
	if def.Label == vocabulary.NewRole(oldName, "", 0, def.RoleClass).Label {
		def.Label = vocabulary.NewRole(newName, "", 0, def.RoleClass).Label
	}
	delete(r.byName, oldName)
	def.Name = newName
	r.byName[newName] = key
	return def.clone(), nil
}

// RenameLabel changes only the display label, leaving name and key
// untouched.
func (r *RoleRegistry) RenameLabel(name, newLabel string) (RoleDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byName[name]
	if !ok {
		return RoleDefinition{}, newNotFound("no role named %q", name)
	}
	def := r.byKey[key]
	def.Label = newLabel
	return def.clone(), nil
}

// UpdateRoleFields carries the optional mutable fields accepted by Update.
type UpdateRoleFields struct {
	Label        *string
	Order        *int
	PathTemplate *string
	Aliases      map[string]string
}

// Update merges the supplied fields into the definition named name.
func (r *RoleRegistry) Update(name string, fields UpdateRoleFields) (RoleDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byName[name]
	if !ok {
		return RoleDefinition{}, newNotFound("no role named %q", name)
	}
	def := r.byKey[key]
	if fields.Label != nil {
		def.Label = *fields.Label
	}
	if fields.Order != nil {
		def.Order = *fields.Order
	}
	if fields.PathTemplate != nil {
		def.PathTemplate = *fields.PathTemplate
	}
	if fields.Aliases != nil {
		for k, v := range fields.Aliases {
			def.Aliases[k] = v
		}
	}
	return def.clone(), nil
}

// Delete removes the role named name. If migrateTo is non-empty, every
// holder of the old key is reassigned to migrateTo's key before the old
// entry is dropped and migrateCallback fires once per reassigned holder.
// Without migrateTo, delete is blocked (OrphanError) while usage > 0,
// and always blocked (ProtectedError) when the entry is protected.
func (r *RoleRegistry) Delete(name string, migrateTo string, migrateCallback func(holder uuid.UUID, newKey uuid.UUID)) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byName[name]
	if !ok {
		return 0, newNotFound("no role named %q", name)
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

func (r *RoleRegistry) deleteLocked(name string, key uuid.UUID) {
	delete(r.byName, name)
	delete(r.byKey, key)
	delete(r.usage, key)
}

// RegisterUsage records that holder (an entity id) references key.
func (r *RoleRegistry) RegisterUsage(key, holder uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usage[key] == nil {
		r.usage[key] = make(map[uuid.UUID]struct{})
	}
	r.usage[key][holder] = struct{}{}
}

// UnregisterUsage removes holder's reference to key. Silent if key is
// absent, matching the teacher-observed convention of tolerant cleanup.
func (r *RoleRegistry) UnregisterUsage(key, holder uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if holders, ok := r.usage[key]; ok {
		delete(holders, holder)
	}
}

// RefCount returns the number of live holders of name's key.
func (r *RoleRegistry) RefCount(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byName[name]
	if !ok {
		return 0, newNotFound("no role named %q", name)
	}
	return len(r.usage[key]), nil
}

// WhoReferences returns the holder ids currently referencing name's key.
func (r *RoleRegistry) WhoReferences(name string) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.byName[name]
	if !ok {
		return nil, newNotFound("no role named %q", name)
	}
	out := make([]uuid.UUID, 0, len(r.usage[key]))
	for holder := range r.usage[key] {
		out = append(out, holder)
	}
	return out, nil
}

// SeedStandardRoles registers the fixed-key track/media roles with
// Protected set, matching default().
func (r *RoleRegistry) SeedStandardRoles() {
	for _, sr := range vocabulary.StandardRoles {
		key := standardRoleKeys[sr.Name]
		r.Register(sr.Name, RegisterRoleOptions{
			Key:       &key,
			Order:     sr.Order,
			RoleClass: sr.Class,
			Protected: true,
		})
	}
}
