package registry

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-bridge/forge-bridge/internal/vocabulary"
)

func TestRoleRegistry_RegisterAndGet(t *testing.T) {
	r := NewRoleRegistry()
	def, err := r.Register("primary", RegisterRoleOptions{RoleClass: vocabulary.RoleClassTrack})
	require.NoError(t, err)
	assert.Equal(t, "Primary", def.Label)

	got, err := r.GetByName("primary")
	require.NoError(t, err)
	assert.Equal(t, def.Key, got.Key)
}

func TestRoleRegistry_DuplicateName(t *testing.T) {
	r := NewRoleRegistry()
	_, err := r.Register("primary", RegisterRoleOptions{})
	require.NoError(t, err)
	_, err = r.Register("primary", RegisterRoleOptions{})
	require.Error(t, err)
	_, ok := err.(*DuplicateError)
	assert.True(t, ok)
}

func TestRoleRegistry_RenamePreservesKey(t *testing.T) {
	r := NewRoleRegistry()
	def, err := r.Register("primary", RegisterRoleOptions{})
	require.NoError(t, err)

	renamed, err := r.Rename("primary", "hero")
	require.NoError(t, err)
	assert.Equal(t, def.Key, renamed.Key)
	assert.Equal(t, "Hero", renamed.Label)

	_, err = r.GetByName("primary")
	assert.Error(t, err)
	got, err := r.GetByKey(def.Key)
	require.NoError(t, err)
	assert.Equal(t, "hero", got.Name)
}

func TestRoleRegistry_RenameLabelOnly(t *testing.T) {
	r := NewRoleRegistry()
	_, err := r.Register("primary", RegisterRoleOptions{})
	require.NoError(t, err)

	_, err = r.RenameLabel("primary", "Hero Plate")
	require.NoError(t, err)

	got, err := r.GetByName("primary")
	require.NoError(t, err)
	assert.Equal(t, "Hero Plate", got.Label)
	assert.Equal(t, "primary", got.Name)
}

func TestRoleRegistry_DeleteBlockedByUsage(t *testing.T) {
	r := NewRoleRegistry()
	def, err := r.Register("primary", RegisterRoleOptions{})
	require.NoError(t, err)

	entity := uuid.New()
	r.RegisterUsage(def.Key, entity)

	_, err = r.Delete("primary", "", nil)
	require.Error(t, err)
	orphanErr, ok := err.(*OrphanError)
	require.True(t, ok)
	assert.Equal(t, 1, orphanErr.UsageCount)
}

func TestRoleRegistry_DeleteWithMigration(t *testing.T) {
	r := NewRoleRegistry()
	from, err := r.Register("primary", RegisterRoleOptions{})
	require.NoError(t, err)
	to, err := r.Register("hero", RegisterRoleOptions{})
	require.NoError(t, err)

	entity := uuid.New()
	r.RegisterUsage(from.Key, entity)

	migrated, err := r.Delete("primary", "hero", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, migrated)

	refs, err := r.WhoReferences("hero")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{entity}, refs)
	assert.Equal(t, to.Key, to.Key)
}

func TestRoleRegistry_ProtectedCannotDelete(t *testing.T) {
	r := NewRoleRegistry()
	_, err := r.Register("primary", RegisterRoleOptions{Protected: true})
	require.NoError(t, err)

	_, err = r.Delete("primary", "", nil)
	require.Error(t, err)
	_, ok := err.(*ProtectedError)
	assert.True(t, ok)
}

func TestRoleRegistry_ProtectedCanRename(t *testing.T) {
	r := NewRoleRegistry()
	_, err := r.Register("primary", RegisterRoleOptions{Protected: true})
	require.NoError(t, err)
	_, err = r.Rename("primary", "hero")
	assert.NoError(t, err)
}

func TestRelationshipRegistry_DeleteBlockedByEdge(t *testing.T) {
	r := NewRelationshipRegistry()
	def, err := r.Register("custom_link", RegisterRelTypeOptions{})
	require.NoError(t, err)

	edge := RelHolder{SourceID: uuid.New(), TargetID: uuid.New()}
	r.RegisterUsage(def.Key, edge)

	_, err = r.Delete("custom_link", "", nil)
	require.Error(t, err)
	_, ok := err.(*OrphanError)
	assert.True(t, ok)
}

func TestDefault_SeedsStandardRolesAndSystemTypes(t *testing.T) {
	reg := Default()
	_, err := reg.Roles.GetByName("primary")
	require.NoError(t, err)
	_, err = reg.Roles.GetByName("comp")
	require.NoError(t, err)
	_, err = reg.Relationships.GetByName("member_of")
	require.NoError(t, err)
	_, err = reg.Relationships.GetByName("consumes")
	require.NoError(t, err)

	summary := reg.Summary()
	assert.Len(t, summary.Roles, len(vocabulary.StandardRoles))
	assert.Len(t, summary.RelationshipTypes, len(SystemRelationshipTypes))
}

func TestEmpty_SeedsOnlySystemTypes(t *testing.T) {
	reg := Empty()
	assert.Empty(t, reg.Roles.All())
	_, err := reg.Relationships.GetByName("version_of")
	require.NoError(t, err)
}
