package registry

import "github.com/google/uuid"

// Fixed UUIDs for the standard roles and system relationship types.
// These survive serialization and upgrades: a layer persisted against
// "primary" in one server version still resolves against the same key
// after a fresh restore_registry() in the next.
var (
	standardRoleKeys = map[string]uuid.UUID{
		"primary":    uuid.MustParse("10000000-0000-0000-0000-000000000001"),
		"reference":  uuid.MustParse("10000000-0000-0000-0000-000000000002"),
		"matte":      uuid.MustParse("10000000-0000-0000-0000-000000000003"),
		"background": uuid.MustParse("10000000-0000-0000-0000-000000000004"),
		"foreground": uuid.MustParse("10000000-0000-0000-0000-000000000005"),
		"color":      uuid.MustParse("10000000-0000-0000-0000-000000000006"),
		"audio":      uuid.MustParse("10000000-0000-0000-0000-000000000007"),
		"raw":        uuid.MustParse("10000000-0000-0000-0000-000000000010"),
		"grade":      uuid.MustParse("10000000-0000-0000-0000-000000000011"),
		"denoise":    uuid.MustParse("10000000-0000-0000-0000-000000000012"),
		"prep":       uuid.MustParse("10000000-0000-0000-0000-000000000013"),
		"roto":       uuid.MustParse("10000000-0000-0000-0000-000000000014"),
		"comp":       uuid.MustParse("10000000-0000-0000-0000-000000000015"),
	}

	// SystemRelationshipTypes lists the always-present relationship
	// types with their fixed key, label, description, and directionality.
	SystemRelationshipTypes = []struct {
		Name            string
		Label           string
		Description     string
		Key             uuid.UUID
		Directionality  Directionality
	}{
		{"member_of", "Member Of", "Source belongs to target collection",
			uuid.MustParse("20000000-0000-0000-0000-000000000001"), DirForward},
		{"version_of", "Version Of", "Source is an iteration of the target",
			uuid.MustParse("20000000-0000-0000-0000-000000000002"), DirForward},
		{"derived_from", "Derived From", "Source was produced from target",
			uuid.MustParse("20000000-0000-0000-0000-000000000003"), DirForward},
		{"references", "References", "Source uses target without ownership",
			uuid.MustParse("20000000-0000-0000-0000-000000000004"), DirForward},
		{"peer_of", "Peer Of", "Source and target are at the same level",
			uuid.MustParse("20000000-0000-0000-0000-000000000005"), DirBidirectional},
		{"consumes", "Consumes", "Source consumes target as input",
			uuid.MustParse("20000000-0000-0000-0000-000000000006"), DirForward},
		{"produces", "Produces", "Source produces target as output",
			uuid.MustParse("20000000-0000-0000-0000-000000000007"), DirForward},
	}
)
