package vocabulary

import (
	"fmt"
	"strings"
)

// RoleClass distinguishes the two families a Role can belong to.
type RoleClass string

const (
	// RoleClassTrack is a compositional slot within a shot's stack
	// (primary, matte, background, ...). It describes what the media
	// does in a specific version.
	RoleClassTrack RoleClass = "track"
	// RoleClassMedia is a pipeline stage that produced the media
	// (raw, grade, denoise, ...). It travels with the media entity.
	RoleClassMedia RoleClass = "media"
)

// Role is the display surface for a registered role definition: name,
// label, stack order, endpoint aliases, and an optional path template.
type Role struct {
	Name         string
	Label        string
	PathTemplate string
	Order        int
	RoleClass    RoleClass
	Aliases      map[string]string
}

// NewRole builds a Role, deriving a title-cased label from name when
// label is empty.
func NewRole(name, label string, order int, class RoleClass) Role {
	if label == "" {
		label = titleizeName(name)
	}
	return Role{
		Name:      name,
		Label:     label,
		Order:     order,
		RoleClass: class,
		Aliases:   map[string]string{},
	}
}

func titleizeName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ResolvePath substitutes tokens into PathTemplate. Missing tokens
// referenced by the template return an error naming the template.
func (r Role) ResolvePath(tokens map[string]string) (string, error) {
	if r.PathTemplate == "" {
		return "", nil
	}
	out := r.PathTemplate
	for key, val := range tokens {
		out = strings.ReplaceAll(out, "{"+key+"}", val)
	}
	if strings.Contains(out, "{") && strings.Contains(out, "}") {
		return "", fmt.Errorf("missing token for role path template %q", r.PathTemplate)
	}
	return out, nil
}

// Alias returns the name this role is known by for a given endpoint,
// falling back to the canonical name.
func (r Role) Alias(endpoint string) string {
	if a, ok := r.Aliases[endpoint]; ok {
		return a
	}
	return r.Name
}

// standardRole describes one of the seeded track/media roles before a
// stable UUID key is attached by the registry.
type standardRole struct {
	Name  string
	Order int
	Class RoleClass
}

// StandardRoles lists the track and media roles seeded by default().
var StandardRoles = []standardRole{
	{"primary", 0, RoleClassTrack},
	{"reference", 1, RoleClassTrack},
	{"matte", 2, RoleClassTrack},
	{"background", 3, RoleClassTrack},
	{"foreground", 4, RoleClassTrack},
	{"color", 5, RoleClassTrack},
	{"audio", 6, RoleClassTrack},

	{"raw", 10, RoleClassMedia},
	{"grade", 11, RoleClassMedia},
	{"denoise", 12, RoleClassMedia},
	{"prep", 13, RoleClassMedia},
	{"roto", 14, RoleClassMedia},
	{"comp", 15, RoleClassMedia},
}
