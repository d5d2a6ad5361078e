package manifest

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Dependency declares a reliance on another mod package.
type Dependency struct {
	ID         string `yaml:"id" json:"id"`
	MinVersion string `yaml:"min_version,omitempty" json:"min_version,omitempty"`
	Required   *bool  `yaml:"required,omitempty" json:"required,omitempty"`
}

// IsRequired reports whether the dependency is required. An omitted flag
// means required; authors opt out explicitly with `required: false`.
func (d Dependency) IsRequired() bool {
	return d.Required == nil || *d.Required
}

// Manifest is a mod package's declared metadata. Immutable once parsed.
type Manifest struct {
	ID             string       `yaml:"id" json:"id"`
	Name           string       `yaml:"name" json:"name"`
	Author         string       `yaml:"author,omitempty" json:"author,omitempty"`
	Version        string       `yaml:"version" json:"version"`
	Description    string       `yaml:"description,omitempty" json:"description,omitempty"`
	MinHostVersion string       `yaml:"min_host_version,omitempty" json:"min_host_version,omitempty"`
	EntryModule    string       `yaml:"entry_module,omitempty" json:"entry_module,omitempty"`
	ContentPackFor string       `yaml:"content_pack_for,omitempty" json:"content_pack_for,omitempty"`
	Dependencies   []Dependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	UpdateKeys     []string     `yaml:"update_keys,omitempty" json:"update_keys,omitempty"`
}

// idPattern restricts mod IDs to letters, digits, dots, dashes, underscores.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidID reports whether id is a well-formed mod identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Key returns the case-insensitive identity key for the manifest's ID.
// All registry and resolver lookups go through this form.
func (m *Manifest) Key() string {
	return strings.ToLower(m.ID)
}

// IsContentPack reports whether the package only supplies assets for
// another mod rather than shipping executable code.
func (m *Manifest) IsContentPack() bool {
	return m.ContentPackFor != ""
}

// SemVersion parses the declared version, tolerating a leading "v".
func (m *Manifest) SemVersion() (*semver.Version, error) {
	return parseVersion(m.Version)
}

func parseVersion(s string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(s, "v"))
}
