package registry

import (
	"strings"

	"github.com/modhost-labs/modhost/internal/manifest"
)

// Status tracks a mod package through the load pipeline.
type Status int

const (
	// StatusUnvalidated is the initial state after discovery.
	StatusUnvalidated Status = iota
	// StatusValidated passed manifest and dependency validation.
	StatusValidated
	// StatusFailed was rejected; UserReason says why.
	StatusFailed
	// StatusSkipped was valid but deliberately not loaded.
	StatusSkipped
	// StatusLoaded has a scanned, ready-to-activate module.
	StatusLoaded
	// StatusActive ran its entry point (successfully or not).
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusUnvalidated:
		return "unvalidated"
	case StatusValidated:
		return "validated"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusLoaded:
		return "loaded"
	case StatusActive:
		return "active"
	default:
		return "unknown"
	}
}

// Warning is an advisory flag attached to a mod. Warnings never block
// loading; they are aggregated and reported once after the pipeline ends.
type Warning string

const (
	WarnNoUpdateKeys      Warning = "no-update-keys"
	WarnPatchesHost       Warning = "patches-host-code"
	WarnBypassesSafety    Warning = "bypasses-safety-checks"
	WarnNonPortable       Warning = "non-portable-construct"
	WarnOptionalDepFailed Warning = "optional-dependency-failed"
	WarnHiddenAPI         Warning = "hidden-api-type"
)

// Blurb returns the operator-facing explanation for a warning kind.
func (w Warning) Blurb() string {
	switch w {
	case WarnNoUpdateKeys:
		return "These mods declare no update keys, so update checks are skipped for them."
	case WarnPatchesHost:
		return "These mods patch host code, which can destabilize the game."
	case WarnBypassesSafety:
		return "These mods bypass safety checks and may corrupt state."
	case WarnNonPortable:
		return "These mods use non-portable constructs that were rewritten for this platform."
	case WarnOptionalDepFailed:
		return "These mods have an optional dependency that failed to load."
	case WarnHiddenAPI:
		return "These mods expose an API object whose type is not public; it was discarded."
	default:
		return string(w)
	}
}

// Disposer is implemented by extension instances that hold resources
// needing release at shutdown.
type Disposer interface {
	Dispose() error
}

// ModMetadata wraps a manifest with its resolution and activation state.
// The pipeline owns it exclusively until activation; afterwards the
// Instance's internal state belongs to the extension itself.
type ModMetadata struct {
	Manifest     *manifest.Manifest
	Dir          string // package directory (absolute)
	ManifestPath string

	Status     Status
	UserReason string // short user-facing failure reason
	DevReason  string // optional verbose developer detail
	Warnings   []Warning

	// Set during activation.
	Instance interface{} // the instantiated entry object
	API      interface{} // optional capability object exposed to other mods
}

// ID returns the declared mod ID, or a placeholder for failed parses.
func (m *ModMetadata) ID() string {
	if m.Manifest == nil || m.Manifest.ID == "" {
		return "(invalid manifest in " + m.Dir + ")"
	}
	return m.Manifest.ID
}

// Key returns the case-insensitive identity key.
func (m *ModMetadata) Key() string {
	if m.Manifest == nil {
		return strings.ToLower(m.Dir)
	}
	return m.Manifest.Key()
}

// Fail marks the mod rejected with a user-facing reason and optional
// developer detail. A mod already failed keeps its first reason.
func (m *ModMetadata) Fail(userReason, devReason string) {
	if m.Status == StatusFailed {
		return
	}
	m.Status = StatusFailed
	m.UserReason = userReason
	m.DevReason = devReason
}

// Warn attaches an advisory warning, deduplicating by kind.
func (m *ModMetadata) Warn(kind Warning) {
	for _, w := range m.Warnings {
		if w == kind {
			return
		}
	}
	m.Warnings = append(m.Warnings, kind)
}

// Failed reports whether the mod was rejected.
func (m *ModMetadata) Failed() bool {
	return m.Status == StatusFailed
}
