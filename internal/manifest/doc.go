// Package manifest parses and validates mod package manifests.
//
// A manifest is the structured metadata file at a mod package's root
// (manifest.yaml or manifest.json) declaring the package's identity,
// version, entry module, and dependencies. Parsing and schema validation
// live here; dependency resolution lives in internal/resolve.
package manifest
