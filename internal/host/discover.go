package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modhost-labs/modhost/internal/manifest"
	"github.com/modhost-labs/modhost/internal/registry"
)

// Discover walks the mods directory and parses every package manifest.
// Parse and schema failures become Failed placeholders rather than
// errors: the resolver needs the full set, broken entries included.
// Directories starting with "." or "_" are ignored.
func Discover(modsDir string) ([]*registry.ModMetadata, error) {
	entries, err := os.ReadDir(modsDir)
	if err != nil {
		return nil, fmt.Errorf("reading mods directory %s: %w", modsDir, err)
	}

	var mods []*registry.ModMetadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		mods = append(mods, discoverOne(filepath.Join(modsDir, name)))
	}
	return mods, nil
}

func discoverOne(dir string) *registry.ModMetadata {
	meta := &registry.ModMetadata{Dir: dir, Status: registry.StatusUnvalidated}

	path, err := manifest.FindManifest(dir)
	if err != nil {
		meta.Fail("it has no manifest file", err.Error())
		return meta
	}
	meta.ManifestPath = path

	data, err := os.ReadFile(path)
	if err != nil {
		meta.Fail("its manifest could not be read", err.Error())
		return meta
	}

	m, err := manifest.Parse(data)
	if err != nil {
		meta.Fail("its manifest could not be parsed", err.Error())
		return meta
	}
	// Keep the manifest even when the schema rejects it: a failed mod
	// with a known ID lets dependents report "could not be loaded"
	// instead of "not installed".
	meta.Manifest = m

	result, err := manifest.Validate(data)
	if err != nil {
		meta.Fail("its manifest could not be validated", err.Error())
		return meta
	}
	if !result.Valid {
		var msgs []string
		for _, issue := range result.Issues {
			msgs = append(msgs, issue.String())
		}
		meta.Fail("its manifest is invalid", strings.Join(msgs, "; "))
	}
	return meta
}
