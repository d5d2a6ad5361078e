// Package updater polls update sources for newer versions of loaded mods.
//
// Checks run on a background goroutine after startup. They only read
// already-resolved mod metadata and publish results append-only, so no
// lock is shared with the load pipeline.
package updater

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions orders two version strings by semver precedence. The
// result follows semver.Compare: negative when current predates latest,
// zero when equal, positive when current is ahead. Either side may carry
// a leading "v".
func CompareVersions(current, latest string) (int, error) {
	cv, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return 0, fmt.Errorf("parsing current version %q: %w", current, err)
	}
	lv, err := semver.NewVersion(strings.TrimPrefix(latest, "v"))
	if err != nil {
		return 0, fmt.Errorf("parsing latest version %q: %w", latest, err)
	}
	return cv.Compare(lv), nil
}

// IsUpdateAvailable reports whether latest supersedes the installed
// current version. Prerelease tags order below their release, so a mod
// running 2.0.0-beta.1 sees 2.0.0 as an update.
func IsUpdateAvailable(current, latest string) (bool, error) {
	cmp, err := CompareVersions(current, latest)
	if err != nil {
		return false, err
	}
	return cmp < 0, nil
}
