package updater

import (
	"fmt"
	"os"
	"sync"

	"go.yaml.in/yaml/v3"
)

// FileSource returns a VersionSource backed by a local feed file: a YAML
// mapping of update key to latest published version, maintained out of
// band (the network client that would fetch one is not part of this
// module). The file is read once per process; a missing or unreadable
// feed fails every lookup with the same error.
func FileSource(path string) VersionSource {
	var (
		once    sync.Once
		feed    map[string]string
		readErr error
	)
	return func(updateKey string) (string, error) {
		once.Do(func() {
			data, err := os.ReadFile(path)
			if err != nil {
				readErr = err
				return
			}
			readErr = yaml.Unmarshal(data, &feed)
		})
		if readErr != nil {
			return "", fmt.Errorf("reading update feed %s: %w", path, readErr)
		}
		latest, ok := feed[updateKey]
		if !ok {
			return "", fmt.Errorf("update feed has no entry for key %q", updateKey)
		}
		return latest, nil
	}
}
