package updater

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/modhost-labs/modhost/internal/registry"
)

// VersionSource resolves the newest published version for one update key
// (e.g. "Nexus:1401"). The real network client lives outside this module;
// the console and tests inject their own.
type VersionSource func(updateKey string) (string, error)

// Result is one mod's update check outcome.
type Result struct {
	ModID           string
	Current         string
	Latest          string
	UpdateAvailable bool
	Err             error
}

// Checker runs update checks in the background and publishes results
// append-only.
type Checker struct {
	logger *log.Logger
	source VersionSource

	mu      sync.Mutex
	results []Result
	done    chan struct{}
}

// New returns a checker using the given version source.
func New(logger *log.Logger, source VersionSource) *Checker {
	return &Checker{logger: logger, source: source, done: make(chan struct{})}
}

// Start launches the background check over already-active mods. It never
// mutates resolver or registry state.
func (c *Checker) Start(mods []*registry.ModMetadata) {
	go func() {
		defer close(c.done)
		for _, m := range mods {
			if m.Status != registry.StatusActive || len(m.Manifest.UpdateKeys) == 0 {
				continue
			}
			c.publish(c.check(m))
		}
	}()
}

// check polls each of the mod's update keys and keeps the best answer.
func (c *Checker) check(m *registry.ModMetadata) Result {
	result := Result{ModID: m.ID(), Current: m.Manifest.Version}
	for _, key := range m.Manifest.UpdateKeys {
		latest, err := c.source(key)
		if err != nil {
			result.Err = err
			c.logger.Debug("update check failed", "mod", m.ID(), "key", key, "error", err)
			continue
		}
		newer, err := IsUpdateAvailable(result.Current, latest)
		if err != nil {
			result.Err = err
			continue
		}
		result.Err = nil
		if newer {
			result.Latest = latest
			result.UpdateAvailable = true
			break
		}
		if result.Latest == "" {
			result.Latest = latest
		}
	}
	return result
}

func (c *Checker) publish(r Result) {
	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
	if r.UpdateAvailable {
		c.logger.Info("update available", "mod", r.ModID, "current", r.Current, "latest", r.Latest)
	}
}

// Results returns a snapshot of the results published so far.
func (c *Checker) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}

// Wait blocks until the background pass finishes. Used by the console's
// update_status command and by tests.
func (c *Checker) Wait() {
	<-c.done
}
