package content

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

// ErrUnknownAsset is returned when no loader covers an asset and the host
// base source has no value for it either.
var ErrUnknownAsset = errors.New("unknown asset")

// BaseSource is the host's own asset store, consulted when no mod loader
// supplies a value.
type BaseSource func(name, locale string) (interface{}, error)

type cacheKey struct {
	name   string // lowercased asset name
	locale string // canonical locale tag
}

// cacheEntry is one derived asset. contributors records the interceptor
// owners that produced the value, in application order.
type cacheEntry struct {
	value        interface{}
	contributors []string
	dirty        bool
}

// Coordinator owns the derived-asset cache and its interceptors.
type Coordinator struct {
	mu      sync.RWMutex
	logger  *log.Logger
	base    BaseSource
	locale  string
	loaders []AssetLoader
	editors []AssetEditor
	entries map[cacheKey]*cacheEntry
	// gen counts interceptor-set and locale mutations. A derivation that
	// started under an older generation must not be cached as clean: the
	// mutation's invalidation pass cannot see an entry stored after it.
	gen uint64
}

// NewCoordinator returns a coordinator serving assets in the given locale.
// base may be nil if mods supply every asset.
func NewCoordinator(logger *log.Logger, locale string, base BaseSource) *Coordinator {
	return &Coordinator{
		logger:  logger,
		base:    base,
		locale:  canonicalLocale(locale),
		entries: make(map[cacheKey]*cacheEntry),
	}
}

// canonicalLocale normalizes a locale string so "en-us" and "en-US" share
// cache keys. Unparseable input falls back to its lowercase form.
func canonicalLocale(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return strings.ToLower(locale)
	}
	return tag.String()
}

// Locale returns the active canonical locale.
func (c *Coordinator) Locale() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.locale
}

// SetLocale switches the active locale. Locale is part of every cache key,
// so the switch invalidates all entries.
func (c *Coordinator) SetLocale(locale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := canonicalLocale(locale)
	if next == c.locale {
		return
	}
	c.locale = next
	c.gen++
	for _, e := range c.entries {
		e.dirty = true
	}
}

// RegisterLoader adds a supplying interceptor and incrementally
// invalidates the entries its scope covers. An exclusive loader whose
// scope overlaps an earlier exclusive loader is a reported conflict; the
// first registration stays authoritative because application order is
// registration order.
func (c *Coordinator) RegisterLoader(l AssetLoader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l.Exclusive {
		for _, prior := range c.loaders {
			if prior.Exclusive && scopesOverlap(prior.Scope, l.Scope) {
				c.logger.Warn("exclusive asset provider conflict; first registration wins",
					"scope", l.Scope, "mod", l.Owner, "authoritative", prior.Owner)
				break
			}
		}
	}
	c.loaders = append(c.loaders, l)
	c.gen++
	c.invalidateScopeLocked(l.Scope)
}

// RegisterEditor adds an editing interceptor and incrementally invalidates
// the entries its scope covers.
func (c *Coordinator) RegisterEditor(e AssetEditor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editors = append(c.editors, e)
	c.gen++
	c.invalidateScopeLocked(e.Scope)
}

// Invalidate drops every cache entry that could be affected by the given
// just-added interceptors. Removal is conservative: a scope of ScopeAll
// drops everything, but narrow scopes drop only matching keys.
func (c *Coordinator) Invalidate(loaders []AssetLoader, editors []AssetEditor) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	n := 0
	for _, l := range loaders {
		n += c.invalidateScopeLocked(l.Scope)
	}
	for _, e := range editors {
		n += c.invalidateScopeLocked(e.Scope)
	}
	return n
}

func (c *Coordinator) invalidateScopeLocked(scope string) int {
	n := 0
	for key, e := range c.entries {
		if !e.dirty && scopeMatches(scope, key.name) {
			e.dirty = true
			n++
		}
	}
	return n
}

// Resolve returns the derived asset for name in the active locale,
// computing and caching it on miss. All matching loaders are consulted in
// registration order and at most one successful supply is used; all
// matching editors then apply in registration order.
func (c *Coordinator) Resolve(name string) (interface{}, error) {
	key := cacheKey{name: strings.ToLower(name), locale: c.Locale()}

	c.mu.RLock()
	if e, ok := c.entries[key]; ok && !e.dirty {
		v := e.value
		c.mu.RUnlock()
		return v, nil
	}
	// Snapshot interceptors so computation runs without the lock.
	loaders := c.loaders
	editors := c.editors
	base := c.base
	gen := c.gen
	c.mu.RUnlock()

	value, contributors, err := derive(name, key.locale, loaders, editors, base)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// An interceptor registered while this derivation ran is missing from
	// the snapshot, and its invalidation pass cannot have seen the entry.
	// Serve the value but leave the cache slot for a fresh derivation.
	if gen == c.gen {
		c.entries[key] = &cacheEntry{value: value, contributors: contributors}
	}
	c.mu.Unlock()
	return value, nil
}

// derive computes an asset value outside the lock.
func derive(name, locale string, loaders []AssetLoader, editors []AssetEditor, base BaseSource) (interface{}, []string, error) {
	var (
		value        interface{}
		supplied     bool
		contributors []string
	)

	for _, l := range loaders {
		if !scopeMatches(l.Scope, name) {
			continue
		}
		if v, ok := l.Load(name, locale); ok {
			value = v
			supplied = true
			contributors = append(contributors, l.Owner)
			break
		}
	}
	if !supplied {
		if base == nil {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownAsset, name)
		}
		v, err := base(name, locale)
		if err != nil {
			return nil, nil, fmt.Errorf("loading base asset %q: %w", name, err)
		}
		value = v
	}

	for _, e := range editors {
		if !scopeMatches(e.Scope, name) {
			continue
		}
		value = e.Edit(name, locale, value)
		contributors = append(contributors, e.Owner)
	}

	return value, contributors, nil
}

// Contributors returns the interceptor owners recorded for a cached entry,
// or nil if the entry is absent or dirty.
func (c *Coordinator) Contributors(name string) []string {
	key := cacheKey{name: strings.ToLower(name), locale: c.Locale()}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok && !e.dirty {
		out := make([]string, len(e.contributors))
		copy(out, e.contributors)
		return out
	}
	return nil
}
