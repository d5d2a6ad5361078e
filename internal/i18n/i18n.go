// Package i18n loads per-mod translation files.
//
// A mod ships optional i18n/<locale>.json files mapping string keys to
// translated strings. Lookup falls back from the exact locale through its
// parent tags (en-US -> en) to the default locale.
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
)

// DefaultLocale is consulted when no localized value exists.
const DefaultLocale = "default"

// dirName is the translation directory inside a mod package.
const dirName = "i18n"

// Bundle holds one mod's translations, reloadable at runtime.
type Bundle struct {
	mu       sync.RWMutex
	owner    string
	dir      string // mod package directory
	byLocale map[string]map[string]string
	logger   *log.Logger
}

// LoadBundle reads every translation file under dir/i18n. A missing
// directory yields an empty bundle, not an error.
func LoadBundle(dir, owner string, logger *log.Logger) (*Bundle, error) {
	b := &Bundle{
		owner:    owner,
		dir:      dir,
		byLocale: make(map[string]map[string]string),
		logger:   logger,
	}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload re-reads every translation file, replacing the bundle contents.
func (b *Bundle) Reload() error {
	root := filepath.Join(b.dir, dirName)
	files, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		b.mu.Lock()
		b.byLocale = make(map[string]map[string]string)
		b.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading translation directory %s: %w", root, err)
	}

	next := make(map[string]map[string]string)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		locale := canonical(strings.TrimSuffix(f.Name(), ".json"))
		path := filepath.Join(root, f.Name())
		entries, duplicates, err := parseFile(path)
		if err != nil {
			b.logger.Warn("skipping unreadable translation file",
				"mod", b.owner, "file", f.Name(), "error", err)
			continue
		}
		if len(duplicates) > 0 {
			b.logger.Warn("translation file has duplicate keys; keeping first occurrences",
				"mod", b.owner, "file", f.Name(), "duplicates", strings.Join(duplicates, ", "))
		}
		next[locale] = entries
	}

	b.mu.Lock()
	b.byLocale = next
	b.mu.Unlock()
	return nil
}

// Get returns the translation for key in the given locale, walking the
// locale's parent chain and finally the default file. The bool reports
// whether any value was found.
func (b *Bundle) Get(key, locale string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, candidate := range fallbackChain(locale) {
		if entries, ok := b.byLocale[candidate]; ok {
			if v, ok := entries[key]; ok {
				return v, true
			}
		}
	}
	if entries, ok := b.byLocale[DefaultLocale]; ok {
		if v, ok := entries[key]; ok {
			return v, true
		}
	}
	return "", false
}

// Keys returns how many entries exist for a locale file, for diagnostics.
func (b *Bundle) Keys(locale string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byLocale[canonical(locale)])
}

// canonical normalizes a locale tag; unparseable names keep their
// lowercase form so odd file names still load.
func canonical(locale string) string {
	if strings.EqualFold(locale, DefaultLocale) {
		return DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return strings.ToLower(locale)
	}
	return tag.String()
}

// fallbackChain returns the locale and its parent tags, most specific
// first: "en-US" -> ["en-US", "en"].
func fallbackChain(locale string) []string {
	tag, err := language.Parse(locale)
	if err != nil {
		return []string{strings.ToLower(locale)}
	}
	var chain []string
	for ; tag != language.Und; tag = tag.Parent() {
		chain = append(chain, tag.String())
	}
	return chain
}

// parseFile decodes one translation file token by token so duplicate keys
// can be detected; the stdlib decoder would silently keep the last one.
// The first occurrence of a duplicated key wins.
func parseFile(path string) (map[string]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("parsing %s: top-level value must be an object", path)
	}

	entries := make(map[string]string)
	var duplicates []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		key := keyTok.(string)

		var value string
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("parsing %s: value for %q is not a string: %w", path, key, err)
		}

		if _, exists := entries[key]; exists {
			duplicates = append(duplicates, key)
			continue
		}
		entries[key] = value
	}
	return entries, duplicates, nil
}
