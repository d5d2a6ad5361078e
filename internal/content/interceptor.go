package content

import "strings"

// ScopeAll matches every asset name.
const ScopeAll = "*"

// LoadFunc supplies an asset value for a name and locale. The bool reports
// whether this loader covers the asset at all.
type LoadFunc func(name, locale string) (interface{}, bool)

// EditFunc transforms an already-loaded asset value.
type EditFunc func(name, locale string, value interface{}) interface{}

// AssetLoader can supply a named derived asset.
type AssetLoader struct {
	Owner     string // owning mod ID, for attribution
	Scope     string // exact name, "Prefix/*", or ScopeAll
	Exclusive bool   // claims sole supply rights for its scope
	Load      LoadFunc
}

// AssetEditor can edit a named derived asset after it is supplied.
type AssetEditor struct {
	Owner string
	Scope string
	Edit  EditFunc
}

// scopeMatches reports whether an interceptor scope covers an asset name.
// Matching is case-insensitive like asset names themselves.
func scopeMatches(scope, name string) bool {
	if scope == ScopeAll {
		return true
	}
	scope = strings.ToLower(scope)
	name = strings.ToLower(name)
	if prefix, ok := strings.CutSuffix(scope, "*"); ok {
		return strings.HasPrefix(name, prefix)
	}
	return scope == name
}

// scopesOverlap reports whether two scopes can cover a common name.
// Used to detect exclusive-provide conflicts at registration time.
func scopesOverlap(a, b string) bool {
	if a == ScopeAll || b == ScopeAll {
		return true
	}
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	ap, aw := strings.CutSuffix(a, "*")
	bp, bw := strings.CutSuffix(b, "*")
	switch {
	case aw && bw:
		return strings.HasPrefix(ap, bp) || strings.HasPrefix(bp, ap)
	case aw:
		return strings.HasPrefix(b, ap)
	case bw:
		return strings.HasPrefix(a, bp)
	default:
		return a == b
	}
}
