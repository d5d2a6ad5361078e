package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/modhost-labs/modhost/internal/manifest"
	"github.com/modhost-labs/modhost/internal/registry"
)

// edge is one dependency declaration flattened for resolution. Edges are
// discarded once the order is computed.
type edge struct {
	from       string // dependent key
	to         string // dependency key
	toID       string // dependency ID as declared (for messages)
	minVersion *semver.Version
	required   bool
}

// Resolve validates mods and returns them in load order: every surviving
// mod appears after its dependencies, failed mods come last in ID order.
// Mods already marked Failed (e.g. manifest parse errors) keep their reason
// and participate only as failure sources for their dependents.
func Resolve(mods []*registry.ModMetadata, hostVersion *semver.Version) []*registry.ModMetadata {
	validateManifests(mods, hostVersion)
	validateDuplicates(mods)

	byKey := make(map[string]*registry.ModMetadata)
	for _, m := range mods {
		if m.Manifest != nil {
			byKey[m.Key()] = m
		}
	}

	edges := collectEdges(mods)
	failCycles(mods, byKey, edges)
	propagateFailures(mods, byKey, edges)
	warnOptionalFailures(mods, byKey, edges)

	return order(mods, byKey, edges)
}

// validateManifests is the first validation pass: each manifest checked on
// its own, independent of dependencies.
func validateManifests(mods []*registry.ModMetadata, hostVersion *semver.Version) {
	for _, m := range mods {
		if m.Failed() || m.Manifest == nil {
			continue
		}
		if problems := manifest.Check(m.Manifest); len(problems) > 0 {
			m.Fail("its manifest is invalid", strings.Join(problems, "; "))
			continue
		}
		if m.Manifest.MinHostVersion != "" && hostVersion != nil {
			min, err := semver.NewVersion(strings.TrimPrefix(m.Manifest.MinHostVersion, "v"))
			if err == nil && hostVersion.LessThan(min) {
				m.Fail(
					fmt.Sprintf("it requires host version %s or newer (you have %s)", min, hostVersion),
					"",
				)
			}
		}
		if len(m.Manifest.UpdateKeys) == 0 {
			m.Warn(registry.WarnNoUpdateKeys)
		}
		if m.Status == registry.StatusUnvalidated {
			m.Status = registry.StatusValidated
		}
	}
}

// validateDuplicates fails every mod sharing a case-insensitive ID.
func validateDuplicates(mods []*registry.ModMetadata) {
	groups := make(map[string][]*registry.ModMetadata)
	for _, m := range mods {
		if m.Manifest == nil {
			continue
		}
		groups[m.Key()] = append(groups[m.Key()], m)
	}
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		var dirs []string
		for _, m := range group {
			dirs = append(dirs, m.Dir)
		}
		for _, m := range group {
			m.Fail(
				fmt.Sprintf("its ID %q is declared by multiple mods", m.ID()),
				"duplicate ID in: "+strings.Join(dirs, ", "),
			)
		}
	}
}

// collectEdges flattens dependency declarations. A content pack's target
// behaves as an implicit required dependency.
func collectEdges(mods []*registry.ModMetadata) []edge {
	var edges []edge
	for _, m := range mods {
		if m.Manifest == nil {
			continue
		}
		for _, dep := range m.Manifest.Dependencies {
			var min *semver.Version
			if dep.MinVersion != "" {
				min, _ = semver.NewVersion(strings.TrimPrefix(dep.MinVersion, "v"))
			}
			edges = append(edges, edge{
				from:       m.Key(),
				to:         strings.ToLower(dep.ID),
				toID:       dep.ID,
				minVersion: min,
				required:   dep.IsRequired(),
			})
		}
		if m.Manifest.IsContentPack() {
			edges = append(edges, edge{
				from:     m.Key(),
				to:       strings.ToLower(m.Manifest.ContentPackFor),
				toID:     m.Manifest.ContentPackFor,
				required: true,
			})
		}
	}
	return edges
}

// failCycles finds strongly connected required-edge cycles via DFS with a
// recursion stack and fails every participant, naming the cycle.
func failCycles(mods []*registry.ModMetadata, byKey map[string]*registry.ModMetadata, edges []edge) {
	requiredOut := make(map[string][]string)
	for _, e := range edges {
		if !e.required {
			continue
		}
		if _, exists := byKey[e.to]; !exists {
			continue // missing deps handled in propagation
		}
		requiredOut[e.from] = append(requiredOut[e.from], e.to)
	}

	const (
		white = 0 // unvisited
		gray  = 1 // on the recursion stack
		black = 2 // done
	)
	color := make(map[string]int)
	var stack []string

	var visit func(key string)
	visit = func(key string) {
		color[key] = gray
		stack = append(stack, key)
		for _, next := range requiredOut[key] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				// Cycle: everything from next's stack position onward.
				start := 0
				for i, k := range stack {
					if k == next {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, stack[start:]...), next)
				names := make([]string, len(cycle))
				for i, k := range cycle {
					names[i] = byKey[k].ID()
				}
				reason := "circular dependency: " + strings.Join(names, " -> ")
				for _, k := range stack[start:] {
					byKey[k].Fail("it is part of a circular dependency", reason)
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[key] = black
	}

	// Deterministic traversal order keeps cycle messages stable.
	keys := sortedKeys(byKey)
	for _, key := range keys {
		if color[key] == white {
			visit(key)
		}
	}
}

// propagateFailures fails mods whose required dependencies are missing,
// too old, or themselves failed. Failure is contagious along required
// edges, so the loop runs to a fixpoint.
func propagateFailures(mods []*registry.ModMetadata, byKey map[string]*registry.ModMetadata, edges []edge) {
	for changed := true; changed; {
		changed = false
		for _, e := range edges {
			if !e.required {
				continue
			}
			from := byKey[e.from]
			if from == nil || from.Failed() {
				continue
			}

			target, exists := byKey[e.to]
			switch {
			case !exists:
				from.Fail(
					fmt.Sprintf("it requires mod %q, which is not installed", e.toID),
					"",
				)
				changed = true
			case target.Failed():
				from.Fail(
					fmt.Sprintf("it requires mod %q, which could not be loaded", target.ID()),
					"dependency failure: "+target.UserReason,
				)
				changed = true
			case target.Manifest.IsContentPack() && from.Manifest.IsContentPack() && strings.EqualFold(from.Manifest.ContentPackFor, target.ID()):
				from.Fail(
					fmt.Sprintf("it is a content pack for %q, which is itself a content pack", target.ID()),
					"",
				)
				changed = true
			case e.minVersion != nil:
				got, err := target.Manifest.SemVersion()
				if err == nil && got.LessThan(e.minVersion) {
					from.Fail(
						fmt.Sprintf("it requires mod %q version %s or newer (found %s)", target.ID(), e.minVersion, got),
						"",
					)
					changed = true
				}
			}
		}
	}
}

// warnOptionalFailures marks surviving mods whose optional dependency is
// present but failed. A fully absent optional dependency is silent.
func warnOptionalFailures(mods []*registry.ModMetadata, byKey map[string]*registry.ModMetadata, edges []edge) {
	for _, e := range edges {
		if e.required {
			continue
		}
		from := byKey[e.from]
		if from == nil || from.Failed() {
			continue
		}
		if target, exists := byKey[e.to]; exists && target.Failed() {
			from.Warn(registry.WarnOptionalDepFailed)
		}
	}
}

// order topologically sorts the surviving mods (Kahn's algorithm) and
// appends failed mods in ID order. Present optional dependencies order
// before their dependents too; if optional edges alone form a cycle, they
// are softly broken rather than failing anyone.
func order(mods []*registry.ModMetadata, byKey map[string]*registry.ModMetadata, edges []edge) []*registry.ModMetadata {
	surviving := make(map[string]*registry.ModMetadata)
	for key, m := range byKey {
		if !m.Failed() {
			surviving[key] = m
		}
	}

	type outEdge struct {
		dependent string
		required  bool
	}
	indegree := make(map[string]int, len(surviving))
	requiredIn := make(map[string]int, len(surviving))
	out := make(map[string][]outEdge)
	for key := range surviving {
		indegree[key] = 0
	}
	for _, e := range edges {
		if _, ok := surviving[e.from]; !ok {
			continue
		}
		if _, ok := surviving[e.to]; !ok {
			continue
		}
		out[e.to] = append(out[e.to], outEdge{dependent: e.from, required: e.required})
		indegree[e.from]++
		if e.required {
			requiredIn[e.from]++
		}
	}

	var result []*registry.ModMetadata
	remaining := len(surviving)
	emitted := make(map[string]bool)

	emit := func(key string) {
		result = append(result, surviving[key])
		emitted[key] = true
		remaining--
		for _, oe := range out[key] {
			indegree[oe.dependent]--
			if oe.required {
				requiredIn[oe.dependent]--
			}
		}
	}

	for remaining > 0 {
		var ready []string
		for key := range surviving {
			if !emitted[key] && indegree[key] <= 0 {
				ready = append(ready, key)
			}
		}
		if len(ready) == 0 {
			// Only optional edges can still cycle here; required cycles
			// were failed earlier. Break the softest tie available.
			for key := range surviving {
				if !emitted[key] && requiredIn[key] <= 0 {
					ready = append(ready, key)
				}
			}
		}
		sort.Strings(ready)
		emit(ready[0])
		// Re-scan after each emit so ties always break on current state.
	}

	var failed []*registry.ModMetadata
	for _, m := range mods {
		if m.Failed() || m.Manifest == nil {
			failed = append(failed, m)
		}
	}
	sort.Slice(failed, func(i, j int) bool {
		return strings.ToLower(failed[i].ID()) < strings.ToLower(failed[j].ID())
	})

	return append(result, failed...)
}

func sortedKeys(byKey map[string]*registry.ModMetadata) []string {
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
