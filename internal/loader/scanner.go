package loader

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// platformRewrites maps type references that resolve differently per
// deployment target to their portable equivalents. Substitution preserves
// behavior for every recognized pattern.
var platformRewrites = map[string]string{
	"sys.win.FileHandle":    "sys.portable.FileHandle",
	"sys.mac.FileHandle":    "sys.portable.FileHandle",
	"sys.win.Registry":      "sys.portable.KeyValueStore",
	"sys.win.PathSeparator": "sys.portable.PathSeparator",
	"gfx.dx.Texture":        "gfx.portable.Texture",
	"gfx.metal.Texture":     "gfx.portable.Texture",
	"gfx.dx.SpriteBatch":    "gfx.portable.SpriteBatch",
}

// hardIncompatible lists ops that reach into host memory; running them
// under this runtime would corrupt state, so they always hard-fail.
var hardIncompatible = map[string]bool{
	"host.poke":   true,
	"host.jmpabs": true,
}

// knownOps is every op the activation evaluator and host runtime accept.
// host.patch and host.unsafe_tick are legal but flagged as advisories.
var knownOps = map[string]bool{
	"nop":               true,
	"ret":               true,
	"call":              true,
	"typeref":           true,
	"log":               true,
	"events.subscribe":  true,
	"events.unsubscribe": true,
	"content.provide":   true,
	"content.edit":      true,
	"content.load":      true,
	"command.register":  true,
	"data.write":        true,
	"data.read":         true,
	"i18n.get":          true,
	"net.send":          true,
	"registry.api":      true,
	"host.patch":        true,
	"host.unsafe_tick":  true,
}

// ScanReport summarizes what the structural scan found and changed.
type ScanReport struct {
	Rewrites       int  // platform type references rewritten in place
	Assumed        int  // unrecognized ops passed through under the assumption flag
	PatchesHost    bool // host.patch seen
	BypassesSafety bool // host.unsafe_tick seen
}

// NonPortable reports whether the module needed any adaptation.
func (r ScanReport) NonPortable() bool {
	return r.Rewrites > 0 || r.Assumed > 0
}

// scan walks every instruction of every declared type, rewriting
// platform-divergent references in place. assumeCompatible controls
// whether suspiciously novel ops pass through or hard-fail. One trace
// line is emitted per rewritten or flagged site.
func scan(mod *Module, assumeCompatible bool, logger *log.Logger) (ScanReport, error) {
	var report ScanReport

	for ti := range mod.Types {
		t := &mod.Types[ti]
		for mi := range t.Methods {
			m := &t.Methods[mi]
			for ii := range m.Body {
				inst := &m.Body[ii]
				site := fmt.Sprintf("%s.%s+%d", t.Name, m.Name, ii)

				if hardIncompatible[inst.Op] {
					return report, fmt.Errorf(
						"%w: op %q at %s", ErrIncompatible, inst.Op, site,
					)
				}

				switch inst.Op {
				case "host.patch":
					report.PatchesHost = true
					logger.Debug("host code patch site", "pattern", inst.Op, "site", site)
				case "host.unsafe_tick":
					report.BypassesSafety = true
					logger.Debug("unsafe update tick site", "pattern", inst.Op, "site", site)
				}

				if !knownOps[inst.Op] {
					if !assumeCompatible {
						return report, fmt.Errorf(
							"%w: unrecognized op %q at %s", ErrIncompatible, inst.Op, site,
						)
					}
					report.Assumed++
					logger.Debug("assuming unrecognized op is compatible", "pattern", inst.Op, "site", site)
				}

				for ai, arg := range inst.Args {
					if portable, ok := platformRewrites[arg]; ok {
						inst.Args[ai] = portable
						report.Rewrites++
						logger.Debug("rewrote platform type reference",
							"pattern", arg, "to", portable, "site", site)
					} else if divergentPrefix(arg) {
						// A platform namespace we have no mapping for is as
						// unsafe as a hard-incompatible op.
						return report, fmt.Errorf(
							"%w: unmapped platform reference %q at %s", ErrIncompatible, arg, site,
						)
					}
				}
			}
		}
	}

	return report, nil
}

// divergentPrefix reports whether a reference lives in a namespace known
// to resolve differently per platform.
func divergentPrefix(ref string) bool {
	for _, prefix := range []string{"sys.win.", "sys.mac.", "gfx.dx.", "gfx.metal."} {
		if strings.HasPrefix(ref, prefix) {
			return true
		}
	}
	return false
}

// findEntry returns the single eligible entry type of a module. Zero and
// multiple matches are distinct failures.
func findEntry(mod *Module) (*TypeDecl, error) {
	var found *TypeDecl
	for i := range mod.Types {
		t := &mod.Types[i]
		if !t.eligibleEntry() {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s and %s", ErrMultipleEntryTypes, found.Name, t.Name)
		}
		found = t
	}
	if found == nil {
		return nil, ErrNoEntryType
	}
	return found, nil
}
