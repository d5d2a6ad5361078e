package activate

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/modhost-labs/modhost/internal/events"
	"github.com/modhost-labs/modhost/internal/loader"
)

// maxCallDepth bounds nested "call" instructions so a recursive entry
// body terminates with an error instead of a stack overflow.
const maxCallDepth = 16

// errReturn is the internal signal for the "ret" instruction.
var errReturn = errors.New("ret")

// Extension is one activated mod: its scanned module, the entry instance,
// and the capability bundle its instruction bodies run against.
type Extension struct {
	modID  string
	module *loader.Loaded
	caps   *Capabilities

	mu      sync.Mutex
	cancels []subCancel
}

type subCancel struct {
	kind   string
	cancel func()
}

func newExtension(modID string, module *loader.Loaded, caps *Capabilities) *Extension {
	return &Extension{modID: modID, module: module, caps: caps}
}

// RunEntry executes the entry type's init method. It is called exactly
// once per activation, by the activator, inside its failure boundary.
func (e *Extension) RunEntry() error {
	return e.runMethodOn(e.module.Entry, "init", 0)
}

// Dispose runs the optional dispose method, then cancels every event
// subscription the mod still holds.
func (e *Extension) Dispose() error {
	var err error
	if e.module.Entry.Method("dispose") != nil {
		err = e.runMethodOn(e.module.Entry, "dispose", 0)
	}

	e.mu.Lock()
	cancels := e.cancels
	e.cancels = nil
	e.mu.Unlock()
	for _, c := range cancels {
		c.cancel()
	}
	return err
}

func (e *Extension) runMethodOn(t *loader.TypeDecl, name string, depth int) error {
	if depth > maxCallDepth {
		return fmt.Errorf("call depth limit exceeded in %s.%s", t.Name, name)
	}
	m := t.Method(name)
	if m == nil {
		return fmt.Errorf("type %s has no method %q", t.Name, name)
	}
	for _, inst := range m.Body {
		if err := e.exec(t, inst, depth); err != nil {
			if errors.Is(err, errReturn) {
				return nil
			}
			return err
		}
	}
	return nil
}

// exec interprets one instruction. The only side effects available to a
// mod are capability calls, which keeps the blast radius of a misbehaving
// entry body inside its own bundle.
func (e *Extension) exec(t *loader.TypeDecl, inst loader.Instruction, depth int) error {
	need := func(n int) error {
		if len(inst.Args) < n {
			return fmt.Errorf("op %q needs %d args, got %d", inst.Op, n, len(inst.Args))
		}
		return nil
	}

	switch inst.Op {
	case "nop", "typeref", "host.patch", "host.unsafe_tick":
		return nil

	case "ret":
		return errReturn

	case "log":
		e.caps.Logger.Info(strings.Join(inst.Args, " "))
		return nil

	case "call":
		if err := need(1); err != nil {
			return err
		}
		return e.runMethodOn(t, inst.Args[0], depth+1)

	case "events.subscribe":
		if err := need(2); err != nil {
			return err
		}
		kind, method := inst.Args[0], inst.Args[1]
		cancel := e.caps.Events.Subscribe(kind, func(events.Event) error {
			return e.runMethodOn(t, method, 0)
		})
		e.mu.Lock()
		e.cancels = append(e.cancels, subCancel{kind: kind, cancel: cancel})
		e.mu.Unlock()
		return nil

	case "events.unsubscribe":
		if err := need(1); err != nil {
			return err
		}
		e.cancelKind(inst.Args[0])
		return nil

	case "command.register":
		if err := need(3); err != nil {
			return err
		}
		name, doc, method := inst.Args[0], inst.Args[1], inst.Args[2]
		return e.caps.Commands.Register(name, doc, func(io.Writer, []string) error {
			return e.runMethodOn(t, method, 0)
		})

	case "content.provide":
		if err := need(2); err != nil {
			return err
		}
		scope, value := inst.Args[0], inst.Args[1]
		exclusive := len(inst.Args) > 2 && inst.Args[2] == "exclusive"
		e.caps.Content.ProvideAsset(scope, exclusive, func(string, string) (interface{}, bool) {
			return value, true
		})
		return nil

	case "content.edit":
		if err := need(2); err != nil {
			return err
		}
		scope, suffix := inst.Args[0], inst.Args[1]
		e.caps.Content.EditAsset(scope, func(_, _ string, v interface{}) interface{} {
			if s, ok := v.(string); ok {
				return s + suffix
			}
			return v
		})
		return nil

	case "content.load":
		if err := need(1); err != nil {
			return err
		}
		_, err := e.caps.Content.Load(inst.Args[0])
		return err

	case "data.write":
		if err := need(2); err != nil {
			return err
		}
		return e.caps.Data.WriteGlobal(inst.Args[0], inst.Args[1])

	case "data.read":
		if err := need(1); err != nil {
			return err
		}
		var value string
		_, err := e.caps.Data.ReadGlobal(inst.Args[0], &value)
		return err

	case "i18n.get":
		if err := need(1); err != nil {
			return err
		}
		e.caps.Logger.Debug("translation lookup",
			"key", inst.Args[0], "value", e.caps.Translation.Get(inst.Args[0]))
		return nil

	case "net.send":
		if err := need(1); err != nil {
			return err
		}
		return e.caps.Multiplayer.Send(inst.Args[0], strings.Join(inst.Args[1:], " "))

	case "registry.api":
		if err := need(1); err != nil {
			return err
		}
		// Lookups before the registry is fully initialized are rejected;
		// a mod doing this from init gets a warning, not a crash.
		if _, err := e.caps.Mods.API(inst.Args[0]); err != nil {
			e.caps.Logger.Warn("mod API lookup failed", "target", inst.Args[0], "error", err)
		}
		return nil

	default:
		// Reached only for ops the scanner passed under the assumption
		// flag; treat them as inert.
		e.caps.Logger.Debug("ignoring assumed-compatible op", "op", inst.Op)
		return nil
	}
}

func (e *Extension) cancelKind(kind string) {
	e.mu.Lock()
	var keep []subCancel
	var drop []subCancel
	for _, c := range e.cancels {
		if c.kind == kind {
			drop = append(drop, c)
		} else {
			keep = append(keep, c)
		}
	}
	e.cancels = keep
	e.mu.Unlock()
	for _, c := range drop {
		c.cancel()
	}
}

// apiTypeName returns the type the entry exposes as its public API, named
// by a typeref in the entry's optional "api" method.
func (e *Extension) apiTypeName() string {
	m := e.module.Entry.Method("api")
	if m == nil {
		return ""
	}
	for _, inst := range m.Body {
		if inst.Op == "typeref" && len(inst.Args) > 0 {
			return inst.Args[0]
		}
	}
	return ""
}

// ModAPI is the callable surface a mod exposes to other mods through the
// registry.
type ModAPI struct {
	Owner string
	Type  string
	ext   *Extension
	decl  *loader.TypeDecl
}

// Methods lists the API type's method names.
func (a *ModAPI) Methods() []string {
	names := make([]string, 0, len(a.decl.Methods))
	for _, m := range a.decl.Methods {
		names = append(names, m.Name)
	}
	return names
}

// Invoke runs one API method on behalf of a caller.
func (a *ModAPI) Invoke(method string) error {
	return a.ext.runMethodOn(a.decl, method, 0)
}
