package activate

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modhost-labs/modhost/internal/console"
	"github.com/modhost-labs/modhost/internal/content"
	"github.com/modhost-labs/modhost/internal/events"
	"github.com/modhost-labs/modhost/internal/loader"
	"github.com/modhost-labs/modhost/internal/logging"
	"github.com/modhost-labs/modhost/internal/manifest"
	"github.com/modhost-labs/modhost/internal/registry"
	"github.com/modhost-labs/modhost/internal/storage"
)

func newEnv(t *testing.T) *Env {
	t.Helper()
	logger := logging.New(io.Discard, "test")
	return &Env{
		Logger:   logger,
		Registry: registry.New(),
		Events:   events.New(logger),
		Content:  content.NewCoordinator(logger, "en-US", nil),
		Console:  console.New(logger),
		Global:   storage.NewGlobalStore(t.TempDir()),
		Save:     storage.NewSaveStore(),
	}
}

func newActivator(t *testing.T, env *Env) *Activator {
	t.Helper()
	ld, err := loader.New(env.Logger, false)
	if err != nil {
		t.Fatal(err)
	}
	return NewActivator(env, ld)
}

// writeMod lays out a minimal mod package directory with the given
// portable module content and returns its resolved metadata.
func writeMod(t *testing.T, id, pmod string) *registry.ModMetadata {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mod.pmod"), []byte(pmod), 0644); err != nil {
		t.Fatal(err)
	}
	return &registry.ModMetadata{
		Dir:    dir,
		Status: registry.StatusValidated,
		Manifest: &manifest.Manifest{
			ID:          id,
			Name:        id,
			Version:     "1.0.0",
			EntryModule: "mod.pmod",
		},
	}
}

const wiringModule = `
name: Wiring.Mod
format: 1
types:
  - name: ModEntry
    kind: class
    exported: true
    entry: true
    methods:
      - name: init
        body:
          - op: events.subscribe
            args: ["day.started", "onDayStarted"]
          - op: command.register
            args: ["wiring_status", "Prints mod status", "onCommand"]
          - op: content.provide
            args: ["Data/Wiring", "wired-value"]
      - name: onDayStarted
        body:
          - op: log
            args: ["new day"]
      - name: onCommand
        body:
          - op: log
            args: ["status ok"]
`

func TestActivateAll_WiresCapabilities(t *testing.T) {
	env := newEnv(t)
	a := newActivator(t, env)
	m := writeMod(t, "Wiring.Mod", wiringModule)

	a.ActivateAll([]*registry.ModMetadata{m})

	if m.Status != registry.StatusActive {
		t.Fatalf("status = %s, want active", m.Status)
	}
	if !env.Registry.Initialized() {
		t.Error("registry should be initialized after ActivateAll")
	}
	if n := env.Events.Subscribers("day.started"); n != 1 {
		t.Errorf("Subscribers = %d, want 1", n)
	}

	var out bytes.Buffer
	env.Console.Execute(&out, "wiring_status")
	if strings.Contains(out.String(), "Unknown command") {
		t.Error("registered console command should dispatch")
	}

	v, err := env.Content.Resolve("Data/Wiring")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if v != "wired-value" {
		t.Errorf("asset = %v, want the mod-provided value", v)
	}
}

func TestActivateAll_EntryFailureIsolated(t *testing.T) {
	env := newEnv(t)
	a := newActivator(t, env)
	broken := writeMod(t, "Broken.Mod", `
name: Broken.Mod
format: 1
types:
  - name: ModEntry
    kind: class
    exported: true
    entry: true
    methods:
      - name: init
        body:
          - op: call
            args: ["noSuchMethod"]
`)
	healthy := writeMod(t, "Healthy.Mod", wiringModule)

	a.ActivateAll([]*registry.ModMetadata{broken, healthy})

	// A failing entry body is attributed and logged but the mod stays
	// active and never blocks mods after it.
	if broken.Status != registry.StatusActive {
		t.Errorf("broken mod status = %s, want active", broken.Status)
	}
	if healthy.Status != registry.StatusActive {
		t.Errorf("healthy mod status = %s, want active", healthy.Status)
	}
}

func TestActivate_ContentPack(t *testing.T) {
	env := newEnv(t)
	a := newActivator(t, env)
	pack := &registry.ModMetadata{
		Dir:    t.TempDir(),
		Status: registry.StatusValidated,
		Manifest: &manifest.Manifest{
			ID:             "Acme.Pack",
			Name:           "Pack",
			Version:        "1.0.0",
			ContentPackFor: "Acme.Framework",
		},
	}

	a.ActivateAll([]*registry.ModMetadata{pack})

	if pack.Status != registry.StatusActive {
		t.Errorf("status = %s, want active without a code module", pack.Status)
	}
	if pack.Instance != nil {
		t.Error("content pack should have no extension instance")
	}
}

func TestActivate_SkipsFailedMods(t *testing.T) {
	env := newEnv(t)
	a := newActivator(t, env)
	m := writeMod(t, "Rejected.Mod", wiringModule)
	m.Fail("it requires mod X, which is not installed", "")

	a.ActivateAll([]*registry.ModMetadata{m})

	if !m.Failed() {
		t.Error("failed mod should stay failed")
	}
	if _, ok := env.Registry.Get("Rejected.Mod"); !ok {
		t.Error("failed mods are still recorded for the load summary")
	}
	if n := env.Events.Subscribers("day.started"); n != 0 {
		t.Error("failed mod must not reach activation")
	}
}

func TestActivate_MissingModuleFile(t *testing.T) {
	env := newEnv(t)
	a := newActivator(t, env)
	m := writeMod(t, "Ghost.Mod", wiringModule)
	m.Manifest.EntryModule = "absent.pmod"

	a.ActivateAll([]*registry.ModMetadata{m})

	if !m.Failed() || !strings.Contains(m.UserReason, "could not be loaded") {
		t.Errorf("status = %s reason = %q, want a load failure", m.Status, m.UserReason)
	}
}

func TestActivate_ScanWarnings(t *testing.T) {
	env := newEnv(t)
	a := newActivator(t, env)
	m := writeMod(t, "Patchy.Mod", `
name: Patchy.Mod
format: 1
types:
  - name: ModEntry
    kind: class
    exported: true
    entry: true
    methods:
      - name: init
        body:
          - op: host.patch
          - op: typeref
            args: ["gfx.dx.Texture"]
`)

	a.ActivateAll([]*registry.ModMetadata{m})

	want := map[registry.Warning]bool{
		registry.WarnPatchesHost: false,
		registry.WarnNonPortable: false,
	}
	for _, w := range m.Warnings {
		if _, tracked := want[w]; tracked {
			want[w] = true
		}
	}
	for w, seen := range want {
		if !seen {
			t.Errorf("missing warning %s; got %v", w, m.Warnings)
		}
	}
}

const apiModule = `
name: Api.Mod
format: 1
types:
  - name: ModEntry
    kind: class
    exported: true
    entry: true
    methods:
      - name: init
        body:
          - op: nop
      - name: api
        body:
          - op: typeref
            args: ["PublicAPI"]
  - name: PublicAPI
    kind: class
    exported: true
    methods:
      - name: ping
        body:
          - op: log
            args: ["pong"]
`

func TestExposeAPI(t *testing.T) {
	env := newEnv(t)
	a := newActivator(t, env)
	m := writeMod(t, "Api.Mod", apiModule)

	a.ActivateAll([]*registry.ModMetadata{m})

	got, err := env.Registry.API("api.mod")
	if err != nil {
		t.Fatalf("API lookup error: %v", err)
	}
	api, ok := got.(*ModAPI)
	if !ok {
		t.Fatalf("API = %T, want *ModAPI", got)
	}
	if api.Type != "PublicAPI" {
		t.Errorf("Type = %q, want PublicAPI", api.Type)
	}
	methods := api.Methods()
	if len(methods) != 1 || methods[0] != "ping" {
		t.Errorf("Methods = %v, want [ping]", methods)
	}
	if err := api.Invoke("ping"); err != nil {
		t.Errorf("Invoke error: %v", err)
	}
}

func TestExposeAPI_HiddenTypeDiscarded(t *testing.T) {
	env := newEnv(t)
	a := newActivator(t, env)
	m := writeMod(t, "Sneaky.Mod", `
name: Sneaky.Mod
format: 1
types:
  - name: ModEntry
    kind: class
    exported: true
    entry: true
    methods:
      - name: init
        body:
          - op: nop
      - name: api
        body:
          - op: typeref
            args: ["secretApi"]
  - name: secretApi
    kind: class
    exported: false
`)

	a.ActivateAll([]*registry.ModMetadata{m})

	if m.API != nil {
		t.Error("non-public API type should be discarded")
	}
	var warned bool
	for _, w := range m.Warnings {
		if w == registry.WarnHiddenAPI {
			warned = true
		}
	}
	if !warned {
		t.Errorf("warnings = %v, want hidden-api-type", m.Warnings)
	}
}

func TestActivate_APILookupDuringInitRejected(t *testing.T) {
	env := newEnv(t)
	a := newActivator(t, env)
	m := writeMod(t, "Eager.Mod", `
name: Eager.Mod
format: 1
types:
  - name: ModEntry
    kind: class
    exported: true
    entry: true
    methods:
      - name: init
        body:
          - op: registry.api
            args: ["Other.Mod"]
`)

	// The lookup runs before MarkInitialized; it must be rejected without
	// failing the mod.
	a.ActivateAll([]*registry.ModMetadata{m})
	if m.Status != registry.StatusActive {
		t.Errorf("status = %s, want active despite the early lookup", m.Status)
	}
}

func TestDispose_CancelsSubscriptions(t *testing.T) {
	env := newEnv(t)
	a := newActivator(t, env)
	m := writeMod(t, "Subbed.Mod", wiringModule)

	a.ActivateAll([]*registry.ModMetadata{m})
	if n := env.Events.Subscribers("day.started"); n != 1 {
		t.Fatalf("Subscribers = %d, want 1", n)
	}

	d, ok := m.Instance.(registry.Disposer)
	if !ok {
		t.Fatalf("Instance %T should implement Disposer", m.Instance)
	}
	if err := d.Dispose(); err != nil {
		t.Fatalf("Dispose error: %v", err)
	}
	if n := env.Events.Subscribers("day.started"); n != 0 {
		t.Errorf("Subscribers = %d after dispose, want 0", n)
	}
}

func TestTranslation_PlaceholderWhenMissing(t *testing.T) {
	env := newEnv(t)
	caps := NewCapabilities(env, "Quiet.Mod", nil)
	got := caps.Translation.Get("greeting")
	if !strings.Contains(got, "missing translation") || !strings.Contains(got, "Quiet.Mod") {
		t.Errorf("Get = %q, want an attributed placeholder", got)
	}
}

func TestTranslation_FromBundle(t *testing.T) {
	env := newEnv(t)
	a := newActivator(t, env)
	m := writeMod(t, "Localized.Mod", wiringModule)
	i18nDir := filepath.Join(m.Dir, "i18n")
	if err := os.MkdirAll(i18nDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(i18nDir, "default.json"), []byte(`{"greeting": "hi"}`), 0644); err != nil {
		t.Fatal(err)
	}

	a.ActivateAll([]*registry.ModMetadata{m})

	if failed := a.ReloadTranslations(); len(failed) != 0 {
		t.Errorf("ReloadTranslations failed for %v", failed)
	}
	bundle := a.bundles[m.Key()]
	if bundle == nil {
		t.Fatal("bundle should be tracked for reloads")
	}
	caps := NewCapabilities(env, m.ID(), bundle)
	if got := caps.Translation.Get("greeting"); got != "hi" {
		t.Errorf("Get = %q, want hi", got)
	}
}
