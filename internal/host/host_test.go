package host

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modhost-labs/modhost/internal/logging"
	"github.com/modhost-labs/modhost/internal/registry"
)

const basicModule = `
name: Basic.Module
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
            args: ["day.started", "onDay"]
      - name: onDay
        body:
          - op: nop
`

// writePackage lays one mod package under modsDir.
func writePackage(t *testing.T, modsDir, dirName, manifestYAML, pmod string) {
	t.Helper()
	dir := filepath.Join(modsDir, dirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifestYAML), 0644); err != nil {
		t.Fatal(err)
	}
	if pmod != "" {
		if err := os.WriteFile(filepath.Join(dir, "mod.pmod"), []byte(pmod), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func baseOptions(t *testing.T, modsDir string) Options {
	t.Helper()
	return Options{
		ModsDir:        modsDir,
		DataDir:        t.TempDir(),
		Locale:         "en-US",
		HostVersion:    "1.6.0",
		MinHostVersion: "1.0.0",
		Logger:         logging.New(io.Discard, "test"),
	}
}

func TestRun_FullPipeline(t *testing.T) {
	modsDir := t.TempDir()
	writePackage(t, modsDir, "base", `
id: Acme.Base
name: Base
version: 1.0.0
entry_module: mod.pmod
update_keys: ["Nexus:1"]
`, basicModule)
	writePackage(t, modsDir, "addon", `
id: Acme.Addon
name: Addon
version: 2.0.0
entry_module: mod.pmod
update_keys: ["Nexus:2"]
dependencies:
  - id: Acme.Base
    min_version: 1.0.0
`, basicModule)
	writePackage(t, modsDir, "orphan", `
id: Acme.Orphan
name: Orphan
version: 1.0.0
entry_module: mod.pmod
update_keys: ["Nexus:3"]
dependencies:
  - id: Missing.Mod
`, basicModule)

	h, err := Run(baseOptions(t, modsDir))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	for _, id := range []string{"Acme.Base", "Acme.Addon"} {
		m, ok := h.Registry.Get(id)
		if !ok {
			t.Fatalf("%s missing from registry", id)
		}
		if m.Status != registry.StatusActive {
			t.Errorf("%s status = %s, want active", id, m.Status)
		}
	}
	if m, _ := h.Registry.Get("Acme.Orphan"); !m.Failed() {
		t.Error("Acme.Orphan should fail for its missing dependency")
	}

	var out bytes.Buffer
	h.Summary(&out)
	text := out.String()
	if !strings.Contains(text, "Loaded 2 mods (1 skipped).") {
		t.Errorf("summary missing counts:\n%s", text)
	}
	if !strings.Contains(text, "Acme.Orphan") || !strings.Contains(text, "not installed") {
		t.Errorf("summary missing skip reason:\n%s", text)
	}
}

func TestRun_HostVersionGate(t *testing.T) {
	modsDir := t.TempDir()

	opts := baseOptions(t, modsDir)
	opts.HostVersion = "0.9.0"
	if _, err := Run(opts); err == nil || !strings.Contains(err.Error(), "below the supported minimum") {
		t.Errorf("err = %v, want the version gate to fire", err)
	}

	opts = baseOptions(t, modsDir)
	opts.HostVersion = "not-a-version"
	if _, err := Run(opts); err == nil {
		t.Error("unparseable host version should be fatal")
	}
}

func TestRun_MissingModsDir(t *testing.T) {
	opts := baseOptions(t, filepath.Join(t.TempDir(), "does-not-exist"))
	if _, err := Run(opts); err == nil {
		t.Error("unreadable mods directory should be fatal")
	}
}

func TestRun_BuiltinCommands(t *testing.T) {
	modsDir := t.TempDir()
	writePackage(t, modsDir, "base", `
id: Acme.Base
name: Base
version: 1.0.0
entry_module: mod.pmod
update_keys: ["Nexus:1"]
`, basicModule)

	opts := baseOptions(t, modsDir)
	opts.UpdateSource = func(key string) (string, error) { return "2.0.0", nil }
	h, err := Run(opts)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	h.Console.Execute(&out, "reload_i18n")
	if !strings.Contains(out.String(), "Reloaded translations") {
		t.Errorf("reload_i18n output = %q", out.String())
	}

	out.Reset()
	h.Console.Execute(&out, "update_status")
	if !strings.Contains(out.String(), "Acme.Base: 1.0.0 -> 2.0.0") {
		t.Errorf("update_status output = %q", out.String())
	}
}

func TestRun_UpdateChecksDisabled(t *testing.T) {
	modsDir := t.TempDir()
	h, err := Run(baseOptions(t, modsDir))
	if err != nil {
		t.Fatal(err)
	}
	if h.Checker != nil {
		t.Error("Checker should be nil without an update source")
	}
	var out bytes.Buffer
	h.Console.Execute(&out, "update_status")
	if !strings.Contains(out.String(), "disabled") {
		t.Errorf("update_status output = %q", out.String())
	}
}

func TestShutdown_DisposesActiveMods(t *testing.T) {
	modsDir := t.TempDir()
	writePackage(t, modsDir, "base", `
id: Acme.Base
name: Base
version: 1.0.0
entry_module: mod.pmod
update_keys: ["Nexus:1"]
`, basicModule)

	h, err := Run(baseOptions(t, modsDir))
	if err != nil {
		t.Fatal(err)
	}
	if n := h.Events.Subscribers("day.started"); n != 1 {
		t.Fatalf("Subscribers = %d, want 1", n)
	}
	h.Shutdown()
	if n := h.Events.Subscribers("day.started"); n != 0 {
		t.Errorf("Subscribers = %d after shutdown, want 0", n)
	}
}

func TestSummary_WarningGroups(t *testing.T) {
	modsDir := t.TempDir()
	// No update keys triggers the no-update-keys advisory.
	writePackage(t, modsDir, "quiet", `
id: Acme.Quiet
name: Quiet
version: 1.0.0
entry_module: mod.pmod
`, basicModule)

	h, err := Run(baseOptions(t, modsDir))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	h.Summary(&out)
	text := out.String()
	if !strings.Contains(text, "Warnings:") || !strings.Contains(text, "update keys") {
		t.Errorf("summary missing warning group:\n%s", text)
	}
	if !strings.Contains(text, "Acme.Quiet") {
		t.Errorf("warning group should list the mod:\n%s", text)
	}
}

func TestDiscover(t *testing.T) {
	modsDir := t.TempDir()
	writePackage(t, modsDir, "good", `
id: Acme.Good
name: Good
version: 1.0.0
entry_module: mod.pmod
`, basicModule)
	writePackage(t, modsDir, "no-version", `
id: Acme.Broken
name: Broken
entry_module: mod.pmod
`, basicModule)
	// Ignored entries: dotted and underscored directories, loose files.
	if err := os.MkdirAll(filepath.Join(modsDir, ".cache"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(modsDir, "_disabled"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(modsDir, "readme.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	// A directory without a manifest becomes a failed placeholder.
	if err := os.MkdirAll(filepath.Join(modsDir, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	mods, err := Discover(modsDir)
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}
	if len(mods) != 3 {
		t.Fatalf("discovered %d packages, want 3", len(mods))
	}

	byDir := make(map[string]*registry.ModMetadata)
	for _, m := range mods {
		byDir[filepath.Base(m.Dir)] = m
	}
	if m := byDir["good"]; m.Failed() {
		t.Errorf("good package failed: %s", m.UserReason)
	}
	if m := byDir["empty"]; !m.Failed() || !strings.Contains(m.UserReason, "manifest") {
		t.Errorf("empty dir should fail for its missing manifest, got %q", m.UserReason)
	}
	broken := byDir["no-version"]
	if !broken.Failed() {
		t.Error("schema-invalid manifest should fail")
	}
	// The ID survives schema rejection so dependents can name it.
	if broken.Manifest == nil || broken.Manifest.ID != "Acme.Broken" {
		t.Error("schema-invalid manifest should keep its parsed ID")
	}
}
