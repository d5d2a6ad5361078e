package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

const testdataDir = "testdata"

func testPath(name string) string {
	return filepath.Join(testdataDir, name)
}

func TestParseFile_Fields(t *testing.T) {
	m, err := ParseFile(testPath("valid-mod.yaml"))
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	if m.ID != "Pathoschild.TractorMod" {
		t.Errorf("ID = %q, want %q", m.ID, "Pathoschild.TractorMod")
	}
	if m.Version != "4.16.1" {
		t.Errorf("Version = %q, want %q", m.Version, "4.16.1")
	}
	if m.EntryModule != "TractorMod.pmod" {
		t.Errorf("EntryModule = %q, want %q", m.EntryModule, "TractorMod.pmod")
	}
	if len(m.Dependencies) != 2 {
		t.Fatalf("len(Dependencies) = %d, want 2", len(m.Dependencies))
	}
	if !m.Dependencies[0].IsRequired() {
		t.Error("dependency without flag should default to required")
	}
	if m.Dependencies[1].IsRequired() {
		t.Error("dependency with required: false should not be required")
	}
	if m.IsContentPack() {
		t.Error("mod with entry module should not be a content pack")
	}
}

func TestParseFile_JSONManifest(t *testing.T) {
	m, err := ParseFile(testPath("valid-mod.json"))
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	if m.ID != "Acme.JsonMod" {
		t.Errorf("ID = %q, want %q", m.ID, "Acme.JsonMod")
	}
}

func TestParseFile_ContentPack(t *testing.T) {
	m, err := ParseFile(testPath("valid-content-pack.yaml"))
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	if !m.IsContentPack() {
		t.Error("expected a content pack")
	}
	if m.ContentPackFor != "Pathoschild.ContentPatcher" {
		t.Errorf("ContentPackFor = %q", m.ContentPackFor)
	}
}

func TestParseFile_NotFound(t *testing.T) {
	if _, err := ParseFile(testPath("nonexistent.yaml")); err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
}

func TestParse_UnknownFieldsIgnored(t *testing.T) {
	m, err := Parse([]byte("id: A.B\nname: X\nversion: 1.0.0\nentry_module: x.pmod\nfuture_field: 42\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if m.ID != "A.B" {
		t.Errorf("ID = %q, want %q", m.ID, "A.B")
	}
}

func TestKey_CaseInsensitive(t *testing.T) {
	a := &Manifest{ID: "Acme.Mod"}
	b := &Manifest{ID: "ACME.MOD"}
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q vs %q", a.Key(), b.Key())
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"Acme.Mod", true},
		{"acme-mod_2", true},
		{"", false},
		{".leading-dot", false},
		{"has space", false},
		{"slash/bad", false},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.valid {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.valid)
		}
	}
}

func TestSemVersion(t *testing.T) {
	m := &Manifest{Version: "v1.2.3-beta.1"}
	v, err := m.SemVersion()
	if err != nil {
		t.Fatalf("SemVersion error: %v", err)
	}
	if v.Prerelease() != "beta.1" {
		t.Errorf("Prerelease = %q, want %q", v.Prerelease(), "beta.1")
	}
}

func TestFindManifest(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindManifest(dir); err == nil {
		t.Fatal("expected error for empty dir, got nil")
	}

	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, []byte(`{"id":"A.B","name":"X","version":"1.0.0"}`), 0644); err != nil {
		t.Fatal(err)
	}
	found, err := FindManifest(dir)
	if err != nil {
		t.Fatalf("FindManifest error: %v", err)
	}
	if found != path {
		t.Errorf("FindManifest = %q, want %q", found, path)
	}
}
