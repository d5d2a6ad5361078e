package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/modhost-labs/modhost/internal/manifest"
)

func meta(id string, status Status) *ModMetadata {
	return &ModMetadata{
		Status:   status,
		Manifest: &manifest.Manifest{ID: id, Name: id, Version: "1.0.0"},
	}
}

func TestAdd_FirstWinsOnDuplicateKeys(t *testing.T) {
	r := New()
	first := meta("Acme.Mod", StatusFailed)
	second := meta("ACME.MOD", StatusFailed)
	r.Add(first)
	r.Add(second)

	got, ok := r.Get("acme.mod")
	if !ok || got != first {
		t.Error("lookup should resolve to the first registration")
	}
	if len(r.All()) != 2 {
		t.Error("the load-order list keeps every package")
	}
}

func TestActive_FiltersByStatus(t *testing.T) {
	r := New()
	r.Add(meta("A", StatusActive))
	r.Add(meta("B", StatusFailed))
	r.Add(meta("C", StatusActive))

	active := r.Active()
	if len(active) != 2 {
		t.Fatalf("Active = %d mods, want 2", len(active))
	}
	if active[0].ID() != "A" || active[1].ID() != "C" {
		t.Errorf("Active order = %s, %s; want load order", active[0].ID(), active[1].ID())
	}
}

func TestAPI_RejectedBeforeInitialization(t *testing.T) {
	r := New()
	m := meta("Acme.Mod", StatusActive)
	m.API = struct{}{}
	r.Add(m)

	if _, err := r.API("Acme.Mod"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}

	r.MarkInitialized()
	if _, err := r.API("Acme.Mod"); err != nil {
		t.Errorf("API after init = %v, want success", err)
	}
}

func TestAPI_MissingCases(t *testing.T) {
	r := New()
	r.Add(meta("No.Api", StatusActive))
	r.MarkInitialized()

	if _, err := r.API("No.Api"); err == nil || !strings.Contains(err.Error(), "exposes no API") {
		t.Errorf("err = %v, want a no-API failure", err)
	}
	if _, err := r.API("Unknown.Mod"); err == nil {
		t.Error("unknown mod lookup should fail")
	}
}

func TestFail_KeepsFirstReason(t *testing.T) {
	m := meta("A", StatusValidated)
	m.Fail("first reason", "")
	m.Fail("second reason", "")
	if m.UserReason != "first reason" {
		t.Errorf("UserReason = %q, want the first failure kept", m.UserReason)
	}
}

func TestWarn_Deduplicates(t *testing.T) {
	m := meta("A", StatusActive)
	m.Warn(WarnNonPortable)
	m.Warn(WarnNonPortable)
	if len(m.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one entry", m.Warnings)
	}
}
