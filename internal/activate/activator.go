package activate

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/modhost-labs/modhost/internal/i18n"
	"github.com/modhost-labs/modhost/internal/loader"
	"github.com/modhost-labs/modhost/internal/registry"
)

// Activator walks the resolved mod order and brings each mod up.
type Activator struct {
	env     *Env
	loader  *loader.Loader
	bundles map[string]*i18n.Bundle // mod key -> translation bundle
}

// NewActivator returns an activator using the given shared environment.
func NewActivator(env *Env, ld *loader.Loader) *Activator {
	return &Activator{env: env, loader: ld, bundles: make(map[string]*i18n.Bundle)}
}

// ReloadTranslations re-reads every mod's translation files. Returns the
// IDs of mods whose reload failed.
func (a *Activator) ReloadTranslations() []string {
	var failed []string
	for modKey, bundle := range a.bundles {
		if err := bundle.Reload(); err != nil {
			a.env.Logger.Warn("translation reload failed", "mod", modKey, "error", err)
			failed = append(failed, modKey)
		}
	}
	return failed
}

// ActivateAll processes mods strictly sequentially in resolved order,
// recording every one in the shared registry. Only after the whole set is
// processed is the registry marked fully initialized; until then
// cross-mod API lookups are rejected.
func (a *Activator) ActivateAll(mods []*registry.ModMetadata) {
	for _, m := range mods {
		a.activate(m)
		a.env.Registry.Add(m)
	}
	a.env.Registry.MarkInitialized()
}

func (a *Activator) activate(m *registry.ModMetadata) {
	logger := a.env.Logger.With("mod", m.ID())

	if m.Failed() {
		logger.Warn("skipping mod", "reason", m.UserReason)
		if m.DevReason != "" {
			logger.Debug("skip detail", "detail", m.DevReason)
		}
		return
	}

	bundle, err := i18n.LoadBundle(m.Dir, m.ID(), a.env.Logger)
	if err != nil {
		// Broken translations degrade, they do not reject the mod.
		logger.Warn("could not load translations", "error", err)
	}
	if bundle != nil {
		a.bundles[m.Key()] = bundle
	}

	// Content packs ship no executable module; their assets are consumed
	// by the target mod, so activation stops at registration.
	if m.Manifest.IsContentPack() {
		m.Status = registry.StatusActive
		logger.Info("loaded content pack", "for", m.Manifest.ContentPackFor)
		return
	}

	modPath := filepath.Join(m.Dir, m.Manifest.EntryModule)
	loaded, err := a.loader.Load(modPath)
	if err != nil {
		m.Fail(rejectionReason(err), err.Error())
		logger.Warn("skipping mod", "reason", m.UserReason)
		return
	}
	m.Status = registry.StatusLoaded

	if loaded.Report.PatchesHost {
		m.Warn(registry.WarnPatchesHost)
	}
	if loaded.Report.BypassesSafety {
		m.Warn(registry.WarnBypassesSafety)
	}
	if loaded.Report.NonPortable() {
		m.Warn(registry.WarnNonPortable)
	}

	caps := NewCapabilities(a.env, m.ID(), bundle)
	ext := newExtension(m.ID(), loaded, caps)
	m.Instance = ext

	// The entry point runs exactly once, inside the failure boundary.
	// An error here is attributed to this mod and never aborts the rest
	// of the load.
	if err := a.invokeEntry(ext); err != nil {
		logger.Error("mod entry point failed", "error", err)
	}
	m.Status = registry.StatusActive

	a.exposeAPI(m, ext, loaded)
	logger.Info("loaded mod", "version", m.Manifest.Version)
}

// invokeEntry catches both returned errors and panics from the entry body.
func (a *Activator) invokeEntry(ext *Extension) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entry point panicked: %v", r)
		}
	}()
	return ext.RunEntry()
}

// exposeAPI queries the mod for its exported capability object. An API
// type that is not externally visible is discarded with a warning rather
// than handed to other mods as a broken handle.
func (a *Activator) exposeAPI(m *registry.ModMetadata, ext *Extension, loaded *loader.Loaded) {
	name := ext.apiTypeName()
	if name == "" {
		return
	}
	for i := range loaded.Module.Types {
		t := &loaded.Module.Types[i]
		if t.Name != name {
			continue
		}
		if !t.Exported {
			m.Warn(registry.WarnHiddenAPI)
			a.env.Logger.Warn("discarding API object: type is not public",
				"mod", m.ID(), "type", name)
			return
		}
		m.API = &ModAPI{Owner: m.ID(), Type: name, ext: ext, decl: t}
		return
	}
	m.Warn(registry.WarnHiddenAPI)
	a.env.Logger.Warn("discarding API object: type not found in module",
		"mod", m.ID(), "type", name)
}

// rejectionReason maps loader failures onto short user-facing reasons.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, loader.ErrIncompatible):
		return "its code module uses instructions that cannot run on this platform"
	case errors.Is(err, loader.ErrNoEntryType):
		return "its code module declares no entry type"
	case errors.Is(err, loader.ErrMultipleEntryTypes):
		return "its code module declares more than one entry type"
	default:
		return "its code module could not be loaded"
	}
}
