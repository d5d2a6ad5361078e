package activate

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/modhost-labs/modhost/internal/console"
	"github.com/modhost-labs/modhost/internal/content"
	"github.com/modhost-labs/modhost/internal/events"
	"github.com/modhost-labs/modhost/internal/i18n"
	"github.com/modhost-labs/modhost/internal/registry"
	"github.com/modhost-labs/modhost/internal/storage"
)

// MessengerTransport sends a multiplayer message on behalf of a mod. The
// real network client lives in the host; tests inject a recorder. A nil
// transport makes Send a logged no-op.
type MessengerTransport func(fromMod, kind string, payload interface{}) error

// Env bundles the shared singletons the capability builder closes over.
// Passing it explicitly keeps the pipeline testable in isolation.
type Env struct {
	Logger    *log.Logger
	Registry  *registry.Registry
	Events    *events.Manager
	Content   *content.Coordinator
	Console   *console.Console
	Global    *storage.GlobalStore
	Save      *storage.SaveStore
	Messenger MessengerTransport
}

// ContentAccess reads derived assets and registers interceptors.
type ContentAccess interface {
	Load(name string) (interface{}, error)
	ProvideAsset(scope string, exclusive bool, load content.LoadFunc)
	EditAsset(scope string, edit content.EditFunc)
}

// EventSubscription subscribes to host events.
type EventSubscription interface {
	Subscribe(kind string, h events.Handler) (cancel func())
}

// ModLookup finds other loaded mods and their exposed APIs.
type ModLookup interface {
	IsLoaded(modID string) bool
	API(modID string) (interface{}, error)
}

// CommandRegistration adds console commands.
type CommandRegistration interface {
	Register(name, doc string, run func(out io.Writer, args []string) error) error
}

// Translation reads the mod's own translation bundle in the active locale.
type Translation interface {
	Get(key string) string
}

// DataPersistence reads and writes the mod's namespaced key/value data.
type DataPersistence interface {
	WriteGlobal(key string, value interface{}) error
	ReadGlobal(key string, out interface{}) (bool, error)
	WriteSave(key string, value interface{}) error
	ReadSave(key string, out interface{}) (bool, error)
}

// Messenger sends multiplayer messages attributed to the mod.
type Messenger interface {
	Send(kind string, payload interface{}) error
}

// Capabilities is the immutable bundle of narrow handles given to one
// mod's entry point. Every handle is closed over the mod's identity so
// logs, cache contributors, and storage namespaces attribute correctly.
type Capabilities struct {
	Content     ContentAccess
	Events      EventSubscription
	Mods        ModLookup
	Commands    CommandRegistration
	Translation Translation
	Data        DataPersistence
	Multiplayer Messenger
	Logger      *log.Logger
}

// NewCapabilities builds the capability bundle for one mod.
func NewCapabilities(env *Env, modID string, bundle *i18n.Bundle) *Capabilities {
	return &Capabilities{
		Content:     &modContent{env: env, modID: modID},
		Events:      &modEvents{env: env, modID: modID},
		Mods:        &modLookup{env: env},
		Commands:    &modCommands{env: env, modID: modID},
		Translation: &modTranslation{env: env, modID: modID, bundle: bundle},
		Data:        &modData{env: env, modID: modID},
		Multiplayer: &modMessenger{env: env, modID: modID},
		Logger:      env.Logger.With("mod", modID),
	}
}

type modContent struct {
	env   *Env
	modID string
}

func (c *modContent) Load(name string) (interface{}, error) {
	return c.env.Content.Resolve(name)
}

func (c *modContent) ProvideAsset(scope string, exclusive bool, load content.LoadFunc) {
	c.env.Content.RegisterLoader(content.AssetLoader{
		Owner:     c.modID,
		Scope:     scope,
		Exclusive: exclusive,
		Load:      load,
	})
}

func (c *modContent) EditAsset(scope string, edit content.EditFunc) {
	c.env.Content.RegisterEditor(content.AssetEditor{
		Owner: c.modID,
		Scope: scope,
		Edit:  edit,
	})
}

type modEvents struct {
	env   *Env
	modID string
}

func (e *modEvents) Subscribe(kind string, h events.Handler) (cancel func()) {
	return e.env.Events.Subscribe(kind, e.modID, h)
}

type modLookup struct {
	env *Env
}

func (l *modLookup) IsLoaded(modID string) bool {
	m, ok := l.env.Registry.Get(modID)
	return ok && m.Status == registry.StatusActive
}

func (l *modLookup) API(modID string) (interface{}, error) {
	return l.env.Registry.API(modID)
}

type modCommands struct {
	env   *Env
	modID string
}

func (c *modCommands) Register(name, doc string, run func(out io.Writer, args []string) error) error {
	return c.env.Console.Register(console.Command{
		Name:  name,
		Owner: c.modID,
		Doc:   doc,
		Run:   run,
	})
}

type modTranslation struct {
	env    *Env
	modID  string
	bundle *i18n.Bundle
}

func (t *modTranslation) Get(key string) string {
	if t.bundle != nil {
		if v, ok := t.bundle.Get(key, t.env.Content.Locale()); ok {
			return v
		}
	}
	// Visible placeholder beats an empty string in game UI.
	return fmt.Sprintf("(missing translation: %s.%s)", t.modID, key)
}

type modData struct {
	env   *Env
	modID string
}

func (d *modData) WriteGlobal(key string, value interface{}) error {
	return d.env.Global.Write(d.modID, key, value)
}

func (d *modData) ReadGlobal(key string, out interface{}) (bool, error) {
	return d.env.Global.Read(d.modID, key, out)
}

func (d *modData) WriteSave(key string, value interface{}) error {
	return d.env.Save.Write(d.modID, key, value)
}

func (d *modData) ReadSave(key string, out interface{}) (bool, error) {
	return d.env.Save.Read(d.modID, key, out)
}

type modMessenger struct {
	env   *Env
	modID string
}

func (m *modMessenger) Send(kind string, payload interface{}) error {
	if m.env.Messenger == nil {
		m.env.Logger.Debug("multiplayer message dropped; no transport", "mod", m.modID, "kind", kind)
		return nil
	}
	return m.env.Messenger(m.modID, kind, payload)
}
