package host

import (
	"fmt"
	"io"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/modhost-labs/modhost/internal/activate"
	"github.com/modhost-labs/modhost/internal/console"
	"github.com/modhost-labs/modhost/internal/content"
	"github.com/modhost-labs/modhost/internal/events"
	"github.com/modhost-labs/modhost/internal/loader"
	"github.com/modhost-labs/modhost/internal/registry"
	"github.com/modhost-labs/modhost/internal/resolve"
	"github.com/modhost-labs/modhost/internal/storage"
	"github.com/modhost-labs/modhost/internal/updater"
)

// Options configure one pipeline run.
type Options struct {
	ModsDir          string
	DataDir          string
	Locale           string
	AssumeCompatible bool

	// HostVersion is the running host application's version.
	HostVersion string
	// MinHostVersion is the loader's own floor; a host below it aborts
	// startup before any mod loads.
	MinHostVersion string

	// BaseAssets is the host's own asset store; nil means mods must
	// supply every asset.
	BaseAssets content.BaseSource
	// Messenger carries multiplayer messages; nil drops them.
	Messenger activate.MessengerTransport
	// UpdateSource polls for newer mod versions; nil disables checks.
	UpdateSource updater.VersionSource

	Logger *log.Logger
}

// Host is the assembled runtime after a load pass.
type Host struct {
	Logger    *log.Logger
	Registry  *registry.Registry
	Events    *events.Manager
	Content   *content.Coordinator
	Console   *console.Console
	Global    *storage.GlobalStore
	Save      *storage.SaveStore
	Checker   *updater.Checker // nil when update checks are disabled
	activator *activate.Activator
	mods      []*registry.ModMetadata // resolved order
}

// Run executes the whole load pipeline. The only error returns are fatal
// startup conditions (unsupported host version, unreadable mods
// directory); every per-mod problem is recorded on that mod instead.
func Run(opts Options) (*Host, error) {
	logger := opts.Logger

	hostVersion, err := semver.NewVersion(strings.TrimPrefix(opts.HostVersion, "v"))
	if err != nil {
		return nil, fmt.Errorf("fatal: host version %q is not a semantic version: %w", opts.HostVersion, err)
	}
	if opts.MinHostVersion != "" {
		min, err := semver.NewVersion(strings.TrimPrefix(opts.MinHostVersion, "v"))
		if err != nil {
			return nil, fmt.Errorf("fatal: minimum host version %q is not a semantic version: %w", opts.MinHostVersion, err)
		}
		if hostVersion.LessThan(min) {
			return nil, fmt.Errorf("fatal: host version %s is below the supported minimum %s", hostVersion, min)
		}
	}

	discovered, err := Discover(opts.ModsDir)
	if err != nil {
		return nil, fmt.Errorf("fatal: %w", err)
	}
	logger.Info("discovered mod packages", "count", len(discovered))

	ordered := resolve.Resolve(discovered, hostVersion)

	env := &activate.Env{
		Logger:    logger,
		Registry:  registry.New(),
		Events:    events.New(logger),
		Content:   content.NewCoordinator(logger, opts.Locale, opts.BaseAssets),
		Console:   console.New(logger),
		Global:    storage.NewGlobalStore(opts.DataDir),
		Save:      storage.NewSaveStore(),
		Messenger: opts.Messenger,
	}

	ld, err := loader.New(logger, opts.AssumeCompatible)
	if err != nil {
		return nil, fmt.Errorf("fatal: %w", err)
	}

	activator := activate.NewActivator(env, ld)
	activator.ActivateAll(ordered)

	h := &Host{
		Logger:    logger,
		Registry:  env.Registry,
		Events:    env.Events,
		Content:   env.Content,
		Console:   env.Console,
		Global:    env.Global,
		Save:      env.Save,
		activator: activator,
		mods:      ordered,
	}
	h.registerBuiltins()

	if opts.UpdateSource != nil {
		h.Checker = updater.New(logger, opts.UpdateSource)
		h.Checker.Start(ordered)
	}
	return h, nil
}

// registerBuiltins adds the host-owned console commands.
func (h *Host) registerBuiltins() {
	_ = h.Console.Register(console.Command{
		Name:  "reload_i18n",
		Owner: console.HostOwner,
		Doc:   "Reloads every mod's translation files",
		Run: func(out io.Writer, _ []string) error {
			failed := h.activator.ReloadTranslations()
			if len(failed) > 0 {
				fmt.Fprintf(out, "Reloaded translations; failed for: %s\n", strings.Join(failed, ", "))
				return nil
			}
			fmt.Fprintln(out, "Reloaded translations.")
			return nil
		},
	})
	_ = h.Console.Register(console.Command{
		Name:  "update_status",
		Owner: console.HostOwner,
		Doc:   "Shows mod update check results",
		Run: func(out io.Writer, _ []string) error {
			if h.Checker == nil {
				fmt.Fprintln(out, "Update checks are disabled.")
				return nil
			}
			h.Checker.Wait()
			for _, r := range h.Checker.Results() {
				switch {
				case r.Err != nil:
					fmt.Fprintf(out, "%s: check failed (%v)\n", r.ModID, r.Err)
				case r.UpdateAvailable:
					fmt.Fprintf(out, "%s: %s -> %s\n", r.ModID, r.Current, r.Latest)
				default:
					fmt.Fprintf(out, "%s: up to date (%s)\n", r.ModID, r.Current)
				}
			}
			return nil
		},
	})
}

// Summary writes the end-of-load report: loaded counts, skipped mods with
// reasons, and warning groups with blurbs. Operators should not need raw
// logs to act on it.
func (h *Host) Summary(w io.Writer) {
	var loaded, skipped int
	for _, m := range h.mods {
		if m.Status == registry.StatusActive {
			loaded++
		} else {
			skipped++
		}
	}
	fmt.Fprintf(w, "Loaded %d mods (%d skipped).\n", loaded, skipped)

	if skipped > 0 {
		fmt.Fprintln(w, "\nSkipped mods:")
		for _, m := range h.mods {
			if m.Status == registry.StatusActive {
				continue
			}
			fmt.Fprintf(w, "  - %s because %s\n", m.ID(), m.UserReason)
			if m.DevReason != "" {
				fmt.Fprintf(w, "    (%s)\n", m.DevReason)
			}
		}
	}

	groups := make(map[registry.Warning][]string)
	for _, m := range h.mods {
		for _, warn := range m.Warnings {
			groups[warn] = append(groups[warn], m.ID())
		}
	}
	if len(groups) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, kind := range []registry.Warning{
			registry.WarnPatchesHost,
			registry.WarnBypassesSafety,
			registry.WarnNonPortable,
			registry.WarnOptionalDepFailed,
			registry.WarnNoUpdateKeys,
			registry.WarnHiddenAPI,
		} {
			ids, ok := groups[kind]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  %s\n    %s\n", kind.Blurb(), strings.Join(ids, ", "))
		}
	}
}

// Shutdown disposes every active mod in registration order. Disposal
// errors are logged and swallowed; shutdown always completes.
func (h *Host) Shutdown() {
	for _, m := range h.Registry.Active() {
		d, ok := m.Instance.(registry.Disposer)
		if !ok {
			continue
		}
		if err := d.Dispose(); err != nil {
			h.Logger.Warn("mod disposal failed", "mod", m.ID(), "error", err)
		}
	}
}
