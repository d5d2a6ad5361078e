package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/modhost-labs/modhost/internal/config"
	"github.com/modhost-labs/modhost/internal/host"
	"github.com/modhost-labs/modhost/internal/logging"
	"github.com/modhost-labs/modhost/internal/updater"
)

// minSupportedHost is the oldest host application version this loader can
// attach to.
const minSupportedHost = "1.0.0"

var (
	runModsDir     string
	runHostVersion string
	runNoConsole   bool
)

func init() {
	runCmd.Flags().StringVar(&runModsDir, "mods", "", "Mods directory (overrides config)")
	runCmd.Flags().StringVar(&runHostVersion, "host-version", "1.6.0", "Version of the host application")
	runCmd.Flags().BoolVar(&runNoConsole, "no-console", false, "Load mods, print the summary, and exit")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load all mods and serve the command console",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		logger := logging.Default(config.Get(config.KeyLogLevel))

		modsDir := runModsDir
		if modsDir == "" {
			modsDir = config.Get(config.KeyModsDir)
		}

		// Update checks read a locally maintained feed file; disabling
		// them in config leaves the source nil, which skips the checker.
		var updateSource updater.VersionSource
		if config.GetBool(config.KeyCheckUpdates) {
			updateSource = updater.FileSource(filepath.Join(config.Dir(), "update_feed.yaml"))
		}

		h, err := host.Run(host.Options{
			ModsDir:          modsDir,
			DataDir:          config.Get(config.KeyDataDir),
			Locale:           config.Get(config.KeyLocale),
			AssumeCompatible: config.GetBool(config.KeyAssumeCompatible),
			HostVersion:      runHostVersion,
			MinHostVersion:   minSupportedHost,
			UpdateSource:     updateSource,
			Logger:           logger,
		})
		if err != nil {
			return err
		}
		defer h.Shutdown()

		h.Summary(os.Stdout)
		if runNoConsole {
			return nil
		}

		fmt.Println("\nType 'help' for commands, 'exit' to quit.")
		h.Console.ReadLoop(os.Stdin, os.Stdout)
		return nil
	},
}
