package cli

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/modhost-labs/modhost/internal/config"
	"github.com/modhost-labs/modhost/internal/host"
	"github.com/modhost-labs/modhost/internal/resolve"
)

var listHostVersion string

func init() {
	listCmd.Flags().StringVar(&listHostVersion, "host-version", "1.6.0", "Version of the host application")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Discover and resolve mods without activating them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}

		hostVersion, err := semver.NewVersion(strings.TrimPrefix(listHostVersion, "v"))
		if err != nil {
			return fmt.Errorf("parsing host version %q: %w", listHostVersion, err)
		}

		discovered, err := host.Discover(config.Get(config.KeyModsDir))
		if err != nil {
			return err
		}
		ordered := resolve.Resolve(discovered, hostVersion)

		for i, m := range ordered {
			line := fmt.Sprintf("%2d. %s", i+1, m.ID())
			if m.Manifest != nil {
				line += " " + m.Manifest.Version
			}
			line += " [" + m.Status.String() + "]"
			if m.Failed() {
				line += " " + m.UserReason
			}
			fmt.Println(line)
		}
		return nil
	},
}
