// Package cli wires the cobra command tree for the modhost binary.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/modhost-labs/modhost/internal/branding"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` discovers, validates, and loads mod packages for the host
game, resolving dependencies into a safe load order and isolating each
mod's failures from the rest.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}
