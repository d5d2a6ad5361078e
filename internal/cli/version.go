package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	versionShort bool
	versionJSON  bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the bare version number")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print build info as JSON")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show loader version and build info",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case versionShort:
			fmt.Println(buildVersion)
		case versionJSON:
			out, err := json.MarshalIndent(map[string]string{
				"version": buildVersion,
				"commit":  buildCommit,
				"date":    buildDate,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling version info: %w", err)
			}
			fmt.Println(string(out))
		default:
			fmt.Printf("%s %s (commit %s, built %s)\n", rootCmd.Use, buildVersion, buildCommit, buildDate)
		}
		return nil
	},
}
