package cmd

import (
	"fmt"

	"github.com/smazurov/vidpipe/internal/version"
	"github.com/spf13/cobra"
)

// VersionCmd prints build information.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), version.Get().Long())
	},
}
