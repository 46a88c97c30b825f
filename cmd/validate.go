package cmd

import (
	"fmt"
	"io"

	"github.com/smazurov/vidpipe/internal/config"
	"github.com/spf13/cobra"
)

// ValidateConfigCmd checks a configuration file without touching devices.
var ValidateConfigCmd = &cobra.Command{
	Use:   "validate-config [file]",
	Short: "Check a configuration file",
	Long:  `Parses the [pipe] and [loopback] tables and prints the format the pipe would request. No device is opened.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("config")
		if len(args) == 1 {
			path = args[0]
		}
		exitOnError(validateConfig(cmd.OutOrStdout(), path))
	},
}

func validateConfig(w io.Writer, path string) error {
	pc, err := config.LoadPipeConfig(path)
	if err != nil {
		return err
	}
	cfg, err := StreamerConfig(pc.Pipe)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: ok\n", path)
	fmt.Fprintf(w, "\tdevice  = %s\n", cfg.Device)
	fmt.Fprintf(w, "\tformat  = %s (%d bytes/frame)\n", cfg.Request, cfg.Request.FrameSize())
	fmt.Fprintf(w, "\tfps     = %g\n", cfg.FPS)
	fmt.Fprintf(w, "\tsource  = %s\n", sourceLabel(cfg.Source.Kind, cfg.Source.Input))
	if len(pc.Loopback.Signatures) > 0 {
		fmt.Fprintf(w, "\tsignatures = %q\n", pc.Loopback.Signatures)
	}
	return nil
}

func sourceLabel(kind, input string) string {
	if input == "" {
		return kind
	}
	return kind + ":" + input
}

func init() {
	ValidateConfigCmd.Flags().String("config", "config.toml", "Configuration file to check")
}
