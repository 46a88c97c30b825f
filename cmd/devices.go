package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/smazurov/vidpipe/internal/config"
	"github.com/smazurov/vidpipe/internal/loopback"
	"github.com/spf13/cobra"
)

// DeviceScanner lists loopback devices. *loopback.Locator satisfies it.
type DeviceScanner interface {
	Scan() ([]loopback.Match, error)
}

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var signatures []string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List v4l2loopback devices",
		Long:  `Scans the video4linux registry and prints every device whose name carries a loopback signature, in the order auto-detection would try them.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			locator := NewLocator(config.LoopbackSection{Signatures: signatures})
			return listDevices(cmd.OutOrStdout(), locator)
		},
	}

	cmd.Flags().StringSliceVar(&signatures, "signature", nil, "Loopback signature to match (repeatable)")
	return cmd
}

func listDevices(w io.Writer, scanner DeviceScanner) error {
	matches, err := scanner.Scan()
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(w, "No loopback devices found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tMINOR\tNAME")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", m.DevicePath, m.Minor, m.Identity)
	}
	return tw.Flush()
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(ExitFailure)
	}
}
