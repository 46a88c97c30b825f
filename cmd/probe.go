package cmd

import (
	"fmt"
	"io"

	"github.com/smazurov/vidpipe/internal/config"
	"github.com/smazurov/vidpipe/internal/loopback"
	"github.com/spf13/cobra"
)

// DeviceProber reads a device's capabilities. *loopback.Negotiator
// satisfies it.
type DeviceProber interface {
	Probe(devicePath string) (*loopback.ProbeResult, error)
}

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var signatures []string

	cmd := &cobra.Command{
		Use:   "probe [device]",
		Short: "Print a device's capabilities and current output format",
		Long:  `Opens the device, or the first loopback device when none is given, and prints what the driver reports. The format is left unchanged.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := loopback.AutoDevice
			if len(args) == 1 {
				path = args[0]
			}
			negotiator := loopback.NewNegotiator(NewLocator(config.LoopbackSection{Signatures: signatures}))
			return probeDevice(cmd.OutOrStdout(), negotiator, path)
		},
	}

	cmd.Flags().StringSliceVar(&signatures, "signature", nil, "Loopback signature to match (repeatable)")
	return cmd
}

func probeDevice(w io.Writer, prober DeviceProber, path string) error {
	res, err := prober.Probe(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Device %s", res.Path)
	if res.Match != nil {
		fmt.Fprintf(w, " (%s, minor %d)", res.Match.Identity, res.Match.Minor)
	}
	fmt.Fprintln(w)

	if err := res.Capability.WriteText(w); err != nil {
		return err
	}
	return loopback.WriteFormat(w, "Current Format", res.Format)
}
