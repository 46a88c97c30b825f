package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/smazurov/vidpipe/internal/config"
	"github.com/smazurov/vidpipe/internal/events"
	"github.com/smazurov/vidpipe/internal/logging"
	"github.com/smazurov/vidpipe/internal/loopback"
	"github.com/smazurov/vidpipe/internal/metrics"
	"github.com/smazurov/vidpipe/internal/source"
	"github.com/smazurov/vidpipe/internal/streamer"
	"github.com/smazurov/vidpipe/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// Exit codes of the pipe command.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitBadConfig = 2
)

// StreamerConfig converts the [pipe] table into a streamer configuration.
func StreamerConfig(p config.PipeSection) (streamer.Config, error) {
	pixfmt, err := v4l2.ParsePixelFormat(p.PixelFormat)
	if err != nil {
		return streamer.Config{}, fmt.Errorf("pixel format: %w", err)
	}
	req := loopback.PixelFormatRequest{Width: p.Width, Height: p.Height, PixelFormat: pixfmt}
	if err := req.Validate(); err != nil {
		return streamer.Config{}, err
	}

	device := p.Device
	if device == "" {
		device = loopback.AutoDevice
	}

	return streamer.Config{
		Device:  device,
		Request: req,
		FPS:     p.FPS,
		Source: source.Config{
			Kind:  p.Source,
			Input: p.Input,
			Loop:  p.Loop,
		},
		WaitForDevice:  p.WaitForDevice,
		MaxWriteErrors: p.MaxWriteErrors,
	}, nil
}

// NewLocator builds a locator with the configured signatures, or the
// default ones when none are set.
func NewLocator(lb config.LoopbackSection) *loopback.Locator {
	var opts []loopback.LocatorOption
	if len(lb.Signatures) > 0 {
		opts = append(opts, loopback.WithSignatures(lb.Signatures...))
	}
	return loopback.NewLocator(opts...)
}

// CreatePipeCmd creates the pipe command.
func CreatePipeCmd() *cobra.Command {
	var configFile string
	var deviceOverride string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Run the frame pipe without the HTTP server",
		Long: `Negotiates the configured format on a loopback device and writes frames to it until ` +
			`the source is exhausted or the process is signaled. Geometry changes in the config file ` +
			`renegotiate the device without restarting the process.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			os.Exit(runPipe(configFile, deviceOverride, logJSON))
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "config.toml", "Path to configuration file")
	cmd.Flags().StringVar(&deviceOverride, "device", "", "Loopback device node, or - to locate one")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

func runPipe(configFile, deviceOverride string, logJSON bool) int {
	loggingConfig := config.LoadLoggingConfig(configFile)
	if logJSON {
		loggingConfig.Format = "json"
	}
	logging.Initialize(loggingConfig)
	logger := logging.GetLogger("pipe")

	logger.Info("Starting pipe command", "config", configFile)

	pipeConfig, err := config.LoadPipeConfig(configFile)
	if err != nil {
		logger.Error("Failed to load pipe configuration", "error", err, "config", configFile)
		return ExitBadConfig
	}
	if deviceOverride != "" {
		pipeConfig.Pipe.Device = deviceOverride
	}

	cfg, err := StreamerConfig(pipeConfig.Pipe)
	if err != nil {
		logger.Error("Invalid pipe configuration", "error", err)
		return ExitBadConfig
	}

	bus := events.New()
	defer metrics.Subscribe(bus)()

	negotiator := loopback.NewNegotiator(NewLocator(pipeConfig.Loopback))
	s := streamer.New(cfg, streamer.FromNegotiator(negotiator), streamer.WithPublisher(bus))

	watcher := config.NewConfigWatcher(configFile, config.LoadPipeConfig, logger)
	watcher.OnReload(func(fresh config.PipeConfig) {
		next, err := StreamerConfig(fresh.Pipe)
		if err != nil {
			logger.Warn("Ignoring reloaded configuration", "error", err)
			return
		}
		if err := s.Restart(next.Request); err != nil {
			logger.Warn("Failed to request renegotiation", "error", err)
			return
		}
		logger.Debug("Config reloaded", "format", next.Request.String())
	})

	if err := watcher.Start(); err != nil {
		logger.Warn("Failed to start config watcher, hot-reload disabled", "error", err)
	} else {
		defer func() { _ = watcher.Stop() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = s.Run(ctx)
	st := s.Status()
	logger.Info("Pipe command exiting",
		"frames", st.Frames,
		"bytes", st.Bytes,
		"dropped", st.Dropped,
		"error", err)

	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, loopback.ErrInvalidRequest):
		return ExitBadConfig
	default:
		return ExitFailure
	}
}
