package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/vidpipe/cmd"
	"github.com/smazurov/vidpipe/internal/api"
	"github.com/smazurov/vidpipe/internal/config"
	"github.com/smazurov/vidpipe/internal/events"
	"github.com/smazurov/vidpipe/internal/logging"
	"github.com/smazurov/vidpipe/internal/loopback"
	"github.com/smazurov/vidpipe/internal/metrics"
	"github.com/smazurov/vidpipe/internal/metrics/exporters"
	"github.com/smazurov/vidpipe/internal/streamer"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Addr string `help:"Address to listen on" short:"p" default:":8090" toml:"server.addr" env:"SERVER_ADDR"`

	// Pipe settings
	Device         string  `help:"Loopback device node, or - to locate one" short:"d" default:"-" toml:"pipe.device" env:"PIPE_DEVICE"`
	Width          int     `help:"Frame width" default:"640" toml:"pipe.width" env:"PIPE_WIDTH"`
	Height         int     `help:"Frame height" default:"480" toml:"pipe.height" env:"PIPE_HEIGHT"`
	PixelFormat    string  `help:"Pixel format name or FourCC" default:"YU12" toml:"pipe.pixel_format" env:"PIPE_PIXEL_FORMAT"`
	FPS            int     `help:"Frames per second" default:"30" toml:"pipe.fps" env:"PIPE_FPS"`
	Source         string  `help:"Frame source (pattern, file, stdin)" default:"pattern" toml:"pipe.source" env:"PIPE_SOURCE"`
	Input          string  `help:"Raw frame file for the file source" toml:"pipe.input" env:"PIPE_INPUT"`
	Loop           bool    `help:"Rewind the file source at EOF" default:"false" toml:"pipe.loop" env:"PIPE_LOOP"`
	WaitForDevice  bool    `help:"Wait for a loopback device to appear" default:"false" toml:"pipe.wait_for_device" env:"PIPE_WAIT_FOR_DEVICE"`
	MaxWriteErrors int     `help:"Consecutive write errors before giving up, 0 for never" default:"30" toml:"pipe.max_write_errors" env:"PIPE_MAX_WRITE_ERRORS"`

	// Loopback settings
	Signatures string `help:"Comma-separated device name prefixes that identify loopback devices" toml:"loopback.signatures" env:"LOOPBACK_SIGNATURES"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Observability settings
	PrometheusEnabled bool `help:"Expose /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	StatsEnabled      bool `help:"Publish pipe stats over SSE" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`
}

func (o *Options) pipeConfig() config.PipeConfig {
	return config.PipeConfig{
		Pipe: config.PipeSection{
			Device:         o.Device,
			Width:          o.Width,
			Height:         o.Height,
			PixelFormat:    o.PixelFormat,
			FPS:            float64(o.FPS),
			Source:         o.Source,
			Input:          o.Input,
			Loop:           o.Loop,
			WaitForDevice:  o.WaitForDevice,
			MaxWriteErrors: o.MaxWriteErrors,
		},
		Loopback: config.LoopbackSection{Signatures: splitList(o.Signatures)},
	}
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(config.LoadLoggingConfig(opts.Config))
		logger := logging.GetLogger("main")

		// Subcommands parse the same options; a bad pipe section only
		// matters once the server starts.
		pipeConfig := opts.pipeConfig()
		streamerConfig, configErr := cmd.StreamerConfig(pipeConfig.Pipe)
		if configErr == nil {
			configErr = pipeConfig.Validate()
		}

		// Create event bus for in-process event handling
		eventBus := events.New()
		unsubscribeMetrics := metrics.Subscribe(eventBus)

		var statsExporter *exporters.StatsExporter
		if opts.StatsEnabled {
			statsExporter = exporters.NewStatsExporter(eventBus)
		}

		locator := cmd.NewLocator(pipeConfig.Loopback)
		negotiator := loopback.NewNegotiator(locator)
		pipe := streamer.New(streamerConfig, streamer.FromNegotiator(negotiator), streamer.WithPublisher(eventBus))

		// Geometry edits in the config file renegotiate the running pipe
		watcher := config.NewConfigWatcher(opts.Config, config.LoadPipeConfig, logger)
		watcher.OnReload(func(fresh config.PipeConfig) {
			next, reloadErr := cmd.StreamerConfig(fresh.Pipe)
			if reloadErr != nil {
				logger.Warn("Ignoring reloaded configuration", "error", reloadErr)
				return
			}
			if restartErr := pipe.Restart(next.Request); restartErr != nil {
				logger.Warn("Failed to request renegotiation", "error", restartErr)
			}
		})

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Pipe:         pipe,
			Devices:      locator,
			Prober:       negotiator,
			EventBus:     eventBus,
		}
		if opts.PrometheusEnabled {
			apiOpts.PrometheusHandler = metrics.Handler()
		}
		server := api.NewServer(apiOpts)

		ctx, cancel := context.WithCancel(context.Background())
		pipeDone := make(chan struct{})

		hooks.OnStart(func() {
			if configErr != nil {
				logger.Error("Invalid pipe configuration", "error", configErr)
				os.Exit(cmd.ExitBadConfig)
			}

			if statsExporter != nil {
				statsExporter.Start(ctx)
			}

			if startErr := watcher.Start(); startErr != nil {
				logger.Warn("Failed to start config watcher, hot-reload disabled", "error", startErr)
			}

			go func() {
				defer close(pipeDone)
				if runErr := pipe.Run(ctx); runErr != nil {
					logger.Error("Pipe stopped", "error", runErr)
				}
			}()

			logger.Info("Starting HTTP server", "addr", opts.Addr)
			if startErr := server.Start(opts.Addr); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(cmd.ExitFailure)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Stop the pipe after the API stops accepting format changes
			cancel()
			<-pipeDone

			_ = watcher.Stop()
			if statsExporter != nil {
				statsExporter.Stop()
			}
			unsubscribeMetrics()
		})
	})

	cli.Root().Use = "vidpipe"
	cli.Root().AddCommand(cmd.CreatePipeCmd())
	cli.Root().AddCommand(cmd.CreateDevicesCmd())
	cli.Root().AddCommand(cmd.CreateProbeCmd())
	cli.Root().AddCommand(cmd.ValidateConfigCmd)
	cli.Root().AddCommand(cmd.VersionCmd)

	// Run the CLI
	cli.Run()
}
