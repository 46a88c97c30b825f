package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/vidpipe/pkg/linuxav/v4l2"
)

// Pipe defaults.
const (
	DefaultWidth          = 640
	DefaultHeight         = 480
	DefaultPixelFormat    = "YU12"
	DefaultFPS            = 30
	DefaultSource         = "pattern"
	DefaultMaxWriteErrors = 30
)

// PipeConfig is the reloadable part of the configuration file.
type PipeConfig struct {
	Pipe     PipeSection     `toml:"pipe"`
	Loopback LoopbackSection `toml:"loopback"`
}

// PipeSection is the [pipe] table.
type PipeSection struct {
	Device         string  `toml:"device"`
	Width          int     `toml:"width"`
	Height         int     `toml:"height"`
	PixelFormat    string  `toml:"pixel_format"`
	FPS            float64 `toml:"fps"`
	Source         string  `toml:"source"`
	Input          string  `toml:"input"`
	Loop           bool    `toml:"loop"`
	WaitForDevice  bool    `toml:"wait_for_device"`
	MaxWriteErrors int     `toml:"max_write_errors"`
}

// LoopbackSection is the [loopback] table.
type LoopbackSection struct {
	Signatures []string `toml:"signatures"`
}

// DefaultPipeConfig returns the configuration used for absent keys.
func DefaultPipeConfig() PipeConfig {
	return PipeConfig{
		Pipe: PipeSection{
			Width:          DefaultWidth,
			Height:         DefaultHeight,
			PixelFormat:    DefaultPixelFormat,
			FPS:            DefaultFPS,
			Source:         DefaultSource,
			MaxWriteErrors: DefaultMaxWriteErrors,
		},
	}
}

// LoadPipeConfig reads the [pipe] and [loopback] tables of a TOML file on
// top of DefaultPipeConfig. It is the loader handed to the config watcher.
func LoadPipeConfig(path string) (PipeConfig, error) {
	cfg := DefaultPipeConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects geometry the pipe cannot negotiate.
func (c PipeConfig) Validate() error {
	p := c.Pipe
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("invalid geometry %dx%d", p.Width, p.Height)
	}
	if _, err := v4l2.ParsePixelFormat(p.PixelFormat); err != nil {
		return fmt.Errorf("pixel format: %w", err)
	}
	if p.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %v", p.FPS)
	}
	if p.MaxWriteErrors < 0 {
		return fmt.Errorf("max_write_errors must not be negative, got %d", p.MaxWriteErrors)
	}
	return nil
}
