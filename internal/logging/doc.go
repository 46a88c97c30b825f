// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Logs to both when both are available
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, notice, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"video": "debug",  // Per-module overrides
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("video")
//	logger.Info("Negotiating format", "width", 640)
//	logging.Notice(logger, "Opened device", "path", "/dev/video10")
//	logger.Error("ioctl failed", "ioctl", "VIDIOC_S_FMT", "error", err)
//
// # Log Levels
//
//	debug  - Verbose debugging information
//	info   - General operational messages
//	notice - Normal but significant events (device selected, pipe started)
//	warn   - Warning conditions
//	error  - Error conditions
//
// # Viewing Logs
//
// When running as a systemd service or on a system with journald:
//
//	journalctl -t vidpipe              # All vidpipe logs
//	journalctl -t vidpipe -p notice    # Device selection and above
//	journalctl -t vidpipe MODULE=video # Device discovery and negotiation
//
// # Configuration
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	video = "debug"
package logging
