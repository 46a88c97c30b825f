// Package streamer drives a negotiated loopback pipe: it pulls frames from
// a source at a fixed rate and writes each one to the device.
package streamer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"
	"github.com/smazurov/vidpipe/internal/events"
	"github.com/smazurov/vidpipe/internal/logging"
	"github.com/smazurov/vidpipe/internal/loopback"
	"github.com/smazurov/vidpipe/internal/metrics"
	"github.com/smazurov/vidpipe/internal/source"
	"github.com/smazurov/vidpipe/pkg/linuxav/hotplug"
	"github.com/smazurov/vidpipe/pkg/linuxav/v4l2"
)

// ErrTooManyWriteErrors aborts a session after Config.MaxWriteErrors
// consecutive failed writes.
var ErrTooManyWriteErrors = errors.New("too many consecutive write errors")

// DefaultRescanInterval bounds how long wait mode trusts the uevent socket
// before scanning the registry again. A node can appear before udev has
// made it writable, and that add event is not repeated.
const DefaultRescanInterval = 5 * time.Second

// Stop reasons carried by PipeStoppedEvent.
const (
	ReasonExhausted   = "source exhausted"
	ReasonCanceled    = "canceled"
	ReasonRestart     = "restart"
	ReasonSourceError = "source error"
	ReasonWriteErrors = "write errors"
)

// Output is a negotiated device that accepts whole frames.
// *loopback.Pipe satisfies it.
type Output interface {
	Path() string
	Match() *loopback.Match
	Format() v4l2.PixFormat
	Put(frame []byte) (int, error)
	Close() error
}

// StartFunc opens and negotiates devicePath for req.
type StartFunc func(devicePath string, req loopback.PixelFormatRequest) (Output, error)

// FromNegotiator adapts a Negotiator to a StartFunc.
func FromNegotiator(n *loopback.Negotiator) StartFunc {
	return func(devicePath string, req loopback.PixelFormatRequest) (Output, error) {
		p, err := n.Start(devicePath, req)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// DeviceWaiter blocks until a matching uevent arrives. *hotplug.Monitor
// satisfies it.
type DeviceWaiter interface {
	WaitFor(ctx context.Context, match func(hotplug.Event) bool) (hotplug.Event, error)
	Close() error
}

// Publisher receives lifecycle events. *events.Bus satisfies it.
type Publisher interface {
	Publish(ev events.Event)
}

// Config describes one pipe.
type Config struct {
	Device         string // loopback.AutoDevice or a node path
	Request        loopback.PixelFormatRequest
	FPS            float64
	Source         source.Config // Width and Height are taken from Request
	WaitForDevice  bool
	MaxWriteErrors int // 0 never aborts
}

// Streamer owns at most one open Output at a time.
type Streamer struct {
	start      StartFunc
	openSource func(source.Config) (source.Source, error)
	newWaiter  func() (DeviceWaiter, error)
	rescan     time.Duration
	publisher  Publisher
	notify     func(state string)
	newID      func() string
	logger     *slog.Logger

	mu      sync.RWMutex
	cfg     Config
	status  Status
	restart chan struct{}
}

// Option configures a Streamer.
type Option func(*Streamer)

// WithPublisher sets where lifecycle events go.
func WithPublisher(p Publisher) Option {
	return func(s *Streamer) { s.publisher = p }
}

// WithSourceOpener replaces source.Open.
func WithSourceOpener(open func(source.Config) (source.Source, error)) Option {
	return func(s *Streamer) { s.openSource = open }
}

// WithDeviceWaiter replaces the netlink monitor used in wait mode.
func WithDeviceWaiter(newWaiter func() (DeviceWaiter, error)) Option {
	return func(s *Streamer) { s.newWaiter = newWaiter }
}

// WithRescanInterval overrides DefaultRescanInterval.
func WithRescanInterval(d time.Duration) Option {
	return func(s *Streamer) { s.rescan = d }
}

// WithNotifier replaces sd_notify.
func WithNotifier(notify func(state string)) Option {
	return func(s *Streamer) { s.notify = notify }
}

// WithLogger replaces the "streamer" module logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Streamer) { s.logger = logger }
}

// WithSessionIDs replaces uuid session identifiers.
func WithSessionIDs(newID func() string) Option {
	return func(s *Streamer) { s.newID = newID }
}

// New creates a Streamer. Run starts it.
func New(cfg Config, start StartFunc, opts ...Option) *Streamer {
	s := &Streamer{
		start:      start,
		openSource: source.Open,
		newWaiter: func() (DeviceWaiter, error) {
			m, err := hotplug.NewMonitor(hotplug.SubsystemVideo4Linux)
			if err != nil {
				return nil, err
			}
			return m, nil
		},
		rescan:    DefaultRescanInterval,
		publisher: nopPublisher{},
		notify: func(state string) {
			_, _ = daemon.SdNotify(false, state)
		},
		newID:   uuid.NewString,
		logger:  logging.GetLogger("streamer"),
		cfg:     cfg,
		status:  Status{State: StateIdle},
		restart: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the configuration the next session will use.
func (s *Streamer) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Restart replaces the requested geometry and renegotiates. When no
// session is streaming the request is used by the next one.
func (s *Streamer) Restart(req loopback.PixelFormatRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("restart: %w", err)
	}

	s.mu.Lock()
	unchanged := s.cfg.Request == req
	s.cfg.Request = req
	s.mu.Unlock()

	if unchanged {
		return nil
	}
	s.logger.Info("Renegotiation requested", "format", req.String())
	select {
	case s.restart <- struct{}{}:
	default:
	}
	return nil
}

// Run streams until ctx is done, the source is exhausted, or the session
// fails. It returns nil on cancellation and exhaustion.
func (s *Streamer) Run(ctx context.Context) error {
	defer s.notify(daemon.SdNotifyStopping)

	ready := false
	for {
		out, cfg, err := s.open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateStopped, "")
				return nil
			}
			s.setState(StateFailed, err.Error())
			return err
		}

		src, err := s.openSource(sourceConfig(cfg))
		if err != nil {
			_ = out.Close()
			s.setState(StateFailed, err.Error())
			return fmt.Errorf("open source: %w", err)
		}

		session := s.begin(out)
		if !ready {
			s.notify(daemon.SdNotifyReady)
			ready = true
		}
		s.notify("STATUS=Streaming to " + out.Path())

		reason, err := s.stream(ctx, cfg, session, out, src)

		_ = src.Close()
		if closeErr := out.Close(); closeErr != nil {
			s.logger.Warn("Closing device failed", "path", out.Path(), "error", closeErr)
		}
		s.end(session, reason, err)

		if reason == ReasonRestart {
			continue
		}
		return err
	}
}

// open starts a pipe, waiting for hotplug events when configured to.
// The returned Config is the one the pipe was negotiated with.
func (s *Streamer) open(ctx context.Context) (Output, Config, error) {
	var (
		waiter    DeviceWaiter
		waiterErr error
	)
	defer func() {
		if waiter != nil {
			_ = waiter.Close()
		}
	}()

	for {
		select {
		case <-s.restart:
		default:
		}
		cfg := s.Config()

		// The socket is bound before the scan so an add landing between a
		// failed scan and the wait stays queued.
		if waiter == nil && waiterErr == nil && waitsForDevice(cfg) {
			waiter, waiterErr = s.newWaiter()
		}

		s.setState(StateNegotiating, "")
		out, err := s.start(cfg.Device, cfg.Request)
		metrics.Negotiation(negotiationResult(err))
		if err == nil {
			return out, cfg, nil
		}

		if !waitsForDevice(cfg) || !errors.Is(err, loopback.ErrNoMatch) {
			return nil, cfg, err
		}
		if waiterErr != nil {
			return nil, cfg, fmt.Errorf("hotplug monitor: %w", waiterErr)
		}

		s.logger.Info("No loopback device yet, waiting for hotplug", "error", err)
		s.setState(StateWaiting, err.Error())
		if err := s.waitForDevice(ctx, waiter); err != nil {
			return nil, cfg, err
		}
	}
}

func waitsForDevice(cfg Config) bool {
	return cfg.WaitForDevice && cfg.Device == loopback.AutoDevice
}

// waitForDevice returns after a video4linux add event or once the rescan
// interval passes, whichever comes first.
func (s *Streamer) waitForDevice(ctx context.Context, waiter DeviceWaiter) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.rescan)
	defer cancel()

	ev, err := waiter.WaitFor(waitCtx, func(ev hotplug.Event) bool {
		return ev.Subsystem == hotplug.SubsystemVideo4Linux && ev.Action == hotplug.ActionAdd
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Debug("No hotplug event, rescanning", "interval", s.rescan)
			return nil
		}
		return err
	}

	s.logger.Info("Video device added", "device", ev.DeviceNode())
	s.publisher.Publish(events.DeviceHotplugEvent{
		Action:     ev.Action,
		DeviceName: ev.DevName,
		DevicePath: ev.DeviceNode(),
		Timestamp:  timestamp(),
	})
	return nil
}

type session struct {
	id     string
	path   string
	frames uint64
	bytes  uint64
	drops  uint64
}

func (s *Streamer) begin(out Output) *session {
	sess := &session{id: s.newID(), path: out.Path()}
	f := out.Format()

	minor := 0
	if m := out.Match(); m != nil {
		minor = m.Minor
	}

	s.mu.Lock()
	s.status = Status{
		State:       StateStreaming,
		SessionID:   sess.id,
		DevicePath:  sess.path,
		Minor:       minor,
		Width:       f.Width,
		Height:      f.Height,
		PixelFormat: v4l2.FormatFourCC(f.PixelFormat),
		SizeImage:   f.SizeImage,
		StartedAt:   time.Now(),
	}
	s.mu.Unlock()

	logging.Notice(s.logger, "Pipe started", "session", sess.id, "path", sess.path, "sizeimage", f.SizeImage)
	s.publisher.Publish(events.PipeStartedEvent{
		SessionID:   sess.id,
		DevicePath:  sess.path,
		Minor:       minor,
		Width:       f.Width,
		Height:      f.Height,
		PixelFormat: v4l2.FormatFourCC(f.PixelFormat),
		SizeImage:   f.SizeImage,
		Timestamp:   timestamp(),
	})
	return sess
}

func (s *Streamer) end(sess *session, reason string, err error) {
	var msg string
	if err != nil {
		msg = err.Error()
	}

	s.mu.Lock()
	if err != nil {
		s.status.State = StateFailed
	} else {
		s.status.State = StateStopped
	}
	s.status.LastError = msg
	s.mu.Unlock()

	s.logger.Info("Pipe stopped",
		"session", sess.id,
		"reason", reason,
		"frames", sess.frames,
		"dropped", sess.drops,
		"error", msg)
	s.publisher.Publish(events.PipeStoppedEvent{
		SessionID:  sess.id,
		DevicePath: sess.path,
		Reason:     reason,
		Error:      msg,
		Frames:     sess.frames,
		Bytes:      sess.bytes,
		Dropped:    sess.drops,
		Timestamp:  timestamp(),
	})
}

// stream is the frame loop of one session.
func (s *Streamer) stream(ctx context.Context, cfg Config, sess *session, out Output, src source.Source) (string, error) {
	frame := make([]byte, src.FrameSize())
	if want := out.Format().SizeImage; want != 0 && int(want) != len(frame) {
		s.logger.Warn("Frame size differs from negotiated sizeimage", "frame", len(frame), "sizeimage", want)
	}

	ticker := time.NewTicker(frameInterval(cfg.FPS))
	defer ticker.Stop()

	var seq uint64
	consecutive := 0
	for {
		select {
		case <-ctx.Done():
			return ReasonCanceled, nil
		case <-s.restart:
			return ReasonRestart, nil
		case <-ticker.C:
		}

		if err := src.ReadFrame(frame); err != nil {
			if errors.Is(err, io.EOF) {
				return ReasonExhausted, nil
			}
			return ReasonSourceError, fmt.Errorf("read frame: %w", err)
		}
		seq++

		n, err := out.Put(frame)
		if err == nil {
			consecutive = 0
			s.recordWrite(sess, n)
			metrics.FrameWritten(sess.path, n)
			continue
		}

		reason := events.DropWriteError
		if errors.Is(err, loopback.ErrShortWrite) {
			reason = events.DropShortWrite
			consecutive = 0
		} else {
			consecutive++
		}
		s.recordDrop(sess, n)
		s.logger.Debug("Frame dropped", "sequence", seq, "reason", reason, "written", n, "error", err)
		s.publisher.Publish(events.FrameDroppedEvent{
			SessionID:  sess.id,
			DevicePath: sess.path,
			Sequence:   seq,
			Reason:     reason,
			Written:    n,
			Expected:   len(frame),
			Error:      err.Error(),
			Timestamp:  timestamp(),
		})

		if cfg.MaxWriteErrors > 0 && consecutive >= cfg.MaxWriteErrors {
			s.logger.Error("Aborting pipe", "consecutive_errors", consecutive, "error", err)
			return ReasonWriteErrors, fmt.Errorf("%w (%d): %w", ErrTooManyWriteErrors, consecutive, err)
		}
	}
}

func (s *Streamer) recordWrite(sess *session, n int) {
	sess.frames++
	sess.bytes += uint64(n)
	s.mu.Lock()
	s.status.Frames = sess.frames
	s.status.Bytes = sess.bytes
	s.mu.Unlock()
}

func (s *Streamer) recordDrop(sess *session, n int) {
	sess.drops++
	sess.bytes += uint64(n)
	s.mu.Lock()
	s.status.Dropped = sess.drops
	s.status.Bytes = sess.bytes
	s.mu.Unlock()
}

func (s *Streamer) setState(state State, lastError string) {
	s.mu.Lock()
	s.status.State = state
	s.status.LastError = lastError
	s.mu.Unlock()
}

func sourceConfig(cfg Config) source.Config {
	sc := cfg.Source
	sc.Width = cfg.Request.Width
	sc.Height = cfg.Request.Height
	return sc
}

func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 30
	}
	return time.Duration(float64(time.Second) / fps)
}

// negotiationResult labels a Start outcome for metrics.
func negotiationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, loopback.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, loopback.ErrEnumeration):
		return "enumeration"
	case errors.Is(err, loopback.ErrNoMatch):
		return "no_match"
	case errors.Is(err, loopback.ErrOpen):
		return "open"
	case errors.Is(err, loopback.ErrQuery):
		return "query"
	case errors.Is(err, loopback.ErrSetFormat):
		return "set_format"
	default:
		return "error"
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}
