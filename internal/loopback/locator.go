package loopback

import (
	"bytes"
	"cmp"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/smazurov/vidpipe/internal/logging"
)

const (
	// DefaultRegistry is where the kernel lists video4linux nodes.
	DefaultRegistry = "/sys/class/video4linux"
	// DefaultDevRoot is where device nodes live.
	DefaultDevRoot = "/dev"
	// DefaultSignature is the identity prefix of classic v4l2loopback nodes.
	DefaultSignature = "Loopback video device"

	videoPrefix    = "video"
	identityFile   = "name"
	maxIdentityLen = 255
)

// Locator finds the first openable loopback device in the registry.
type Locator struct {
	registry     fs.FS
	registryName string
	devRoot      string
	signatures   []string
	open         Opener
	logger       *slog.Logger
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

// WithRegistry replaces the sysfs registry, e.g. with an fstest.MapFS.
// name is only used in logs and errors.
func WithRegistry(fsys fs.FS, name string) LocatorOption {
	return func(l *Locator) {
		l.registry = fsys
		l.registryName = name
	}
}

// WithDevRoot sets the directory device nodes are derived under.
func WithDevRoot(dir string) LocatorOption {
	return func(l *Locator) {
		l.devRoot = dir
	}
}

// WithSignatures replaces the accepted identity prefixes. Empty strings
// are ignored; an empty list keeps DefaultSignature.
func WithSignatures(signatures ...string) LocatorOption {
	return func(l *Locator) {
		var kept []string
		for _, s := range signatures {
			if s = strings.TrimSpace(s); s != "" {
				kept = append(kept, s)
			}
		}
		if len(kept) > 0 {
			l.signatures = kept
		}
	}
}

// WithOpener sets how candidate nodes are opened.
func WithOpener(open Opener) LocatorOption {
	return func(l *Locator) {
		l.open = open
	}
}

// WithLogger sets the logger. Defaults to the "video" module logger.
func WithLogger(logger *slog.Logger) LocatorOption {
	return func(l *Locator) {
		l.logger = logger
	}
}

// NewLocator creates a Locator over the live sysfs registry.
func NewLocator(opts ...LocatorOption) *Locator {
	l := &Locator{
		registry:     os.DirFS(DefaultRegistry),
		registryName: DefaultRegistry,
		devRoot:      DefaultDevRoot,
		signatures:   []string{DefaultSignature},
		open:         OpenDevice,
		logger:       logging.GetLogger("video"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Opener returns the opener used for candidates.
func (l *Locator) Opener() Opener {
	return l.open
}

// Candidates lists registry entries named video* in natural index order
// (video2 before video10) rather than raw readdir order, so the first
// match among several loopback devices is the same on every run. The
// directory is read eagerly so enumeration
// failures surface immediately; identities are read lazily as the
// sequence is consumed. A candidate whose identity cannot be read is
// yielded with an ErrCandidateSkipped error.
func (l *Locator) Candidates() (iter.Seq2[Candidate, error], error) {
	entries, err := fs.ReadDir(l.registry, ".")
	if err != nil {
		return nil, newError(OpEnumerate, l.registryName, ErrEnumeration, err)
	}

	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), videoPrefix) {
			names = append(names, entry.Name())
		}
	}
	slices.SortFunc(names, compareEntryNames)

	return func(yield func(Candidate, error) bool) {
		for _, name := range names {
			c := Candidate{
				Name:       name,
				DevicePath: filepath.Join(l.devRoot, name),
			}
			identity, readErr := l.readIdentity(name)
			if readErr != nil {
				readErr = newError(OpIdentity, path.Join(l.registryName, name, identityFile), ErrCandidateSkipped, readErr)
			}
			c.Identity = identity
			if !yield(c, readErr) {
				return
			}
		}
	}, nil
}

// Locate opens the first candidate that carries a loopback signature and
// opens successfully. Scanning stops at that candidate; ownership of the
// returned Device passes to the caller.
func (l *Locator) Locate() (Device, Match, error) {
	candidates, err := l.Candidates()
	if err != nil {
		l.logger.Error("Failed to enumerate video devices", "registry", l.registryName, "error", err)
		return nil, Match{}, err
	}

	for c, skipErr := range candidates {
		if skipErr != nil {
			l.logger.Debug("Skipping video device", "entry", c.Name, "error", skipErr)
			continue
		}

		m, ok := l.Match(c)
		if !ok {
			l.logger.Debug("Not a loopback device", "entry", c.Name, "identity", c.Identity)
			continue
		}
		l.logger.Info("Found loopback device", "path", c.DevicePath, "minor", m.Minor, "identity", c.Identity)

		dev, openErr := l.open(c.DevicePath)
		if openErr != nil {
			l.logger.Debug("Skipping loopback device",
				"path", c.DevicePath,
				"error", newError(OpOpen, c.DevicePath, ErrCandidateSkipped, openErr))
			continue
		}

		logging.Notice(l.logger, "Opened loopback device as output", "path", c.DevicePath, "minor", m.Minor)
		return dev, m, nil
	}

	return nil, Match{}, newError(OpLocate, l.registryName, ErrNoMatch, nil)
}

// Scan returns every loopback candidate without opening any of them.
func (l *Locator) Scan() ([]Match, error) {
	candidates, err := l.Candidates()
	if err != nil {
		return nil, err
	}

	var matches []Match
	for c, skipErr := range candidates {
		if skipErr != nil {
			continue
		}
		if m, ok := l.Match(c); ok {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

// Match reports whether c carries one of the loopback signatures. The
// text following the signature is parsed as the minor index with atoi
// semantics: leading blanks, then digits, 0 when there are none.
func (l *Locator) Match(c Candidate) (Match, bool) {
	for _, sig := range l.signatures {
		rest, ok := strings.CutPrefix(c.Identity, sig)
		if !ok {
			continue
		}
		return Match{Candidate: c, Signature: sig, Minor: parseMinor(rest)}, true
	}
	return Match{}, false
}

// readIdentity performs a bounded read of <entry>/name. Overlong
// identities are truncated; the result stops at the first NUL and has
// trailing whitespace removed.
func (l *Locator) readIdentity(entry string) (string, error) {
	f, err := l.registry.Open(path.Join(entry, identityFile))
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf, err := io.ReadAll(io.LimitReader(f, maxIdentityLen))
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return strings.TrimRight(string(buf), " \t\r\n"), nil
}

func parseMinor(s string) int {
	s = strings.TrimLeft(s, " \t")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	minor, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return minor
}

// compareEntryNames orders video<N> entries by N, with unnumbered names last.
func compareEntryNames(a, b string) int {
	ai, aErr := strconv.Atoi(strings.TrimPrefix(a, videoPrefix))
	bi, bErr := strconv.Atoi(strings.TrimPrefix(b, videoPrefix))
	switch {
	case aErr == nil && bErr == nil:
		if c := cmp.Compare(ai, bi); c != 0 {
			return c
		}
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(a, b)
}
