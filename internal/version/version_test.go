package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestApplyBuildSettings(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "GOARCH", Value: "arm64"},
	}

	tests := []struct {
		name       string
		in         Info
		wantCommit string
		wantDate   string
	}{
		{
			name:       "defaults filled",
			in:         Info{GitCommit: "unknown", BuildDate: "unknown"},
			wantCommit: "0123456789ab",
			wantDate:   "2026-10-01T12:00:00Z",
		},
		{
			name:       "ldflags win",
			in:         Info{GitCommit: "abc1234", BuildDate: "2026-09-30 10:00"},
			wantCommit: "abc1234",
			wantDate:   "2026-09-30 10:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := tt.in
			applyBuildSettings(&info, settings)
			if info.GitCommit != tt.wantCommit {
				t.Errorf("GitCommit = %q, want %q", info.GitCommit, tt.wantCommit)
			}
			if info.BuildDate != tt.wantDate {
				t.Errorf("BuildDate = %q, want %q", info.BuildDate, tt.wantDate)
			}
			if !info.Modified {
				t.Error("Modified should be set")
			}
		})
	}
}

func TestLong(t *testing.T) {
	out := Info{Version: "1.2.0", GitCommit: "abc1234", Modified: true, GoVersion: "go1.24.11"}.Long()
	for _, want := range []string{"vidpipe 1.2.0", "abc1234-dirty", "go1.24.11"} {
		if !strings.Contains(out, want) {
			t.Errorf("Long() missing %q:\n%s", want, out)
		}
	}
}
