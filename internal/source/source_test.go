package source

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestFrameSize(t *testing.T) {
	tests := []struct {
		width, height int
		want          int
	}{
		{640, 480, 460800},
		{1280, 720, 1382400},
		{2, 2, 6},
		{3, 3, 13},
	}

	for _, tt := range tests {
		if got := FrameSize(tt.width, tt.height); got != tt.want {
			t.Errorf("FrameSize(%d, %d) = %d, want %d", tt.width, tt.height, got, tt.want)
		}
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "frames.yuv")
	if err := os.WriteFile(input, make([]byte, FrameSize(4, 4)*2), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default is pattern", Config{Width: 4, Height: 4}, false},
		{"pattern", Config{Kind: KindPattern, Width: 4, Height: 4}, false},
		{"file", Config{Kind: KindFile, Input: input, Width: 4, Height: 4}, false},
		{"file without input", Config{Kind: KindFile, Width: 4, Height: 4}, true},
		{"missing file", Config{Kind: KindFile, Input: filepath.Join(dir, "nope"), Width: 4, Height: 4}, true},
		{"unknown kind", Config{Kind: "camera", Width: 4, Height: 4}, true},
		{"bad geometry", Config{Kind: KindPattern, Width: 0, Height: 4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Open(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if src != nil {
					t.Fatalf("Open() returned non-nil source %#v with error", src)
				}
				return
			}
			defer src.Close()
			if src.FrameSize() != FrameSize(4, 4) {
				t.Errorf("FrameSize() = %d, want %d", src.FrameSize(), FrameSize(4, 4))
			}
		})
	}
}

func TestPatternFrames(t *testing.T) {
	p, err := NewPattern(64, 48)
	if err != nil {
		t.Fatal(err)
	}

	first := make([]byte, p.FrameSize())
	second := make([]byte, p.FrameSize())
	if err := p.ReadFrame(first); err != nil {
		t.Fatalf("ReadFrame() failed: %v", err)
	}
	if err := p.ReadFrame(second); err != nil {
		t.Fatalf("ReadFrame() failed: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("consecutive frames are identical, pattern should move")
	}

	again := make([]byte, p.FrameSize())
	p.Render(again, 0)
	if !bytes.Equal(first, again) {
		t.Error("Render(0) differs from the first frame")
	}

	for i, y := range first[:64*48] {
		if y < 16 || y > 235 {
			t.Fatalf("luma sample %d = %d, outside limited range", i, y)
		}
	}
}

func TestPatternOddGeometry(t *testing.T) {
	p, err := NewPattern(3, 3)
	if err != nil {
		t.Fatal(err)
	}
	frame := bytes.Repeat([]byte{0xFF}, p.FrameSize())
	if err := p.ReadFrame(frame); err != nil {
		t.Fatalf("ReadFrame() failed: %v", err)
	}
	if frame[len(frame)-1] != 0 {
		t.Errorf("trailing byte = %d, want 0", frame[len(frame)-1])
	}
}

func TestPatternWrongBuffer(t *testing.T) {
	p, err := NewPattern(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ReadFrame(make([]byte, 5)); !errors.Is(err, ErrFrameSize) {
		t.Errorf("ReadFrame() error = %v, want ErrFrameSize", err)
	}
}

func TestReaderFrames(t *testing.T) {
	const size = 6
	data := []byte("aaaaaabbbbbbcc")

	tests := []struct {
		name  string
		input io.Reader
		loop  bool
		want  []string
		end   error
	}{
		{
			name:  "truncated trailing frame",
			input: bytes.NewReader(data),
			want:  []string{"aaaaaa", "bbbbbb"},
			end:   io.ErrUnexpectedEOF,
		},
		{
			name:  "exact frames",
			input: bytes.NewReader(data[:12]),
			want:  []string{"aaaaaa", "bbbbbb"},
			end:   io.EOF,
		},
		{
			name:  "loop rewinds",
			input: bytes.NewReader(data[:12]),
			loop:  true,
			want:  []string{"aaaaaa", "bbbbbb", "aaaaaa", "bbbbbb", "aaaaaa"},
		},
		{
			name:  "loop without seeker ends",
			input: bytes.NewBufferString("aaaaaa"),
			loop:  true,
			want:  []string{"aaaaaa"},
			end:   io.EOF,
		},
		{
			name:  "loop over short input ends",
			input: bytes.NewReader([]byte("abc")),
			loop:  true,
			end:   io.ErrUnexpectedEOF,
		},
		{
			name:  "loop over empty input ends",
			input: bytes.NewReader(nil),
			loop:  true,
			end:   io.EOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rd := NewReader(tt.input, size, tt.loop)
			frame := make([]byte, size)

			for i, want := range tt.want {
				if err := rd.ReadFrame(frame); err != nil {
					t.Fatalf("frame %d: ReadFrame() failed: %v", i, err)
				}
				if string(frame) != want {
					t.Fatalf("frame %d = %q, want %q", i, frame, want)
				}
			}

			if tt.end == nil {
				return
			}
			if err := rd.ReadFrame(frame); !errors.Is(err, tt.end) {
				t.Errorf("final ReadFrame() error = %v, want %v", err, tt.end)
			}
		})
	}
}

func TestReaderWrongBuffer(t *testing.T) {
	rd := NewReader(bytes.NewReader(make([]byte, 12)), 6, false)
	if err := rd.ReadFrame(make([]byte, 4)); !errors.Is(err, ErrFrameSize) {
		t.Errorf("ReadFrame() error = %v, want ErrFrameSize", err)
	}
}

func TestOpenFileLoopsAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.yuv")
	if err := os.WriteFile(path, []byte("xyzxyz"), 0o644); err != nil {
		t.Fatal(err)
	}

	rd, err := OpenFile(path, 6, true)
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}

	frame := make([]byte, 6)
	for i := range 3 {
		if err := rd.ReadFrame(frame); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	if err := rd.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := rd.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
}
