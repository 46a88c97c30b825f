package source

import "fmt"

type yuv struct{ y, u, v byte }

// 75% colour bars, BT.601 limited range.
var bars = [...]yuv{
	{180, 128, 128}, // white
	{162, 44, 142},  // yellow
	{131, 156, 44},  // cyan
	{112, 72, 58},   // green
	{84, 184, 198},  // magenta
	{65, 100, 212},  // red
	{35, 212, 114},  // blue
	{16, 128, 128},  // black
}

const (
	scrollStep = 4 // pixels per frame
	sweepStep  = 2 // luma levels per frame
)

// Pattern generates moving colour bars over a scrolling luma sweep. Frame
// n is a pure function of the geometry and n.
type Pattern struct {
	width  int
	height int
	size   int
	frame  int
}

// NewPattern creates a pattern source for the given geometry.
func NewPattern(width, height int) (*Pattern, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame geometry %dx%d", width, height)
	}
	return &Pattern{width: width, height: height, size: FrameSize(width, height)}, nil
}

// FrameSize returns the byte size of one frame.
func (p *Pattern) FrameSize() int {
	return p.size
}

// ReadFrame renders the next frame into dst. It never returns io.EOF.
func (p *Pattern) ReadFrame(dst []byte) error {
	if err := checkSize(dst, p.size); err != nil {
		return err
	}
	p.Render(dst, p.frame)
	p.frame++
	return nil
}

// Render draws frame n into dst, which must be FrameSize bytes.
func (p *Pattern) Render(dst []byte, n int) {
	w, h := p.width, p.height
	barWidth := max(1, w/len(bars))
	shift := n * scrollStep
	sweepRows := h / 8

	ySize := w * h
	yPlane := dst[:ySize]
	for row := range h {
		line := yPlane[row*w : (row+1)*w]
		if row >= h-sweepRows {
			for col := range line {
				line[col] = 16 + byte((col*219/max(1, w-1)+n*sweepStep)%220)
			}
			continue
		}
		for col := range line {
			line[col] = bars[barIndex(col, shift, barWidth)].y
		}
	}

	cw, ch := w/2, h/2
	uPlane := dst[ySize : ySize+cw*ch]
	vPlane := dst[ySize+cw*ch : ySize+2*cw*ch]
	for row := range ch {
		sweep := row*2 >= h-sweepRows
		for col := range cw {
			c := yuv{u: 128, v: 128}
			if !sweep {
				c = bars[barIndex(col*2, shift, barWidth)]
			}
			uPlane[row*cw+col] = c.u
			vPlane[row*cw+col] = c.v
		}
	}

	// Odd geometries leave a few bytes past the chroma planes.
	clear(dst[ySize+2*cw*ch:])
}

// Close is a no-op.
func (p *Pattern) Close() error {
	return nil
}

func barIndex(col, shift, barWidth int) int {
	return ((col + shift) / barWidth) % len(bars)
}
