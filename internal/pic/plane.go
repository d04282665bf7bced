// Package pic implements the padded picture plane, the interleaved
// picture used when unpacking interleaved source frames, and the rental
// pool that hands out reusable plane buffers.
package pic

import (
	"fmt"

	"github.com/immersive-video/ivqm/internal/ivqmerr"
	"github.com/immersive-video/ivqm/internal/pixelops"
)

// Plane is a single padded component plane: width x height active pels
// surrounded by a margin-pixel border on every side, stored at a row
// stride that may exceed width + 2*margin (it never does for planes this
// package allocates, but Bind/Swap can attach a foreign buffer).
//
// Invariants: stride >= width + 2*margin; origin
// points at (margin, margin); pels are integers representable in
// [0, 2^bitDepth - 1] once check()/conceal() have been applied.
type Plane struct {
	width, height int
	bitDepth      int
	margin        int
	stride        int
	origin        int // index of (0,0) within buf
	buf           []uint16

	// extended is true once the margin holds replicated edge pixels
	// rather than stale/zero data. Conceal() invalidates it; Extend()
	// (re-)establishes it.
	extended bool
}

// NewPlane allocates a plane of the given active size, bit depth, and
// margin. stride is width + 2*margin.
func NewPlane(width, height, bitDepth, margin int) *Plane {
	stride := width + 2*margin
	totalH := height + 2*margin
	p := &Plane{
		width:    width,
		height:   height,
		bitDepth: bitDepth,
		margin:   margin,
		stride:   stride,
		origin:   margin*stride + margin,
		buf:      make([]uint16, stride*totalH),
	}
	return p
}

func (p *Plane) Width() int      { return p.width }
func (p *Plane) Height() int     { return p.height }
func (p *Plane) BitDepth() int   { return p.bitDepth }
func (p *Plane) Margin() int     { return p.margin }
func (p *Plane) Stride() int     { return p.stride }
func (p *Plane) Origin() int     { return p.origin }
func (p *Plane) Buf() []uint16   { return p.buf }
func (p *Plane) MaxPel() uint16  { return pixelops.MaxPel(p.bitDepth) }
func (p *Plane) IsExtended() bool { return p.extended }

// At returns the pel at active-area coordinate (x, y).
func (p *Plane) At(x, y int) uint16 {
	return p.buf[p.origin+y*p.stride+x]
}

// Set writes the pel at active-area coordinate (x, y).
func (p *Plane) Set(x, y int, v uint16) {
	p.buf[p.origin+y*p.stride+x] = v
}

// compatible reports whether two planes share layout (size/margin/bit
// depth), the precondition for Copy/Equal/SwapBuffer.
func (p *Plane) compatible(o *Plane) bool {
	return p.width == o.width && p.height == o.height &&
		p.margin == o.margin && p.bitDepth == o.bitDepth
}

// Clear zeroes the entire buffer, including margins.
func (p *Plane) Clear() {
	pixelops.Fill(p.buf, uint16(0), len(p.buf))
	p.extended = false
}

// Fill sets every pel, including margins, to value. The margin is
// considered extended afterward since every border pel equals its
// neighboring active pel trivially.
func (p *Plane) Fill(value uint16) {
	pixelops.Fill(p.buf, value, len(p.buf))
	p.extended = true
}

// Copy replaces this plane's whole buffer (active area and margins) and
// its margin-extended state with src's. src must be layout-compatible.
func (p *Plane) Copy(src *Plane) error {
	if !p.compatible(src) {
		return fmt.Errorf("%w: plane copy: incompatible layout", ivqmerr.ErrConfig)
	}
	copy(p.buf, src.buf)
	p.extended = src.extended
	return nil
}

// Extend replicates the outermost valid row/column into the margin.
// Idempotent: calling it twice in a row is equivalent to calling it once.
func (p *Plane) Extend() {
	pixelops.ExtendMargin(p.buf, p.origin, p.stride, p.width, p.height, p.margin)
	p.extended = true
}

// Conceal clamps every pel (including the margin) into [0, maxPel]. This
// invalidates any prior margin extension, since a clamp can change the
// values the extension had copied from the (now-altered) edge.
func (p *Plane) Conceal() {
	pixelops.ClipToRange(p.buf, 0, p.stride, p.stride, len(p.buf)/p.stride, p.bitDepth)
	p.extended = false
}

// Check reports whether every pel in the active area is in
// [0, 2^bitDepth - 1]. On failure, diag describes the first offender(s).
func (p *Plane) Check(name string) (ok bool, diag string) {
	if pixelops.CheckIfInRange(p.buf, p.origin, p.stride, p.width, p.height, p.bitDepth) {
		return true, ""
	}
	d := pixelops.FindOutOfRange(p.buf, p.origin, p.stride, p.width, p.height, p.bitDepth, 1)
	return false, fmt.Sprintf("%s: %s", name, d)
}

// Equal reports bitwise equality over the active area. If reportFirst is
// true and the planes differ, diag names the first differing coordinate.
func (p *Plane) Equal(ref *Plane, reportFirst bool) (equal bool, diag string) {
	if pixelops.CompareEqual(p.buf, ref.buf, p.origin, ref.origin, p.stride, ref.stride, p.width, p.height) {
		return true, ""
	}
	if !reportFirst {
		return false, ""
	}
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			if p.At(x, y) != ref.At(x, y) {
				return false, fmt.Sprintf("first mismatch at (%d,%d): %d != %d", x, y, p.At(x, y), ref.At(x, y))
			}
		}
	}
	return false, ""
}

// BindBuffer attaches a foreign buffer (with caller-supplied stride and
// origin) to this plane, transferring ownership from the caller.
func (p *Plane) BindBuffer(buf []uint16, stride, origin int) {
	p.buf = buf
	p.stride = stride
	p.origin = origin
	p.extended = false
}

// UnbindBuffer detaches and returns this plane's buffer, leaving the
// plane unusable until BindBuffer or a fresh allocation is attached.
// Ownership transfers to the caller.
func (p *Plane) UnbindBuffer() []uint16 {
	buf := p.buf
	p.buf = nil
	return buf
}

// SwapBuffer exchanges the underlying buffers (and stride/origin) of two
// layout-compatible planes without copying pel data.
func (p *Plane) SwapBuffer(o *Plane) error {
	if !p.compatible(o) {
		return fmt.Errorf("%w: plane swap: incompatible layout", ivqmerr.ErrConfig)
	}
	p.buf, o.buf = o.buf, p.buf
	p.stride, o.stride = o.stride, p.stride
	p.origin, o.origin = o.origin, p.origin
	p.extended, o.extended = o.extended, p.extended
	return nil
}
