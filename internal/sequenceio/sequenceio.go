// Package sequenceio reads raw video sequences: planar/interleaved YUV or
// RGB test/reference/mask frames at a given bit depth and chroma format,
// packed little-endian into 16-bit words above 8-bit depth.
package sequenceio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/immersive-video/ivqm/internal/ivqmerr"
	"github.com/immersive-video/ivqm/internal/pic"
)

// Chroma names the supported chroma subsampling layouts.
type Chroma int

const (
	Chroma400 Chroma = iota // luma only (e.g. mask streams)
	Chroma420
	Chroma444
)

// ParseChroma accepts the conventional "4:0:0"/"4:2:0"/"4:4:4" spellings.
func ParseChroma(s string) (Chroma, error) {
	switch s {
	case "4:0:0":
		return Chroma400, nil
	case "4:2:0":
		return Chroma420, nil
	case "4:4:4":
		return Chroma444, nil
	default:
		return 0, fmt.Errorf("%w: sequenceio: unknown chroma format %q", ivqmerr.ErrConfig, s)
	}
}

// Format describes the on-disk geometry of one raw sequence file.
type Format struct {
	Width, Height int
	BitDepth      int
	Chroma        Chroma
	// Interleaved selects RGB-interleaved storage (3 components per
	// sample, no subsampling) instead of planar YCbCr.
	Interleaved bool
}

// bytesPerSample is 1 for <= 8-bit, 2 (little-endian) otherwise.
func (f Format) bytesPerSample() int {
	if f.BitDepth <= 8 {
		return 1
	}
	return 2
}

// componentSizes returns the per-component (width, height) pel counts for
// one frame, in storage order (luma first for planar YCbCr).
func (f Format) componentSizes() [][2]int {
	if f.Interleaved {
		return [][2]int{{f.Width, f.Height}}
	}
	switch f.Chroma {
	case Chroma400:
		return [][2]int{{f.Width, f.Height}}
	case Chroma420:
		cw, ch := (f.Width+1)/2, (f.Height+1)/2
		return [][2]int{{f.Width, f.Height}, {cw, ch}, {cw, ch}}
	case Chroma444:
		return [][2]int{{f.Width, f.Height}, {f.Width, f.Height}, {f.Width, f.Height}}
	default:
		return [][2]int{{f.Width, f.Height}}
	}
}

// NumComponents reports how many planes one frame unpacks into.
func (f Format) NumComponents() int {
	if f.Interleaved {
		return 3
	}
	return len(f.componentSizes())
}

// FrameBytes is the exact byte size of one frame on disk.
func (f Format) FrameBytes() int64 {
	bps := int64(f.bytesPerSample())
	if f.Interleaved {
		return int64(f.Width) * int64(f.Height) * 3 * bps
	}
	var total int64
	for _, sz := range f.componentSizes() {
		total += int64(sz[0]) * int64(sz[1]) * bps
	}
	return total
}

// sizeToken matches the WxH resolution token conventionally embedded in
// raw sequence filenames (e.g. "ballet_1920x1080_10bit.yuv").
var sizeToken = regexp.MustCompile(`(\d+)x(\d+)`)

// CheckName verifies that a resolution token embedded in path's filename,
// if any, matches the configured picture size. A filename with no WxH
// token passes; a mismatching one yields a NameMismatch error for the
// caller's tri-modal policy.
func CheckName(path string, format Format) error {
	m := sizeToken.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return nil
	}
	if m[1] != fmt.Sprint(format.Width) || m[2] != fmt.Sprint(format.Height) {
		return fmt.Errorf("%w: sequenceio: %s names %sx%s but PictureSize is %dx%d",
			ivqmerr.ErrNameMismatch, filepath.Base(path), m[1], m[2], format.Width, format.Height)
	}
	return nil
}

// Stream reads successive frames of one raw sequence file.
type Stream struct {
	f      *os.File
	format Format
	start  int64 // byte offset of the first frame this Stream serves
	buf    []byte
}

// OpenStream opens path and seeks past startFrame whole frames.
func OpenStream(path string, format Format, startFrame int) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: sequenceio: opening %s: %v", ivqmerr.ErrIO, path, err)
	}
	s := &Stream{
		f:      f,
		format: format,
		start:  int64(startFrame) * format.FrameBytes(),
		buf:    make([]byte, format.FrameBytes()),
	}
	if _, err := f.Seek(s.start, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: sequenceio: seeking %s: %v", ivqmerr.ErrIO, path, err)
	}
	return s, nil
}

// Close releases the underlying file handle.
func (s *Stream) Close() error { return s.f.Close() }

// ReadFrame reads and unpacks the next frame into one Plane per component
// (margin 0; the driver pads and extends margins during preprocessing).
// A short read is an IO error.
func (s *Stream) ReadFrame() ([]*pic.Plane, error) {
	if _, err := io.ReadFull(s.f, s.buf); err != nil {
		return nil, fmt.Errorf("%w: sequenceio: short read: %v", ivqmerr.ErrIO, err)
	}

	if s.format.Interleaved {
		return unpackInterleaved(s.buf, s.format), nil
	}
	return unpackPlanar(s.buf, s.format), nil
}

func unpackPlanar(buf []byte, format Format) []*pic.Plane {
	bps := format.bytesPerSample()
	planes := make([]*pic.Plane, 0, format.NumComponents())
	off := 0
	for _, sz := range format.componentSizes() {
		w, h := sz[0], sz[1]
		p := pic.NewPlane(w, h, format.BitDepth, 0)
		off = unpackPlane(buf, off, p, w, h, bps)
		planes = append(planes, p)
	}
	return planes
}

func unpackPlane(buf []byte, off int, p *pic.Plane, w, h, bps int) int {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v uint16
			if bps == 1 {
				v = uint16(buf[off])
				off++
			} else {
				v = binary.LittleEndian.Uint16(buf[off:])
				off += 2
			}
			p.Set(x, y, v)
		}
	}
	return off
}

func unpackInterleaved(buf []byte, format Format) []*pic.Plane {
	bps := format.bytesPerSample()
	w, h := format.Width, format.Height
	inter := pic.NewInterleaved(w, h, format.BitDepth, 0, 3)
	off := 0
	vals := make([]uint16, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < 3; c++ {
				if bps == 1 {
					vals[c] = uint16(buf[off])
					off++
				} else {
					vals[c] = binary.LittleEndian.Uint16(buf[off:])
					off += 2
				}
			}
			inter.Set(x, y, vals)
		}
	}
	return inter.ToPlanes()
}

// Sequence bundles the test/reference/optional-mask streams for one
// comparison run.
type Sequence struct {
	Test, Ref, Mask *Stream
	HasMask         bool
}

// Open opens the test and reference streams, and the mask stream when
// maskPath is non-empty.
func Open(testPath, refPath string, format Format, testStart, refStart int, maskPath string, maskFormat Format, maskStart int) (*Sequence, error) {
	test, err := OpenStream(testPath, format, testStart)
	if err != nil {
		return nil, err
	}
	ref, err := OpenStream(refPath, format, refStart)
	if err != nil {
		test.Close()
		return nil, err
	}
	s := &Sequence{Test: test, Ref: ref}
	if maskPath != "" {
		mask, err := OpenStream(maskPath, maskFormat, maskStart)
		if err != nil {
			test.Close()
			ref.Close()
			return nil, err
		}
		s.Mask = mask
		s.HasMask = true
	}
	return s, nil
}

// ReadFrame reads the next test/reference/(optional) mask frame, returning
// the mask's first plane directly (mask streams are single-component by
// convention).
func (s *Sequence) ReadFrame() (test, ref []*pic.Plane, mask *pic.Plane, err error) {
	test, err = s.Test.ReadFrame()
	if err != nil {
		return nil, nil, nil, err
	}
	ref, err = s.Ref.ReadFrame()
	if err != nil {
		return nil, nil, nil, err
	}
	if s.HasMask {
		maskPlanes, err := s.Mask.ReadFrame()
		if err != nil {
			return nil, nil, nil, err
		}
		mask = maskPlanes[0]
	}
	return test, ref, mask, nil
}

// Close releases every open stream.
func (s *Sequence) Close() error {
	var firstErr error
	for _, st := range []*Stream{s.Test, s.Ref, s.Mask} {
		if st == nil {
			continue
		}
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
