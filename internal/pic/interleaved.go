package pic

// Interleaved is a multi-component picture stored as a single buffer with
// components interleaved per pel (e.g. RGB RGB RGB...). sequenceio
// unpacks interleaved source frames into one and splits it into planes
// with ToPlanes; the metric kernels work on planes only.
type Interleaved struct {
	width, height int
	bitDepth      int
	margin        int
	numComponents int
	stride        int // in pels, not components
	origin        int
	buf           []uint16
}

// NewInterleaved allocates an interleaved picture with numComponents
// values per pel.
func NewInterleaved(width, height, bitDepth, margin, numComponents int) *Interleaved {
	stride := width + 2*margin
	totalH := height + 2*margin
	return &Interleaved{
		width:         width,
		height:        height,
		bitDepth:      bitDepth,
		margin:        margin,
		numComponents: numComponents,
		stride:        stride,
		origin:        (margin*stride + margin) * numComponents,
		buf:           make([]uint16, stride*totalH*numComponents),
	}
}

func (p *Interleaved) Width() int          { return p.width }
func (p *Interleaved) Height() int         { return p.height }
func (p *Interleaved) BitDepth() int       { return p.bitDepth }
func (p *Interleaved) Margin() int         { return p.margin }
func (p *Interleaved) Stride() int         { return p.stride }
func (p *Interleaved) NumComponents() int  { return p.numComponents }
func (p *Interleaved) Buf() []uint16       { return p.buf }

// At returns the numComponents values of the pel at (x, y).
func (p *Interleaved) At(x, y int) []uint16 {
	i := p.origin + (y*p.stride+x)*p.numComponents
	return p.buf[i : i+p.numComponents]
}

// Set writes the numComponents values of the pel at (x, y). len(vals) must
// equal NumComponents().
func (p *Interleaved) Set(x, y int, vals []uint16) {
	i := p.origin + (y*p.stride+x)*p.numComponents
	copy(p.buf[i:i+p.numComponents], vals)
}

// ToPlanes splits the interleaved buffer into numComponents independent
// Plane values, each carrying the same margin. Used once after reading a
// packed interleaved source frame so the rest of the pipeline (which
// operates per plane) never has to special-case interleaved storage.
func (p *Interleaved) ToPlanes() []*Plane {
	planes := make([]*Plane, p.numComponents)
	for c := 0; c < p.numComponents; c++ {
		pl := NewPlane(p.width, p.height, p.bitDepth, p.margin)
		for y := 0; y < p.height; y++ {
			for x := 0; x < p.width; x++ {
				pl.Set(x, y, p.At(x, y)[c])
			}
		}
		planes[c] = pl
	}
	return planes
}

// FromPlanes packs numComponents independent planes (all the same size and
// bit depth) into a fresh Interleaved picture.
func FromPlanes(planes []*Plane, margin int) *Interleaved {
	w, h, bd := planes[0].Width(), planes[0].Height(), planes[0].BitDepth()
	p := NewInterleaved(w, h, bd, margin, len(planes))
	vals := make([]uint16, len(planes))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c, pl := range planes {
				vals[c] = pl.At(x, y)
			}
			p.Set(x, y, vals)
		}
	}
	return p
}
