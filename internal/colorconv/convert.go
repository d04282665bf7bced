package colorconv

import (
	"fmt"

	"github.com/immersive-video/ivqm/internal/ivqmerr"
	"github.com/immersive-video/ivqm/internal/pic"
	"github.com/immersive-video/ivqm/internal/pixelops"
)

// round is floor(x + 0.5) with the sign mirrored for negatives.
func round(x float64) int64 {
	if x >= 0 {
		return int64(x + 0.5)
	}
	return int64(x - 0.5)
}

func clampPel(v int64, maxPel uint16) uint16 {
	if v < 0 {
		return 0
	}
	if v > int64(maxPel) {
		return maxPel
	}
	return uint16(v)
}

// ToYCbCr converts one RGB pel triple to Y/Cb/Cr using the fixed-point
// forward matrix: multiply, add the rounding term, shift.
func (m *Matrix) ToYCbCr(r, g, b uint16) (y, cb, cr uint16) {
	maxPel := pixelops.MaxPel(m.bitDepth)
	round18 := int64(1) << (fixedShift - 1)
	// toY/toCb/toCr[3] already carries addY/addUV in the same Q16 scale as
	// the r/g/b multiply terms, so it is added directly, not re-shifted.
	mulY := m.toY[0]*int64(r) + m.toY[1]*int64(g) + m.toY[2]*int64(b) + m.toY[3] + round18
	mulCb := m.toCb[0]*int64(r) + m.toCb[1]*int64(g) + m.toCb[2]*int64(b) + m.toCb[3] + round18
	mulCr := m.toCr[0]*int64(r) + m.toCr[1]*int64(g) + m.toCr[2]*int64(b) + m.toCr[3] + round18
	y = clampPel(mulY>>fixedShift, maxPel)
	cb = clampPel(mulCb>>fixedShift, maxPel)
	cr = clampPel(mulCr>>fixedShift, maxPel)
	return
}

// ToRGB inverts the conversion algebraically from the same kr/kg/kb
// primaries and scale/add terms used to build the forward matrix, rather
// than a separately-derived inverse matrix: Y0 = kr*r + kg*g + kb*b is
// the unscaled luma; Cb and Cr are scaled-and-offset (b-Y0) and (r-Y0).
func (m *Matrix) ToRGB(y, cb, cr uint16) (r, g, b uint16) {
	maxPel := pixelops.MaxPel(m.bitDepth)

	y0 := (float64(y) - m.addY) / m.scaleY
	bMinusY0 := (float64(cb) - m.addUV) / m.scaleU
	rMinusY0 := (float64(cr) - m.addUV) / m.scaleV

	rf := rMinusY0 + y0
	bf := bMinusY0 + y0
	gf := (y0 - m.kr*rf - m.kb*bf) / m.kg

	r = clampPel(round(rf), maxPel)
	g = clampPel(round(gf), maxPel)
	b = clampPel(round(bf), maxPel)
	return
}

// ConvertPlanes converts one RGB plane triple into a YCbCr plane triple
// (or the reverse) in place over dst, pel by pel. src and dst must share
// the same active geometry; margins are left untouched (callers extend
// afterward if needed).
func ConvertPlanes(m *Matrix, toYCbCr bool, srcA, srcB, srcC, dstA, dstB, dstC *pic.Plane) error {
	w, h := srcA.Width(), srcA.Height()
	for _, p := range []*pic.Plane{srcB, srcC, dstA, dstB, dstC} {
		if p.Width() != w || p.Height() != h {
			return fmt.Errorf("%w: colorconv: plane size mismatch", ivqmerr.ErrConfig)
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a, b, c := srcA.At(x, y), srcB.At(x, y), srcC.At(x, y)
			var oa, ob, oc uint16
			if toYCbCr {
				oa, ob, oc = m.ToYCbCr(a, b, c)
			} else {
				oa, ob, oc = m.ToRGB(a, b, c)
			}
			dstA.Set(x, y, oa)
			dstB.Set(x, y, ob)
			dstC.Set(x, y, oc)
		}
	}
	return nil
}
