package colorconv

import "math"

// Range selects full-range [0, maxPel] or studio/limited-range coding.
type Range int

const (
	RangeFull Range = iota
	RangeLimited
)

// Matrix holds both the fixed-point forward (RGB -> YCbCr) coefficients
// in [cR, cG, cB, add] layout and the scalar terms needed to invert the
// conversion exactly.
type Matrix struct {
	bitDepth int

	// Forward, fixed-point Q16: y = (toY[0]*r + toY[1]*g + toY[2]*b + toY[3] + round) >> 16.
	toY, toCb, toCr [4]int64

	// kr/kg/kb and the three scale/add terms reconstruct the inverse
	// conversion algebraically (see ToRGB): Y0 = kr*r + kg*g + kb*b is the
	// unscaled luma, Cb = scaleU*(b - Y0) + addUV, Cr = scaleV*(r - Y0) + addUV.
	kr, kg, kb             float64
	scaleY, scaleU, scaleV float64
	addY, addUV            float64
}

const fixedShift = 16
const fixedOne = int64(1) << fixedShift

func toFixed(f float64) int64 {
	return int64(math.Floor(f*float64(fixedOne) + 0.5))
}

// ComputeMatrix builds the conversion matrix for space at bitDepth: the
// Kr/Kb primaries scaled by the range coding, with the chroma offset and
// limited-range excursions shifted up by bitDepth-8.
func ComputeMatrix(space Space, bitDepth int, rng Range) *Matrix {
	pr := primaries[space]
	kr, kb := pr.Kr, pr.Kb
	kg := 1.0 - kr - kb
	cb := 0.5 / (1.0 - kb)
	cr := 0.5 / (1.0 - kr)

	shift := uint(bitDepth - 8)
	denom := float64(int64(1)<<uint(bitDepth) - 1)

	scaleY := 1.0
	addY := 0.0
	scaleU := cb
	scaleV := cr
	addUV := float64(int64(128) << shift)

	if rng == RangeLimited {
		scaleY *= float64(int64(219)<<shift) / denom
		scaleU *= float64(int64(224)<<shift) / denom
		scaleV *= float64(int64(224)<<shift) / denom
		addY = float64(int64(16) << shift)
	}

	m := &Matrix{
		bitDepth: bitDepth,
		kr:       kr, kg: kg, kb: kb,
		scaleY: scaleY, scaleU: scaleU, scaleV: scaleV,
		addY: addY, addUV: addUV,
	}
	m.toY = [4]int64{toFixed(kr * scaleY), toFixed(kg * scaleY), toFixed(kb * scaleY), toFixed(addY)}
	m.toCb = [4]int64{toFixed(-kr * scaleU), toFixed(-kg * scaleU), toFixed((1 - kb) * scaleU), toFixed(addUV)}
	m.toCr = [4]int64{toFixed((1 - kr) * scaleV), toFixed(-kg * scaleV), toFixed(-kb * scaleV), toFixed(addUV)}
	return m
}
