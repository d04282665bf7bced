package colorconv

import (
	"testing"

	"github.com/immersive-video/ivqm/internal/pic"
	"github.com/stretchr/testify/require"
)

func TestRoundTripRGBAllSpacesFullRange(t *testing.T) {
	spaces := []Space{YCbCr, YCbCrBT601, YCbCrSMPTE170M, YCbCrBT709, YCbCrSMPTE240M, YCbCrBT2020}
	samples := [][3]uint16{
		{0, 0, 0},
		{255, 255, 255},
		{255, 0, 0},
		{0, 255, 0},
		{0, 0, 255},
		{128, 64, 200},
		{16, 235, 100},
	}
	for _, sp := range spaces {
		m := ComputeMatrix(sp, 8, RangeFull)
		for _, s := range samples {
			y, cb, cr := m.ToYCbCr(s[0], s[1], s[2])
			r, g, b := m.ToRGB(y, cb, cr)
			require.InDelta(t, int(s[0]), int(r), 2, "space %v r", sp)
			require.InDelta(t, int(s[1]), int(g), 2, "space %v g", sp)
			require.InDelta(t, int(s[2]), int(b), 2, "space %v b", sp)
		}
	}
}

func TestRoundTripLimitedRangeAndHigherBitDepth(t *testing.T) {
	for _, bd := range []int{8, 10, 12} {
		m := ComputeMatrix(YCbCrBT709, bd, RangeLimited)
		maxPel := uint16(1<<uint(bd) - 1)
		samples := [][3]uint16{
			{0, 0, 0},
			{maxPel, maxPel, maxPel},
			{maxPel / 2, maxPel / 3, maxPel},
		}
		for _, s := range samples {
			y, cb, cr := m.ToYCbCr(s[0], s[1], s[2])
			r, g, b := m.ToRGB(y, cb, cr)
			tol := int64(1) << uint(bd-8+1)
			require.InDelta(t, int(s[0]), int(r), float64(tol), "bd %d r", bd)
			require.InDelta(t, int(s[1]), int(g), float64(tol), "bd %d g", bd)
			require.InDelta(t, int(s[2]), int(b), float64(tol), "bd %d b", bd)
		}
	}
}

func TestGrayIsChromaNeutral(t *testing.T) {
	m := ComputeMatrix(YCbCrBT601, 8, RangeFull)
	y, cb, cr := m.ToYCbCr(128, 128, 128)
	require.InDelta(t, 128, int(y), 1)
	require.InDelta(t, 128, int(cb), 1)
	require.InDelta(t, 128, int(cr), 1)
}

func TestConvertPlanesRoundTrip(t *testing.T) {
	const w, h, margin = 6, 4, 2
	m := ComputeMatrix(YCbCrBT709, 8, RangeFull)

	r := pic.NewPlane(w, h, 8, margin)
	g := pic.NewPlane(w, h, 8, margin)
	b := pic.NewPlane(w, h, 8, margin)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.Set(x, y, uint16((x*37+y*11)%256))
			g.Set(x, y, uint16((x*5+y*53)%256))
			b.Set(x, y, uint16((x*19+y*7)%256))
		}
	}

	yP := pic.NewPlane(w, h, 8, margin)
	cb := pic.NewPlane(w, h, 8, margin)
	cr := pic.NewPlane(w, h, 8, margin)
	require.NoError(t, ConvertPlanes(m, true, r, g, b, yP, cb, cr))

	r2 := pic.NewPlane(w, h, 8, margin)
	g2 := pic.NewPlane(w, h, 8, margin)
	b2 := pic.NewPlane(w, h, 8, margin)
	require.NoError(t, ConvertPlanes(m, false, yP, cb, cr, r2, g2, b2))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			require.InDelta(t, int(r.At(x, y)), int(r2.At(x, y)), 2)
			require.InDelta(t, int(g.At(x, y)), int(g2.At(x, y)), 2)
			require.InDelta(t, int(b.At(x, y)), int(b2.At(x, y)), 2)
		}
	}
}

func TestConvertPlanesRejectsMismatchedSize(t *testing.T) {
	m := ComputeMatrix(YCbCr, 8, RangeFull)
	a := pic.NewPlane(4, 4, 8, 0)
	bad := pic.NewPlane(5, 4, 8, 0)
	err := ConvertPlanes(m, true, a, a, a, bad, a, a)
	require.Error(t, err)
}

func TestSpaceStringAndIsRGB(t *testing.T) {
	require.True(t, RGB.IsRGB())
	require.False(t, YCbCrBT2020.IsRGB())
	require.Equal(t, "YCbCr_BT2020", YCbCrBT2020.String())
	require.Equal(t, "RGB", RGB.String())
}
