package ivpsnr

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/immersive-video/ivqm/internal/globclrdiff"
	"github.com/immersive-video/ivqm/internal/pic"
	"github.com/immersive-video/ivqm/internal/shiftcomp"
	"github.com/immersive-video/ivqm/internal/threadpool"
)

func client(t *testing.T) *threadpool.ThPI {
	t.Helper()
	pool := threadpool.New(2, 64)
	t.Cleanup(func() { pool.Destroy() })
	return pool.RegisterClient(0)
}

func TestComputeUniformBlackVsGray(t *testing.T) {
	ref := pic.NewPlane(16, 16, 8, 0)
	tst := pic.NewPlane(16, 16, 8, 0)
	ref.Fill(0)
	tst.Fill(128)

	res := Compute(client(t), []*pic.Plane{tst}, []*pic.Plane{ref}, Options{})
	// MSE = 128^2 = 16384; 10*log10(65025/16384) = 5.9866 dB.
	require.InDelta(t, 5.9866, res.PSNR[0], 1e-3)
}

func TestComputeIdenticalIsFakeInfinity(t *testing.T) {
	ref := pic.NewPlane(8, 8, 10, 0)
	tst := pic.NewPlane(8, 8, 10, 0)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := uint16((x*37 + y*91) % 1024)
			ref.Set(x, y, v)
			tst.Set(x, y, v)
		}
	}
	res := Compute(client(t), []*pic.Plane{tst}, []*pic.Plane{ref}, Options{})
	require.Equal(t, FakeInfinity, res.PSNR[0])
	require.True(t, res.AnyFake)
}

func TestComputeSymmetric(t *testing.T) {
	a := pic.NewPlane(8, 8, 8, 0)
	b := pic.NewPlane(8, 8, 8, 0)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			a.Set(x, y, uint16((x*13+y*7)%256))
			b.Set(x, y, uint16((x*5+y*19)%256))
		}
	}
	ab := Compute(client(t), []*pic.Plane{a}, []*pic.Plane{b}, Options{})
	ba := Compute(client(t), []*pic.Plane{b}, []*pic.Plane{a}, Options{})
	require.InDelta(t, ab.PSNR[0], ba.PSNR[0], 1e-9)
}

func TestComputeMaskedAllZeroIsFake(t *testing.T) {
	ref := pic.NewPlane(4, 4, 8, 0)
	tst := pic.NewPlane(4, 4, 8, 0)
	mask := pic.NewPlane(4, 4, 8, 0)
	mask.Fill(0)
	ref.Fill(10)
	tst.Fill(200)

	res := Compute(client(t), []*pic.Plane{tst}, []*pic.Plane{ref}, Options{Mask: mask})
	require.True(t, res.AnyFake)
	require.Equal(t, FakeInfinity, res.PSNR[0])
	require.Zero(t, res.NumNonMasked)
}

func TestSphericalWeightPeaksAtEquator(t *testing.T) {
	opts := Options{Spherical: true, LatRangeDeg: 180}
	wEq := rowWeight(63, 128, opts)
	wPole := rowWeight(1, 128, opts)
	require.Greater(t, wEq, wPole)
	require.True(t, math.Abs(wEq) <= 1.0001)
}

func addNoise(t *testing.T, src *pic.Plane, sigma float64, seed int64) *pic.Plane {
	t.Helper()
	out := pic.NewPlane(src.Width(), src.Height(), src.BitDepth(), src.Margin())
	rng := rand.New(rand.NewSource(seed))
	maxPel := int(src.MaxPel())
	for y := 0; y < src.Height(); y++ {
		for x := 0; x < src.Width(); x++ {
			v := int(src.At(x, y)) + int(rng.NormFloat64()*sigma)
			if v < 0 {
				v = 0
			}
			if v > maxPel {
				v = maxPel
			}
			out.Set(x, y, uint16(v))
		}
	}
	return out
}

func TestMonotonicUnderNoise(t *testing.T) {
	base := pic.NewPlane(32, 32, 8, 0)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			base.Set(x, y, uint16(64+(x*3+y*5)%128))
		}
	}
	lowNoise := addNoise(t, base, 2, 1)
	highNoise := addNoise(t, base, 4, 2)

	p := client(t)
	low := Compute(p, []*pic.Plane{lowNoise}, []*pic.Plane{base}, Options{})
	high := Compute(p, []*pic.Plane{highNoise}, []*pic.Plane{base}, Options{})
	require.LessOrEqual(t, high.PSNR[0], low.PSNR[0]+0.5)
}

func TestDirectionShiftedGradientBeatsPlainPSNR(t *testing.T) {
	const w, h, margin = 24, 24, 3
	ref := pic.NewPlane(w, h, 8, margin)
	tst := pic.NewPlane(w, h, 8, margin)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ref.Set(x, y, uint16(x*8))
			sx := x - 1
			if sx < 0 {
				sx = 0
			}
			tst.Set(x, y, uint16(sx*8))
		}
	}
	ref.Extend()
	tst.Extend()

	refs := []*pic.Plane{ref}
	tsts := []*pic.Plane{tst}
	p := client(t)

	plain := Compute(p, tsts, refs, Options{})

	// U=0.01 (the default) caps the global offset at round(0.01*255) = 3,
	// below the gradient step of 8, so the search compensates the shift
	// rather than the offset absorbing it.
	delta := globclrdiff.Compute(p, refs, tsts, []float64{0.01})
	scp, err := shiftcomp.Generate(p, refs, tsts, shiftcomp.Options{
		SearchRange: 1,
		Delta:       delta,
		Weights:     [4]float64{1, 1, 1, 1},
	})
	require.NoError(t, err)
	iv := Direction(p, tsts, refs, scp.RefSCP, scp.TstSCP, Options{})
	require.GreaterOrEqual(t, iv.PSNR[0], plain.PSNR[0])

	scp0, err := shiftcomp.Generate(p, refs, tsts, shiftcomp.Options{
		SearchRange: 0,
		Delta:       globclrdiff.Delta{},
		Weights:     [4]float64{1, 1, 1, 1},
	})
	require.NoError(t, err)
	iv0 := Direction(p, tsts, refs, scp0.RefSCP, scp0.TstSCP, Options{})
	require.InDelta(t, plain.PSNR[0], iv0.PSNR[0], 1e-9)
}

func TestCmpWeightsAverage(t *testing.T) {
	values := [4]float64{10, 20, 30, 0}
	weights := [4]int{2, 1, 1, 0}
	got := CmpWeightsAverage(values, weights, 3)
	require.InDelta(t, (10*2.0+20+30)/4, got, 1e-9)
}
