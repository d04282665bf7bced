package globclrdiff

import (
	"testing"

	"github.com/immersive-video/ivqm/internal/pic"
	"github.com/immersive-video/ivqm/internal/threadpool"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, synchronous bool) *threadpool.ThPI {
	t.Helper()
	if synchronous {
		return threadpool.Inactive()
	}
	pool := threadpool.New(4, 0)
	t.Cleanup(func() { pool.Destroy() })
	return pool.RegisterClient(0)
}

func constPlane(w, h, bitDepth int, v uint16) *pic.Plane {
	p := pic.NewPlane(w, h, bitDepth, 0)
	p.Fill(v)
	return p
}

func TestComputeZeroWhenIdentical(t *testing.T) {
	p := newClient(t, true)
	ref := constPlane(8, 8, 8, 100)
	tst := constPlane(8, 8, 8, 100)
	d := Compute(p, []*pic.Plane{ref}, []*pic.Plane{tst}, []float64{0.1})
	require.Equal(t, int32(0), d[0])
}

func TestComputeUniformOffsetWithinThreshold(t *testing.T) {
	p := newClient(t, true)
	ref := constPlane(8, 8, 8, 110)
	tst := constPlane(8, 8, 8, 100)
	// U=0.2 -> T = round(0.2*255) = 51, offset 10 is within threshold.
	d := Compute(p, []*pic.Plane{ref}, []*pic.Plane{tst}, []float64{0.2})
	require.Equal(t, int32(10), d[0])
}

func TestComputeClampsToThreshold(t *testing.T) {
	p := newClient(t, true)
	ref := constPlane(8, 8, 8, 200)
	tst := constPlane(8, 8, 8, 10)
	// Raw mean diff is 190, U=0.01 -> T = round(0.01*255) = 3.
	d := Compute(p, []*pic.Plane{ref}, []*pic.Plane{tst}, []float64{0.01})
	require.Equal(t, int32(3), d[0])
}

func TestComputeClampsToNegativeThreshold(t *testing.T) {
	p := newClient(t, true)
	ref := constPlane(8, 8, 8, 10)
	tst := constPlane(8, 8, 8, 200)
	d := Compute(p, []*pic.Plane{ref}, []*pic.Plane{tst}, []float64{0.01})
	require.Equal(t, int32(-3), d[0])
}

func TestComputeMultiComponentParallel(t *testing.T) {
	p := newClient(t, false)
	refs := []*pic.Plane{constPlane(32, 32, 8, 150), constPlane(32, 32, 8, 10)}
	tsts := []*pic.Plane{constPlane(32, 32, 8, 140), constPlane(32, 32, 8, 20)}
	d := Compute(p, refs, tsts, []float64{1.0, 1.0})
	require.Equal(t, int32(10), d[0])
	require.Equal(t, int32(-10), d[1])
}
