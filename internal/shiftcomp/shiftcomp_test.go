package shiftcomp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/immersive-video/ivqm/internal/globclrdiff"
	"github.com/immersive-video/ivqm/internal/pic"
	"github.com/immersive-video/ivqm/internal/threadpool"
)

func newSyncClient(t *testing.T) *threadpool.ThPI {
	t.Helper()
	return threadpool.Inactive()
}

func TestGenerateZeroRangeIsIdentity(t *testing.T) {
	ref := pic.NewPlane(8, 8, 8, 2)
	tst := pic.NewPlane(8, 8, 8, 2)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			ref.Set(x, y, uint16(x+y))
			tst.Set(x, y, uint16(x+y+1))
		}
	}
	ref.Extend()
	tst.Extend()

	res, err := Generate(newSyncClient(t), []*pic.Plane{ref}, []*pic.Plane{tst}, Options{
		SearchRange: 0,
		Weights:     [4]float64{1, 1, 1, 1},
	})
	require.NoError(t, err)
	eq, _ := res.RefSCP[0].Equal(ref, true)
	require.True(t, eq)
	eq, _ = res.TstSCP[0].Equal(tst, true)
	require.True(t, eq)
}

func TestGenerateShiftedGradientFindsExactMatch(t *testing.T) {
	const w, h, margin = 16, 16, 2
	ref := pic.NewPlane(w, h, 8, margin)
	tst := pic.NewPlane(w, h, 8, margin)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ref.Set(x, y, uint16(x*4))
			// Tst is Ref shifted right by one sample (clamped at the edge).
			sx := x - 1
			if sx < 0 {
				sx = 0
			}
			tst.Set(x, y, uint16(sx*4))
		}
	}
	ref.Extend()
	tst.Extend()

	// No global color offset: the search target is Tst itself, so the only
	// difference to compensate is the one-sample shift.
	res, err := Generate(newSyncClient(t), []*pic.Plane{ref}, []*pic.Plane{tst}, Options{
		SearchRange: 2,
		Delta:       globclrdiff.Delta{},
		Weights:     [4]float64{1, 1, 1, 1},
	})
	require.NoError(t, err)

	// Away from the clamped edge, RefSCP should exactly reproduce Tst's
	// values (the shift is fully compensated within the search window).
	for y := 0; y < h; y++ {
		for x := 3; x < w-3; x++ {
			require.Equal(t, tst.At(x, y), res.RefSCP[0].At(x, y), "x=%d y=%d", x, y)
		}
	}
}

func TestGenerateRejectsInsufficientMargin(t *testing.T) {
	ref := pic.NewPlane(8, 8, 8, 1)
	tst := pic.NewPlane(8, 8, 8, 1)
	_, err := Generate(newSyncClient(t), []*pic.Plane{ref}, []*pic.Plane{tst}, Options{SearchRange: 2})
	require.Error(t, err)
}
