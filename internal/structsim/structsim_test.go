package structsim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fillWindow(w, stride, origin int, f func(x, y int) uint16) []uint16 {
	buf := make([]uint16, stride*w+origin)
	for y := 0; y < w; y++ {
		for x := 0; x < w; x++ {
			buf[origin+y*stride+x] = f(x, y)
		}
	}
	return buf
}

func TestCalcWndIdenticalPicturesGiveOne(t *testing.T) {
	const w = 11
	buf := fillWindow(w, w, 0, func(x, y int) uint16 { return uint16(10 + x + 3*y) })
	for _, mode := range []Mode{RegularGaussianFlt, RegularGaussianInt, RegularAveraged} {
		v, err := CalcWnd(mode, buf, buf, 0, w, w, 8, true)
		require.NoError(t, err)
		require.InDelta(t, 1.0, v, 1e-9, "mode %v", mode)
	}
}

func TestCalcWndBlockModesIdentical(t *testing.T) {
	for _, size := range []int{8, 16, 32} {
		buf := fillWindow(size, size, 0, func(x, y int) uint16 { return uint16(x*7 + y*3) })
		for _, mode := range []Mode{BlockGaussianInt, BlockAveraged} {
			v, err := CalcWnd(mode, buf, buf, 0, size, size, 8, true)
			require.NoError(t, err)
			require.InDelta(t, 1.0, v, 1e-9, "mode %v size %d", mode, size)
		}
	}
}

func TestCalcWndRejectsUnsupportedBlockSize(t *testing.T) {
	buf := make([]uint16, 9*9)
	_, err := CalcWnd(BlockAveraged, buf, buf, 0, 9, 9, 8, true)
	require.Error(t, err)
}

func TestCalcWndRejectsWrongRegularSize(t *testing.T) {
	buf := make([]uint16, 64)
	_, err := CalcWnd(RegularAveraged, buf, buf, 0, 8, 8, 8, true)
	require.Error(t, err)
}

func TestCalcWndBounded(t *testing.T) {
	const w = 11
	ref := fillWindow(w, w, 0, func(x, y int) uint16 { return uint16(5) })
	tst := fillWindow(w, w, 0, func(x, y int) uint16 { return uint16(250) })
	v, err := CalcWnd(RegularAveraged, tst, ref, 0, w, w, 8, true)
	require.NoError(t, err)
	require.GreaterOrEqual(t, v, -1.0)
	require.LessOrEqual(t, v, 1.0)
}

func TestGaussianIntSumsToScale(t *testing.T) {
	for _, size := range []int{11, 8, 16, 32} {
		k := GaussianInt(size)
		var sum int64
		for _, v := range k {
			sum += v
		}
		require.Equal(t, int64(gaussianScale), sum, "size %d", size)
	}
}

func TestGaussianFloatSumsToOne(t *testing.T) {
	k := GaussianFloat(11)
	var sum float64
	for _, v := range k {
		sum += v
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestNumBlocksMatchesLoopCount(t *testing.T) {
	for _, w := range []int{7, 8, 11, 16, 32, 64} {
		for _, stride := range []int{2, 4, w} {
			if stride > w {
				continue
			}
			for _, length := range []int{100, 127, 256, 4096} {
				want := 0
				for i := 0; i+w <= length; i += stride {
					want++
				}
				require.Equal(t, want, NumBlocks(length, w, stride), "w=%d stride=%d length=%d", w, stride, length)
			}
		}
	}
}

func TestNumUnitsMatchesCeilFormula(t *testing.T) {
	require.Equal(t, 0, NumUnits(5, 5, 4))
	require.Equal(t, 1, NumUnits(0, 4, 4))
	require.Equal(t, 3, NumUnits(0, 10, 4))
}

func TestDispatchTableCoversAllModes(t *testing.T) {
	for m := Mode(0); m < 5; m++ {
		require.NotNil(t, Dispatch(m))
	}
}
