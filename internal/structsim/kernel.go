// Package structsim implements the per-window SSIM primitive (CalcWnd)
// and its five windowing-mode variants: Gaussian-weighted windows in
// float or fixed-point arithmetic, uniformly averaged windows, and the
// two block-aligned variants, over uint16 samples at arbitrary bit depth.
package structsim

import (
	"fmt"

	"github.com/immersive-video/ivqm/internal/ivqmerr"
)

// Mode selects one of the five windowing policies. Regular modes use an
// 11x11 window; block modes use a caller-chosen square block size.
type Mode int

const (
	RegularGaussianFlt Mode = iota
	RegularGaussianInt
	RegularAveraged
	BlockGaussianInt
	BlockAveraged
)

func (m Mode) String() string {
	switch m {
	case RegularGaussianFlt:
		return "RegularGaussianFlt"
	case RegularGaussianInt:
		return "RegularGaussianInt"
	case RegularAveraged:
		return "RegularAveraged"
	case BlockGaussianInt:
		return "BlockGaussianInt"
	case BlockAveraged:
		return "BlockAveraged"
	default:
		return "Unknown"
	}
}

// IsBlock reports whether m is one of the two block-windowing modes.
func (m Mode) IsBlock() bool {
	return m == BlockGaussianInt || m == BlockAveraged
}

// RegularWindowSize is the fixed window side for the three regular modes.
const RegularWindowSize = 11

// supportedBlockSizes enumerates the block geometries the two block modes
// accept. One parameterized kernel covers them all; there is no separate
// 8x8 specialization.
var supportedBlockSizes = map[int]bool{8: true, 16: true, 32: true}

// windowStats holds the five sufficient statistics CalcWnd needs: the two
// means, the two variances, and the covariance, all already normalized by
// the window's total weight.
type windowStats struct {
	muT, muR   float64
	varT, varR float64
	covTR      float64
}

// CalcWnd computes SSIM over a single W x W window rooted at origin in
// tst/ref (both sharing stride). W must be RegularWindowSize for the
// three regular modes, or one of {8, 16, 32} for the two block modes; any
// other size is a configuration error rather than a silent NaN.
func CalcWnd(mode Mode, tst, ref []uint16, origin, stride, w, bitDepth int, calcLuminance bool) (float64, error) {
	if mode.IsBlock() {
		if !supportedBlockSizes[w] {
			return 0, fmt.Errorf("%w: structsim: unsupported block size %d (want 8, 16, or 32)", ivqmerr.ErrConfig, w)
		}
	} else if w != RegularWindowSize {
		return 0, fmt.Errorf("%w: structsim: regular window size must be %d, got %d", ivqmerr.ErrConfig, RegularWindowSize, w)
	}

	var stats windowStats
	switch mode {
	case RegularGaussianFlt:
		stats = gaussianFloatStats(tst, ref, origin, stride, w)
	case RegularGaussianInt:
		stats = gaussianIntStats(tst, ref, origin, stride, w)
	case RegularAveraged, BlockAveraged:
		stats = uniformStats(tst, ref, origin, stride, w)
	case BlockGaussianInt:
		stats = gaussianIntStats(tst, ref, origin, stride, w)
	default:
		return 0, fmt.Errorf("%w: structsim: unknown mode %v", ivqmerr.ErrConfig, mode)
	}

	return ssimFromStats(stats, bitDepth, calcLuminance), nil
}

// K1, K2 are the conventional SSIM stabilization constants.
const (
	K1 = 0.01
	K2 = 0.03
)

func ssimFromStats(s windowStats, bitDepth int, calcLuminance bool) float64 {
	maxPel := float64((uint32(1) << uint(bitDepth)) - 1)
	c1 := (K1 * maxPel) * (K1 * maxPel)
	c2 := (K2 * maxPel) * (K2 * maxPel)

	cs := (2*s.covTR + c2) / (s.varT + s.varR + c2)
	if !calcLuminance {
		return cs
	}
	l := (2*s.muT*s.muR + c1) / (s.muT*s.muT + s.muR*s.muR + c1)
	return l * cs
}
