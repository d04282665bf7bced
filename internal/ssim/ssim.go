// Package ssim is the per-frame SSIM / MS-SSIM / IV-SSIM / IV-MS-SSIM
// driver: picture-level aggregation of the structsim per-window kernel
// over a stride grid (or block grid), the five-scale MS-SSIM pyramid, and
// the IV-SSIM two-direction minimum shared with ivpsnr, using the same
// row-parallel/KBNS-reduce shape every metric in this module uses.
package ssim

import (
	"fmt"
	"math"

	"github.com/immersive-video/ivqm/internal/ivpsnr"
	"github.com/immersive-video/ivqm/internal/ivqmerr"
	"github.com/immersive-video/ivqm/internal/kbns"
	"github.com/immersive-video/ivqm/internal/pic"
	"github.com/immersive-video/ivqm/internal/pixelops"
	"github.com/immersive-video/ivqm/internal/shiftcomp"
	"github.com/immersive-video/ivqm/internal/structsim"
	"github.com/immersive-video/ivqm/internal/threadpool"
)

// Options bundles the parameters a single-scale SSIM computation needs.
type Options struct {
	Mode Mode
	// Stride is the sampling stride for both axes.
	Stride int
	// Window is the block side for the two block modes; ignored for
	// regular modes, which always use structsim.RegularWindowSize.
	Window int
	// UseMargin scans the full [0, H) range using extended margins
	// instead of stopping filterRange pixels short of each edge.
	UseMargin bool
	// Spherical enables WS-SSIM's cosine-latitude row weighting.
	Spherical   bool
	LatRangeDeg float64
	// CalcLuminance gates the L factor in CalcWnd (only the coarsest
	// MS-SSIM scale sets this).
	CalcLuminance bool
	// Debug, if non-nil, is invoked once per window with its (x, y)
	// position and computed value. It never changes the returned result.
	Debug func(x, y int, val float64)
}

// Mode re-exports structsim.Mode so callers only need one import for the
// driver-level API.
type Mode = structsim.Mode

const (
	RegularGaussianFlt = structsim.RegularGaussianFlt
	RegularGaussianInt = structsim.RegularGaussianInt
	RegularAveraged    = structsim.RegularAveraged
	BlockGaussianInt   = structsim.BlockGaussianInt
	BlockAveraged      = structsim.BlockAveraged
)

// msScaleWeights are the five conventional MS-SSIM scale weights.
var msScaleWeights = [5]float64{0.0448, 0.2856, 0.3001, 0.2363, 0.1333}

// ComputePicture aggregates CalcWnd over every window position of a single
// scale, returning the picture-level SSIM value for one component.
func ComputePicture(p *threadpool.ThPI, tst, ref *pic.Plane, opts Options) (float64, error) {
	w := tst.Width()
	h := tst.Height()
	stride := opts.Stride
	if stride <= 0 {
		return 0, fmt.Errorf("%w: ssim: stride must be positive", ivqmerr.ErrConfig)
	}

	winSize := opts.Window
	if !opts.Mode.IsBlock() {
		winSize = structsim.RegularWindowSize
	}
	filterRange := winSize / 2

	var loopBegY, loopEndY, loopBegX, loopEndX, numUnitY, numUnitX int
	if opts.Mode.IsBlock() {
		loopBegY, loopEndY = 0, h-winSize+1
		loopBegX, loopEndX = 0, w-winSize+1
		numUnitY = structsim.NumBlocks(h, winSize, stride)
		numUnitX = structsim.NumBlocks(w, winSize, stride)
	} else {
		if opts.UseMargin {
			loopBegY, loopEndY = 0, h
			loopBegX, loopEndX = 0, w
		} else {
			loopBegY, loopEndY = filterRange, h-filterRange
			loopBegX, loopEndX = filterRange, w-filterRange
		}
		numUnitY = structsim.NumUnits(loopBegY, loopEndY, stride)
		numUnitX = structsim.NumUnits(loopBegX, loopEndX, stride)
	}
	if numUnitY <= 0 || numUnitX <= 0 {
		return 0, fmt.Errorf("%w: ssim: picture %dx%d too small for window %d", ivqmerr.ErrConfig, w, h, winSize)
	}

	rowSums := make([]float64, numUnitY)
	rowWeights := make([]float64, numUnitY)
	rowErrs := make([]error, numUnitY)

	tstBuf, refBuf := tst.Buf(), ref.Buf()
	planeStride := tst.Stride()

	for iy := 0; iy < numUnitY; iy++ {
		iy := iy
		y := loopBegY + iy*stride
		p.AddWaitingTask(func(int) {
			var rowSum float64
			for ix := 0; ix < numUnitX; ix++ {
				x := loopBegX + ix*stride
				originY, originX := y, x
				if !opts.Mode.IsBlock() {
					originY, originX = y-filterRange, x-filterRange
				}
				origin := tst.Origin() + originY*planeStride + originX
				val, err := structsim.CalcWnd(opts.Mode, tstBuf, refBuf, origin, planeStride, winSize, tst.BitDepth(), opts.CalcLuminance)
				if err != nil {
					rowErrs[iy] = err
					return
				}
				if opts.Debug != nil {
					opts.Debug(x, y, val)
				}
				rowSum += val
			}
			rowSums[iy] = rowSum
			wt := 1.0
			if opts.Spherical {
				wt = sphericalWeight(y, h, opts.LatRangeDeg)
			}
			rowWeights[iy] = wt
		})
	}
	p.WaitUntilFinished()

	for _, err := range rowErrs {
		if err != nil {
			return 0, err
		}
	}

	var sum, wsum kbns.KBNS
	for iy := 0; iy < numUnitY; iy++ {
		sum.Add(rowSums[iy] * rowWeights[iy])
		wsum.Add(rowWeights[iy] * float64(numUnitX))
	}
	denom := wsum.Sum()
	if denom == 0 {
		return 0, nil
	}
	return sum.Sum() / denom, nil
}

func sphericalWeight(y, h int, latRangeDeg float64) float64 {
	if latRangeDeg == 0 {
		latRangeDeg = 180
	}
	latRad := latRangeDeg * math.Pi / 180
	return math.Cos(((float64(y)+0.5)/float64(h)-0.5) * latRad)
}

// ComputeMSSSIM runs the five-scale MS-SSIM pyramid on every component
// plane: each lower scale is a 2x2-box downsample of the previous one,
// only the coarsest scale's CalcLuminance is true, and each scale's score
// is rectified to >=0 before being raised to its weight and folded into
// the running product.
func ComputeMSSSIM(p *threadpool.ThPI, tst, ref []*pic.Plane, opts Options) ([4]float64, error) {
	numC := len(tst)
	var acc [4]float64
	for c := 0; c < numC; c++ {
		acc[c] = 1
	}

	curTst := append([]*pic.Plane(nil), tst...)
	curRef := append([]*pic.Plane(nil), ref...)

	for s := 0; s < len(msScaleWeights); s++ {
		scaleOpts := opts
		scaleOpts.CalcLuminance = s == len(msScaleWeights)-1
		for c := 0; c < numC; c++ {
			score, err := ComputePicture(p, curTst[c], curRef[c], scaleOpts)
			if err != nil {
				return [4]float64{}, err
			}
			if score < 0 {
				score = 0
			}
			acc[c] *= math.Pow(score, msScaleWeights[s])
		}
		if s == len(msScaleWeights)-1 {
			break
		}
		nextTst := make([]*pic.Plane, numC)
		nextRef := make([]*pic.Plane, numC)
		for c := 0; c < numC; c++ {
			nextTst[c] = downsample(curTst[c], opts.UseMargin)
			nextRef[c] = downsample(curRef[c], opts.UseMargin)
		}
		curTst, curRef = nextTst, nextRef
	}
	return acc, nil
}

func downsample(src *pic.Plane, useMargin bool) *pic.Plane {
	w, h := src.Width(), src.Height()
	dw, dh := (w+1)/2, (h+1)/2
	dst := pic.NewPlane(dw, dh, src.BitDepth(), src.Margin())
	pixelops.DownsampleHV(dst.Buf(), src.Buf(), dst.Origin(), src.Origin(), dst.Stride(), src.Stride(), w, h)
	if useMargin {
		dst.Extend()
	}
	return dst
}

// Direction mirrors ivpsnr.Direction for SSIM: computes the per-component
// picture-level SSIM against both shift-compensated pictures and takes the
// componentwise minimum.
func Direction(p *threadpool.ThPI, tst, ref []*pic.Plane, scp shiftcomp.Result, opts Options, multiScale bool) ([4]float64, error) {
	numC := len(tst)
	compute := func(a, b []*pic.Plane) ([4]float64, error) {
		if multiScale {
			return ComputeMSSSIM(p, a, b, opts)
		}
		var out [4]float64
		for c := 0; c < numC; c++ {
			v, err := ComputePicture(p, a[c], b[c], opts)
			if err != nil {
				return [4]float64{}, err
			}
			out[c] = v
		}
		return out, nil
	}

	t2r, err := compute(tst, scp.RefSCP)
	if err != nil {
		return [4]float64{}, err
	}
	r2t, err := compute(ref, scp.TstSCP)
	if err != nil {
		return [4]float64{}, err
	}

	var merged [4]float64
	for c := 0; c < numC; c++ {
		merged[c] = math.Min(t2r[c], r2t[c])
	}
	return merged, nil
}

// CmpWeightsAverage re-exports ivpsnr's weighted-average helper: both
// IV-PSNR and IV-SSIM fold per-component values the same way.
func CmpWeightsAverage(values [4]float64, weights [4]int, numComponents int) float64 {
	return ivpsnr.CmpWeightsAverage(values, weights, numComponents)
}
