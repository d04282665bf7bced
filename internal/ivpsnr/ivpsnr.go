// Package ivpsnr implements the weighted-MSE PSNR family: classical PSNR,
// spherically weighted WS-PSNR, and the immersive IV-PSNR built on top of
// shift-compensated pictures (internal/shiftcomp), with per-row spherical
// weights, per-pixel masking, and the two-direction IV-PSNR minimum.
package ivpsnr

import (
	"math"

	"github.com/immersive-video/ivqm/internal/kbns"
	"github.com/immersive-video/ivqm/internal/pic"
	"github.com/immersive-video/ivqm/internal/threadpool"
)

// FakeInfinity is the sentinel PSNR value reported in place of +Inf when
// MSE is exactly zero or no pixel contributed to the sum. Downstream
// averaging treats it as an ordinary finite number.
const FakeInfinity = 1e6

// Options bundles the per-call parameters a PSNR/WS-PSNR computation
// needs.
type Options struct {
	// Spherical enables the WS-PSNR cosine-latitude row weighting.
	Spherical bool
	// LatRangeDeg is the latitude range in degrees feeding the cosine
	// weight (default 180 degrees = pi radians).
	LatRangeDeg float64
	// Mask, if non-nil, restricts the sum to pixels where Mask is
	// non-zero.
	Mask *pic.Plane
}

// Result is the per-component outcome of a single-direction PSNR call.
type Result struct {
	PSNR         [4]float64
	NumNonMasked int64
	AnyFake      bool
}

// Compute returns per-component PSNR between tst and ref, one plane per
// component, dispatching one row-strip task per row through p and
// reducing with KBNS, the parallel-row shape shared by every metric in
// this module.
func Compute(p *threadpool.ThPI, tst, ref []*pic.Plane, opts Options) Result {
	var out Result
	numC := len(tst)
	for c := 0; c < numC; c++ {
		mse, numNonMasked := weightedMSE(p, tst[c], ref[c], opts)
		out.NumNonMasked += numNonMasked
		maxPel := float64(tst[c].MaxPel())
		if mse <= 0 {
			out.PSNR[c] = FakeInfinity
			out.AnyFake = true
			continue
		}
		out.PSNR[c] = 10 * math.Log10((maxPel*maxPel)/mse)
	}
	if opts.Mask != nil && out.NumNonMasked == 0 {
		out.AnyFake = true
		for c := 0; c < numC; c++ {
			out.PSNR[c] = FakeInfinity
		}
	}
	return out
}

// rowWeight returns w(y): 1 for plain PSNR, cos(((y+0.5)/h - 0.5)*latRange)
// for WS-PSNR's spherical weighting.
func rowWeight(y, h int, opts Options) float64 {
	if !opts.Spherical {
		return 1
	}
	latRange := opts.LatRangeDeg
	if latRange == 0 {
		latRange = 180
	}
	latRad := latRange * math.Pi / 180
	return math.Cos(((float64(y)+0.5)/float64(h)-0.5) * latRad)
}

func weightedMSE(p *threadpool.ThPI, tst, ref *pic.Plane, opts Options) (mse float64, numNonMasked int64) {
	h := tst.Height()
	w := tst.Width()

	rowSE := make([]float64, h)
	rowW := make([]float64, h)
	rowN := make([]int64, h)

	for y := 0; y < h; y++ {
		y := y
		p.AddWaitingTask(func(int) {
			wt := rowWeight(y, h, opts)
			var se float64
			var n int64
			for x := 0; x < w; x++ {
				if opts.Mask != nil && opts.Mask.At(x, y) == 0 {
					continue
				}
				d := float64(tst.At(x, y)) - float64(ref.At(x, y))
				se += wt * d * d
				n++
			}
			rowSE[y] = se
			rowW[y] = wt * float64(n)
			rowN[y] = n
		})
	}
	p.WaitUntilFinished()

	var seSum, wSum kbns.KBNS
	var n int64
	for y := 0; y < h; y++ {
		seSum.Add(rowSE[y])
		wSum.Add(rowW[y])
		n += rowN[y]
	}

	denom := wSum.Sum()
	if denom <= 0 {
		return 0, n
	}
	return seSum.Sum() / denom, n
}

// CmpWeightsAverage folds per-component PSNR values into a single
// picture-level score using the configured integer component weights,
// normalizing by their sum. A component whose weight is 0 does not
// participate.
func CmpWeightsAverage(values [4]float64, weights [4]int, numComponents int) float64 {
	var sum float64
	var denom int
	for c := 0; c < numComponents; c++ {
		sum += values[c] * float64(weights[c])
		denom += weights[c]
	}
	if denom == 0 {
		return 0
	}
	return sum / float64(denom)
}

// Direction computes the full IV-PSNR two-direction result: PSNR(Tst,
// RefSCP) and PSNR(Ref, TstSCP), taking the componentwise minimum. The
// mask plane is shared geometry, so both directions use the same one when
// non-nil.
func Direction(p *threadpool.ThPI, tst, ref, refSCP, tstSCP []*pic.Plane, opts Options) (merged Result) {
	t2r := Compute(p, tst, refSCP, opts)
	r2t := Compute(p, ref, tstSCP, opts)

	merged.AnyFake = t2r.AnyFake || r2t.AnyFake
	merged.NumNonMasked = t2r.NumNonMasked
	if r2t.NumNonMasked < merged.NumNonMasked {
		merged.NumNonMasked = r2t.NumNonMasked
	}
	for c := range merged.PSNR {
		merged.PSNR[c] = math.Min(t2r.PSNR[c], r2t.PSNR[c])
	}
	return merged
}
