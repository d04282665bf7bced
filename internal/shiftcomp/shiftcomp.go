// Package shiftcomp generates the shift-compensated pictures IV-PSNR and
// IV-SSIM both consume: for every pixel, the best-matching pixel within a
// (2R+1)x(2R+1) search window of the other picture, after removing the
// picture-wide global color offset.
package shiftcomp

import (
	"fmt"

	"github.com/immersive-video/ivqm/internal/globclrdiff"
	"github.com/immersive-video/ivqm/internal/ivqmerr"
	"github.com/immersive-video/ivqm/internal/pic"
	"github.com/immersive-video/ivqm/internal/threadpool"
)

// Options bundles the parameters SCP generation needs beyond the two
// source pictures: the search half-range, the per-component global color
// offset, and the per-component weights used to score candidate matches.
type Options struct {
	SearchRange int
	Delta       globclrdiff.Delta
	Weights     [4]float64
}

// Result holds the two shift-compensated pictures: RefSCP matches Ref
// pixels onto Tst, TstSCP matches Tst pixels onto Ref.
type Result struct {
	RefSCP []*pic.Plane
	TstSCP []*pic.Plane
}

// Generate produces RefSCP and TstSCP for the given component planes. ref
// and tst must already carry extended margins of at least opts.SearchRange
// so the window search can read past the picture edges. p parallelizes row
// dispatch the way every other metric kernel in this module does.
func Generate(p *threadpool.ThPI, ref, tst []*pic.Plane, opts Options) (Result, error) {
	r := opts.SearchRange
	if r < 0 {
		return Result{}, fmt.Errorf("%w: shiftcomp: negative search range %d", ivqmerr.ErrConfig, r)
	}
	numC := len(ref)
	for c := 0; c < numC; c++ {
		if ref[c].Margin() < r || tst[c].Margin() < r {
			return Result{}, fmt.Errorf("%w: shiftcomp: margin smaller than search range %d", ivqmerr.ErrConfig, r)
		}
	}

	refSCP := make([]*pic.Plane, numC)
	tstSCP := make([]*pic.Plane, numC)
	for c := 0; c < numC; c++ {
		refSCP[c] = pic.NewPlane(ref[c].Width(), ref[c].Height(), ref[c].BitDepth(), ref[c].Margin())
		tstSCP[c] = pic.NewPlane(tst[c].Width(), tst[c].Height(), tst[c].BitDepth(), tst[c].Margin())
	}

	if r == 0 {
		// No search: SCP degenerates to a straight copy.
		for c := 0; c < numC; c++ {
			copyPlane(p, refSCP[c], ref[c])
			copyPlane(p, tstSCP[c], tst[c])
		}
		for c := 0; c < numC; c++ {
			refSCP[c].Extend()
			tstSCP[c].Extend()
		}
		return Result{RefSCP: refSCP, TstSCP: tstSCP}, nil
	}

	h := ref[0].Height()
	for y := 0; y < h; y++ {
		y := y
		p.AddWaitingTask(func(int) {
			searchRow(ref, tst, refSCP, tstSCP, opts, y)
		})
	}
	p.WaitUntilFinished()

	for c := 0; c < numC; c++ {
		refSCP[c].Extend()
		tstSCP[c].Extend()
	}
	return Result{RefSCP: refSCP, TstSCP: tstSCP}, nil
}

func copyPlane(p *threadpool.ThPI, dst, src *pic.Plane) {
	w := src.Width()
	h := src.Height()
	for y := 0; y < h; y++ {
		y := y
		p.AddWaitingTask(func(int) {
			for x := 0; x < w; x++ {
				dst.Set(x, y, src.At(x, y))
			}
		})
	}
	p.WaitUntilFinished()
}

// searchRow fills row y of refSCP and tstSCP by searching the (2R+1)x(2R+1)
// window around each pixel.
func searchRow(ref, tst, refSCP, tstSCP []*pic.Plane, opts Options, y int) {
	w := ref[0].Width()
	r := opts.SearchRange
	numC := len(ref)

	for x := 0; x < w; x++ {
		// RefSCP[x,y]: best match in Ref to (Tst[x,y] + Delta).
		bestDX, bestDY := bestOffset(ref, numC, x, y, r, func(c int) int32 {
			return int32(tst[c].At(x, y)) + opts.Delta[c]
		}, opts.Weights)
		for c := 0; c < numC; c++ {
			refSCP[c].Set(x, y, ref[c].At(x+bestDX, y+bestDY))
		}

		// TstSCP[x,y]: best match in Tst to (Ref[x,y] - Delta).
		bestDX, bestDY = bestOffset(tst, numC, x, y, r, func(c int) int32 {
			return int32(ref[c].At(x, y)) - opts.Delta[c]
		}, opts.Weights)
		for c := 0; c < numC; c++ {
			tstSCP[c].Set(x, y, tst[c].At(x+bestDX, y+bestDY))
		}
	}
}

// bestOffset searches the (2R+1)x(2R+1) window of planes around (x, y) for
// the offset minimizing the weighted L1 distance to target(c), the
// reference value for each component. Ties favor (0,0), then the first
// offset encountered in row-major order.
func bestOffset(planes []*pic.Plane, numC, x, y, r int, target func(c int) int32, weights [4]float64) (int, int) {
	bestDX, bestDY := 0, 0
	bestScore := scoreOffset(planes, numC, x, y, 0, 0, target, weights)

	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			score := scoreOffset(planes, numC, x, y, dx, dy, target, weights)
			if score < bestScore {
				bestScore = score
				bestDX, bestDY = dx, dy
			}
		}
	}
	return bestDX, bestDY
}

func scoreOffset(planes []*pic.Plane, numC, x, y, dx, dy int, target func(c int) int32, weights [4]float64) float64 {
	var sum float64
	for c := 0; c < numC; c++ {
		v := int32(planes[c].At(x+dx, y+dy))
		diff := v - target(c)
		if diff < 0 {
			diff = -diff
		}
		sum += weights[c] * float64(diff)
	}
	return sum
}
