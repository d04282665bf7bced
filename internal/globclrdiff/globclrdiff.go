// Package globclrdiff computes the picture-wide per-component color
// difference used to pre-shift reference and test pictures before
// shift-compensated comparison. Δ[c] is the mean of
// (Ref[x,y,c] − Tst[x,y,c]) over every pixel, rounded and clamped to
// [−T[c], T[c]] where T[c] = round(U[c]·maxPel).
package globclrdiff

import (
	"math"

	"github.com/immersive-video/ivqm/internal/kbns"
	"github.com/immersive-video/ivqm/internal/pic"
	"github.com/immersive-video/ivqm/internal/threadpool"
)

// Delta is the clamped integer per-component color difference, one entry
// per plane passed to Compute.
type Delta [4]int32

// Compute returns Δ for up to 4 component planes of ref/tst, parallelizing
// the row sums through p (one ThPI task per row), with each row's partial
// sum folded into a KBNS lane to avoid precision loss over large pictures. u
// holds the per-component unnoticeable-difference coefficients; entries
// beyond len(ref) are ignored.
func Compute(p *threadpool.ThPI, ref, tst []*pic.Plane, u []float64) Delta {
	var delta Delta
	for c := range ref {
		delta[c] = int32(computeComponent(p, ref[c], tst[c], u[c]))
	}
	return delta
}

func computeComponent(p *threadpool.ThPI, ref, tst *pic.Plane, u float64) int64 {
	h := ref.Height()
	w := ref.Width()
	rowSums := make([]float64, h)

	for y := 0; y < h; y++ {
		y := y
		p.AddWaitingTask(func(int) {
			rowSums[y] = rowDiffSum(ref, tst, y, w)
		})
	}
	p.WaitUntilFinished()

	var k kbns.KBNS
	for _, s := range rowSums {
		k.Add(s)
	}

	n := float64(w * h)
	if n == 0 {
		return 0
	}
	mean := k.Sum() / n
	d := roundHalfAway(mean)

	maxPel := float64(ref.MaxPel())
	t := int64(roundHalfAway(u * maxPel))
	if d > t {
		d = t
	}
	if d < -t {
		d = -t
	}
	return d
}

func rowDiffSum(ref, tst *pic.Plane, y, w int) float64 {
	var sum float64
	for x := 0; x < w; x++ {
		sum += float64(ref.At(x, y)) - float64(tst.At(x, y))
	}
	return sum
}

func roundHalfAway(f float64) int64 {
	if f >= 0 {
		return int64(math.Floor(f + 0.5))
	}
	return int64(math.Ceil(f - 0.5))
}
