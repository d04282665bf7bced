// Package kbns implements Kahan-Babuska-Neumaier compensated summation,
// used by every metric kernel that averages more than a handful of terms.
// Plain naive accumulation is not acceptable for sequence-length
// reductions: per-row partial sums from hundreds of frames would otherwise
// drift in the low mantissa bits and make sequence averages
// order-dependent.
package kbns

// KBNS accumulates a running sum with a Neumaier compensation term. The
// zero value is a valid empty accumulator.
type KBNS struct {
	s float64 // running sum
	c float64 // compensation
}

// Add folds v into the running sum.
func (k *KBNS) Add(v float64) {
	t := k.s + v
	if abs(k.s) >= abs(v) {
		k.c += (k.s - t) + v
	} else {
		k.c += (v - t) + k.s
	}
	k.s = t
}

// Sum returns the compensated total accumulated so far.
func (k *KBNS) Sum() float64 {
	return k.s + k.c
}

// Reset zeroes the accumulator for reuse.
func (k *KBNS) Reset() {
	k.s = 0
	k.c = 0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Sum reduces a slice of doubles with KBNS in a single call, for callers
// that already have every term materialized (e.g. finalizing a per-frame
// log into a sequence average).
func Sum(vs []float64) float64 {
	var k KBNS
	for _, v := range vs {
		k.Add(v)
	}
	return k.Sum()
}

// Mean is Sum(vs) / len(vs). Returns 0 for an empty slice.
func Mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	return Sum(vs) / float64(len(vs))
}

// KBNS4 is the component-wise 4-lane extension used by per-component
// metrics. Lanes are independent; there is no
// cross-lane interaction, only batching for convenience at call sites that
// carry up to 4 picture components.
type KBNS4 [4]KBNS

// Add folds a 4-vector into the four lanes.
func (k *KBNS4) Add(v [4]float64) {
	for c := 0; c < 4; c++ {
		k[c].Add(v[c])
	}
}

// Sum returns the compensated total per lane.
func (k *KBNS4) Sum() [4]float64 {
	var out [4]float64
	for c := 0; c < 4; c++ {
		out[c] = k[c].Sum()
	}
	return out
}

// Reset zeroes every lane.
func (k *KBNS4) Reset() {
	for c := 0; c < 4; c++ {
		k[c].Reset()
	}
}
