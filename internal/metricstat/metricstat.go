// Package metricstat implements the per-metric frame log, sequence
// average, and timing: accumulate one record per frame, finalize the
// KBNS-reduced averages once at the end.
package metricstat

import (
	"time"

	"github.com/immersive-video/ivqm/internal/kbns"
)

// Kind identifies which metric a Stat tracks.
type Kind int

const (
	KindPSNR Kind = iota
	KindWSPSNR
	KindIVPSNR
	KindSSIM
	KindMSSSIM
	KindIVSSIM
	KindIVMSSSIM
)

func (k Kind) String() string {
	switch k {
	case KindPSNR:
		return "PSNR"
	case KindWSPSNR:
		return "WS-PSNR"
	case KindIVPSNR:
		return "IV-PSNR"
	case KindSSIM:
		return "SSIM"
	case KindMSSSIM:
		return "MS-SSIM"
	case KindIVSSIM:
		return "IV-SSIM"
	case KindIVMSSSIM:
		return "IV-MS-SSIM"
	default:
		return "Unknown"
	}
}

// Stat accumulates one metric's per-frame results across a sequence.
type Stat struct {
	Kind Kind
	// Enabled reports whether this metric was requested; a disabled
	// Stat accepts no records.
	Enabled bool
	// ComponentWeights are the integer component weights the Stat was
	// created with. They are stored for inspection only: RecordFrame takes
	// the per-picture value from the caller and Stat never applies them.
	ComponentWeights [4]int
	NumComponents    int

	perComponent [][4]float64
	perPicture   []float64
	// AnyFake marks that at least one frame was computed without a real
	// mask but against a synthetic (all-ones) one, or hit MSE == 0.
	AnyFake bool

	ticks kbns.KBNS // accumulated wall-clock duration in nanoseconds
}

// NewStat creates a Stat for the given kind with numComponents active
// planes and the given component weights.
func NewStat(kind Kind, numComponents int, weights [4]int) *Stat {
	return &Stat{
		Kind:             kind,
		Enabled:          true,
		ComponentWeights: weights,
		NumComponents:    numComponents,
	}
}

// RecordFrame appends one frame's per-component values, the precomputed
// picture-level value, whether this frame used a synthetic mask, and the
// wall-clock duration spent computing it.
func (s *Stat) RecordFrame(perComponent [4]float64, picture float64, fake bool, elapsed time.Duration) {
	if !s.Enabled {
		return
	}
	s.perComponent = append(s.perComponent, perComponent)
	s.perPicture = append(s.perPicture, picture)
	if fake {
		s.AnyFake = true
	}
	s.ticks.Add(float64(elapsed.Nanoseconds()))
}

// NumFrames reports how many frames have been recorded.
func (s *Stat) NumFrames() int {
	return len(s.perPicture)
}

// PerFrameComponent returns the recorded per-component value for frame i,
// component c.
func (s *Stat) PerFrameComponent(i, c int) float64 {
	return s.perComponent[i][c]
}

// PerFramePicture returns the recorded picture-level value for frame i.
func (s *Stat) PerFramePicture(i int) float64 {
	return s.perPicture[i]
}

// Average is the finalized sequence result: per-component and
// picture-level KBNS-reduced means, plus the total and per-frame average
// elapsed time.
type Average struct {
	Kind           Kind
	PerComponent   [4]float64
	Picture        float64
	AnyFake        bool
	NumFrames      int
	TotalElapsed   time.Duration
	AverageElapsed time.Duration
}

// Finalize computes the sequence average over every recorded frame, using
// KBNS for both the per-component and picture-level reductions.
func (s *Stat) Finalize() Average {
	n := len(s.perPicture)
	avg := Average{Kind: s.Kind, AnyFake: s.AnyFake, NumFrames: n}
	if n == 0 {
		return avg
	}

	for c := 0; c < s.NumComponents; c++ {
		var k kbns.KBNS
		for i := 0; i < n; i++ {
			k.Add(s.perComponent[i][c])
		}
		avg.PerComponent[c] = k.Sum() / float64(n)
	}

	var kp kbns.KBNS
	for i := 0; i < n; i++ {
		kp.Add(s.perPicture[i])
	}
	avg.Picture = kp.Sum() / float64(n)

	totalNanos := s.ticks.Sum()
	avg.TotalElapsed = time.Duration(totalNanos)
	avg.AverageElapsed = time.Duration(totalNanos / float64(n))
	return avg
}

// Stamp pairs a wall-clock time point with a monotonic tick reading, used
// to calibrate ticks into milliseconds for timing reports.
type Stamp struct {
	Wall  time.Time
	Ticks int64
}

// Now captures the current wall-clock/monotonic pair.
func Now() Stamp {
	now := time.Now()
	return Stamp{Wall: now, Ticks: now.UnixNano()}
}

// Since returns the elapsed wall-clock duration between two stamps.
func Since(start Stamp) time.Duration {
	return time.Since(start.Wall)
}
