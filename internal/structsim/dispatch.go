package structsim

// KernelFunc is the dispatch signature every windowing-mode kernel
// implements, matching CalcWnd's parameter shape so the dispatch table
// entries are drop-in replacements for each other.
type KernelFunc func(tst, ref []uint16, origin, stride, w, bitDepth int, calcLuminance bool) (float64, error)

// kernels is the function-pointer dispatch table populated by init(), one
// entry per windowing mode. BlockAveraged is the one entry that a
// capability-gated init (simd_dispatch.go) may override.
var kernels [5]KernelFunc

func init() {
	for m := Mode(0); m < 5; m++ {
		mode := m
		kernels[m] = func(tst, ref []uint16, origin, stride, w, bitDepth int, calcLuminance bool) (float64, error) {
			return CalcWnd(mode, tst, ref, origin, stride, w, bitDepth, calcLuminance)
		}
	}
}

// Dispatch returns the kernel function registered for mode.
func Dispatch(mode Mode) KernelFunc {
	return kernels[mode]
}
