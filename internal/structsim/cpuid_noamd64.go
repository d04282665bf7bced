//go:build !amd64

package structsim

// hasAVX2/hasAVX512 are always false off amd64; structsim falls back to
// the portable BlockAveraged kernel everywhere else.
const (
	hasAVX2   = false
	hasAVX512 = false
)

// HasAVX2 reports whether the running CPU supports AVX2.
func HasAVX2() bool { return hasAVX2 }

// HasAVX512 reports whether the running CPU supports AVX-512F.
func HasAVX512() bool { return hasAVX512 }
