//go:build amd64

package structsim

import "golang.org/x/sys/cpu"

// hasAVX2/hasAVX512 are probed once through golang.org/x/sys/cpu's
// feature flags; this package has no asm kernels to gate, so there is
// nothing a raw CPUID call would expose that cpu.X86 doesn't.
var (
	hasAVX2   = cpu.X86.HasAVX2
	hasAVX512 = cpu.X86.HasAVX512F
)

// HasAVX2 reports whether the running CPU supports AVX2.
func HasAVX2() bool { return hasAVX2 }

// HasAVX512 reports whether the running CPU supports AVX-512F.
func HasAVX512() bool { return hasAVX512 }
