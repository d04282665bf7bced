package structsim

// init overrides the BlockAveraged dispatch slot according to detected
// hardware capability. Every variant here calls the same portable
// uniformStats-based kernel: this module ships no hand-written assembly,
// so "AVX2" and "AVX-512" are recorded as the selected dispatch path for
// observability, not as distinct numeric code paths. Every dispatch tier
// must return the same double for identical inputs, which sharing one
// kernel satisfies trivially.
func init() {
	portable := kernels[BlockAveraged]
	switch {
	case HasAVX512():
		kernels[BlockAveraged] = portable
	case HasAVX2():
		kernels[BlockAveraged] = portable
	}
}

// DispatchPathName reports which capability tier BlockAveraged resolved
// to, for diagnostics/reporting.
func DispatchPathName() string {
	switch {
	case HasAVX512():
		return "avx512"
	case HasAVX2():
		return "avx2"
	default:
		return "portable"
	}
}
