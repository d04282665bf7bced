package structsim

// uniformStats computes window statistics with every pixel weighted
// equally (RegularAveraged, BlockAveraged).
func uniformStats(tst, ref []uint16, origin, stride, w int) windowStats {
	n := float64(w * w)
	var sumT, sumR, sumTT, sumRR, sumTR float64
	for y := 0; y < w; y++ {
		row := origin + y*stride
		for x := 0; x < w; x++ {
			tv := float64(tst[row+x])
			rv := float64(ref[row+x])
			sumT += tv
			sumR += rv
			sumTT += tv * tv
			sumRR += rv * rv
			sumTR += tv * rv
		}
	}
	muT := sumT / n
	muR := sumR / n
	return windowStats{
		muT:  muT,
		muR:  muR,
		varT: sumTT/n - muT*muT,
		varR: sumRR/n - muR*muR,
		covTR: sumTR/n - muT*muR,
	}
}

// gaussianFloatStats computes window statistics weighted by the
// normalized float Gaussian kernel (RegularGaussianFlt).
func gaussianFloatStats(tst, ref []uint16, origin, stride, w int) windowStats {
	weights := GaussianFloat(w)
	var sumT, sumR, sumTT, sumRR, sumTR float64
	for y := 0; y < w; y++ {
		row := origin + y*stride
		wrow := y * w
		for x := 0; x < w; x++ {
			wt := weights[wrow+x]
			tv := float64(tst[row+x])
			rv := float64(ref[row+x])
			sumT += wt * tv
			sumR += wt * rv
			sumTT += wt * tv * tv
			sumRR += wt * rv * rv
			sumTR += wt * tv * rv
		}
	}
	// Weights already sum to 1, so sumT etc. are the weighted means
	// directly.
	return windowStats{
		muT:   sumT,
		muR:   sumR,
		varT:  sumTT - sumT*sumT,
		varR:  sumRR - sumR*sumR,
		covTR: sumTR - sumT*sumR,
	}
}

// gaussianIntStats computes window statistics weighted by the fixed-point
// integer Gaussian kernel (RegularGaussianInt, BlockGaussianInt),
// accumulating in integer arithmetic and dividing by 2^18 only at the
// end.
func gaussianIntStats(tst, ref []uint16, origin, stride, w int) windowStats {
	weights := GaussianInt(w)
	var sumT, sumR int64
	var sumTT, sumRR, sumTR int64
	for y := 0; y < w; y++ {
		row := origin + y*stride
		wrow := y * w
		for x := 0; x < w; x++ {
			wt := weights[wrow+x]
			tv := int64(tst[row+x])
			rv := int64(ref[row+x])
			sumT += wt * tv
			sumR += wt * rv
			sumTT += wt * tv * tv
			sumRR += wt * rv * rv
			sumTR += wt * tv * rv
		}
	}
	const scale = float64(gaussianScale)
	muT := float64(sumT) / scale
	muR := float64(sumR) / scale
	return windowStats{
		muT:   muT,
		muR:   muR,
		varT:  float64(sumTT)/scale - muT*muT,
		varR:  float64(sumRR)/scale - muR*muR,
		covTR: float64(sumTR)/scale - muT*muR,
	}
}
