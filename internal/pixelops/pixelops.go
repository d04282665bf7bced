// Package pixelops provides the pixel-level primitives shared by every
// plane and metric kernel: fill, range clipping/checking, margin
// extension, comparison, and the 2x downsample used by MS-SSIM.
// These operate directly on flat []uint16 buffers
// addressed by (origin, stride) so that Plane (internal/pic), the MS-SSIM
// pyramid (internal/ssim) and color conversion (internal/colorconv) share
// one implementation instead of duplicating loop bodies.
package pixelops

import "fmt"

// Fill sets n elements of buf starting at index 0 to value. Used for
// whole-buffer fills (including margins) of any numeric element type.
func Fill[T any](buf []T, value T, n int) {
	for i := 0; i < n; i++ {
		buf[i] = value
	}
}

// MaxPel returns the maximum representable pel value for bitDepth.
func MaxPel(bitDepth int) uint16 {
	return uint16(1<<uint(bitDepth) - 1)
}

// ClipToRange clamps every pel in the w x h active region (rooted at
// origin with the given stride) to [0, 2^bitDepth - 1].
func ClipToRange(data []uint16, origin, stride, w, h, bitDepth int) {
	maxPel := MaxPel(bitDepth)
	for y := 0; y < h; y++ {
		row := origin + y*stride
		for x := 0; x < w; x++ {
			if data[row+x] > maxPel {
				data[row+x] = maxPel
			}
			// Unsigned storage: no negative clamp is possible.
		}
	}
}

// CheckIfInRange reports whether every pel in the w x h active region is
// within [0, 2^bitDepth - 1].
func CheckIfInRange(data []uint16, origin, stride, w, h, bitDepth int) bool {
	maxPel := MaxPel(bitDepth)
	for y := 0; y < h; y++ {
		row := origin + y*stride
		for x := 0; x < w; x++ {
			if data[row+x] > maxPel {
				return false
			}
		}
	}
	return true
}

// FindOutOfRange scans the w x h active region and returns a formatted
// diagnostic listing up to limit offending (x, y, value) triples.
// limit < 0 means "all offenders."
func FindOutOfRange(data []uint16, origin, stride, w, h, bitDepth int, limit int) string {
	maxPel := MaxPel(bitDepth)
	msg := ""
	n := 0
	for y := 0; y < h; y++ {
		row := origin + y*stride
		for x := 0; x < w; x++ {
			v := data[row+x]
			if v > maxPel {
				if limit >= 0 && n >= limit {
					return msg + fmt.Sprintf(" (+%d more)", countRemaining(data, origin, stride, w, h, bitDepth, y, x))
				}
				if n > 0 {
					msg += "; "
				}
				msg += fmt.Sprintf("(%d,%d)=%d>%d", x, y, v, maxPel)
				n++
			}
		}
	}
	return msg
}

func countRemaining(data []uint16, origin, stride, w, h, bitDepth, fromY, fromX int) int {
	maxPel := MaxPel(bitDepth)
	n := 0
	for y := fromY; y < h; y++ {
		row := origin + y*stride
		startX := 0
		if y == fromY {
			startX = fromX + 1
		}
		for x := startX; x < w; x++ {
			if data[row+x] > maxPel {
				n++
			}
		}
	}
	return n
}

// CompareEqual reports whether the w x h active regions of a and b are
// bitwise identical.
func CompareEqual(a, b []uint16, originA, originB, strideA, strideB, w, h int) bool {
	for y := 0; y < h; y++ {
		rowA := originA + y*strideA
		rowB := originB + y*strideB
		for x := 0; x < w; x++ {
			if a[rowA+x] != b[rowB+x] {
				return false
			}
		}
	}
	return true
}

// ExtendMargin replicates the outermost valid row/column of the w x h
// active region into the surrounding margin pixels. Applying ExtendMargin
// twice in a row is a no-op: the second pass reads back exactly the
// values the first pass wrote into the border, since the border never
// participates as a source pixel.
func ExtendMargin(data []uint16, origin, stride, w, h, margin int) {
	if margin <= 0 {
		return
	}
	// Left/right columns for each active row.
	for y := 0; y < h; y++ {
		row := origin + y*stride
		left := data[row]
		right := data[row+w-1]
		for m := 1; m <= margin; m++ {
			data[row-m] = left
			data[row+w-1+m] = right
		}
	}
	// Top/bottom rows, now including the left/right margins just written,
	// so corners get the nearest active-area corner pel replicated
	// diagonally (matches a single mirrored replication of the edge).
	fullW := w + 2*margin
	topRow := origin - margin
	botRow := origin + (h-1)*stride - margin
	for m := 1; m <= margin; m++ {
		dstTop := origin - m*stride - margin
		dstBot := origin + (h-1+m)*stride - margin
		copy(data[dstTop:dstTop+fullW], data[topRow:topRow+fullW])
		copy(data[dstBot:dstBot+fullW], data[botRow:botRow+fullW])
	}
}

// DownsampleHV performs a 2x2 box-average decimation of the src active
// region into dst, producing a half-resolution plane. dstW/dstH are
// ceil(srcW/2)/ceil(srcH/2); odd trailing rows/columns replicate the last
// source sample instead of averaging past the edge.
func DownsampleHV(dst, src []uint16, originD, originS, strideD, strideS, srcW, srcH int) {
	dstW := (srcW + 1) / 2
	dstH := (srcH + 1) / 2
	for dy := 0; dy < dstH; dy++ {
		sy0 := dy * 2
		sy1 := sy0 + 1
		if sy1 >= srcH {
			sy1 = sy0
		}
		rowD := originD + dy*strideD
		row0 := originS + sy0*strideS
		row1 := originS + sy1*strideS
		for dx := 0; dx < dstW; dx++ {
			sx0 := dx * 2
			sx1 := sx0 + 1
			if sx1 >= srcW {
				sx1 = sx0
			}
			sum := uint32(src[row0+sx0]) + uint32(src[row0+sx1]) + uint32(src[row1+sx0]) + uint32(src[row1+sx1])
			dst[rowD+dx] = uint16((sum + 2) / 4)
		}
	}
}
