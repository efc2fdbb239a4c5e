// Package phash implements the DCT-based perceptual hash described in
// spec.md §4.1: downsample a grayscale image to an 8x8 grid of block means,
// run an orthonormal 8x8 DCT-II, and sign-threshold all 64 coefficients into
// a 64-bit fingerprint. It also computes the seven dihedral transform
// variants by permuting the mean grid rather than the DCT output, which is
// valid because the downsample-to-cell-means step commutes with rotation
// and mirroring of the cell grid.
package phash

import (
	"math/bits"

	"github.com/llindqvist/imgtools/internal/dihedral"
)

// dctRow holds the precomputed orthonormal 8-point DCT-II basis, row y is
// sqrt(2/8)*cos(pi/16 * y * (2x+1)), with row 0 scaled by sqrt(1/8) instead.
// Grounded on the exact coefficient table in the original imghash.c (DCT_O);
// DCT_T there is simply its transpose, so we keep one table and transpose on
// access rather than carrying two copies.
var dctRow = [8][8]float64{
	{0.353553390593, 0.353553390593, 0.353553390593, 0.353553390593, 0.353553390593, 0.353553390593, 0.353553390593, 0.353553390593},
	{0.490392640202, 0.415734806151, 0.277785116510, 0.097545161008, -0.097545161008, -0.277785116510, -0.415734806151, -0.490392640202},
	{0.461939766256, 0.191341716183, -0.191341716183, -0.461939766256, -0.461939766256, -0.191341716183, 0.191341716183, 0.461939766256},
	{0.415734806151, -0.097545161008, -0.490392640202, -0.277785116510, 0.277785116510, 0.490392640202, 0.097545161008, -0.415734806151},
	{0.353553390593, -0.353553390593, -0.353553390593, 0.353553390593, 0.353553390593, -0.353553390593, -0.353553390593, 0.353553390593},
	{0.277785116510, -0.490392640202, 0.097545161008, 0.415734806151, -0.415734806151, -0.097545161008, 0.490392640202, -0.277785116510},
	{0.191341716183, -0.461939766256, 0.461939766256, -0.191341716183, -0.191341716183, 0.461939766256, -0.461939766256, 0.191341716183},
	{0.097545161008, -0.277785116510, 0.415734806151, -0.490392640202, 0.490392640202, -0.415734806151, 0.277785116510, -0.097545161008},
}

// Downsample reduces a W x H (W,H >= 8) 8-bit grayscale image to an 8x8 grid
// of cell means, per spec.md §4.1 step 1: the interior region is centered,
// skipping (W%8)/2 columns on the left and (H%8)/2 rows on top.
func Downsample(gray []byte, w, h int) dihedral.Grid {
	dx := w / 8
	dy := h / 8
	x0 := (w % 8) / 2
	y0 := (h % 8) / 2

	var out dihedral.Grid
	i := 0
	for by := 0; by < 8; by++ {
		for bx := 0; bx < 8; bx++ {
			var sum float64
			for dyy := 0; dyy < dy; dyy++ {
				row := y0 + by*dy + dyy
				base := row*w + x0 + bx*dx
				for dxx := 0; dxx < dx; dxx++ {
					sum += float64(gray[base+dxx])
				}
			}
			out[i] = sum / float64(dx*dy)
			i++
		}
	}
	return out
}

// DCT applies the 2D DCT-II to an 8x8 mean grid, returning the 64
// coefficients in row-major order. D . M . D^T, computed directly rather
// than via two matrix multiplies since only a single 8x8 block is ever
// transformed.
func DCT(g *dihedral.Grid) [64]float64 {
	var dct [64]float64
	for y := 0; y < 8; y++ {
		dctRowY := dctRow[y]
		for x := 0; x < 8; x++ {
			var tmp float64
			for i := 0; i < 8; i++ {
				tmp += dctRowY[i] * g[x+i*8]
			}
			// D^T column x, row i is dctRow[i][x] (D is not symmetric).
			for i := 0; i < 8; i++ {
				dct[8*y+i] += dctRow[i][x] * tmp
			}
		}
	}
	return dct
}

// Threshold packs 64 DCT coefficients into a 64-bit hash: bit i is 1 iff
// coefficient i is strictly positive. The DC term is not excluded — it is
// kept in the threshold exactly like every other coefficient, per spec.md
// §4.1.
func Threshold(dct *[64]float64) uint64 {
	var ret uint64
	for i, v := range dct {
		if v > 0.0 {
			ret |= 1 << uint(i)
		}
	}
	return ret
}

// Hash runs DCT + Threshold over a mean grid in one step.
func Hash(g *dihedral.Grid) uint64 {
	dct := DCT(g)
	return Threshold(&dct)
}

// Variant computes the hash for a single dihedral transform of the base mean
// grid.
func Variant(t dihedral.Index, base *dihedral.Grid) uint64 {
	g := dihedral.Apply(t, base)
	return Hash(&g)
}

// HammingDistance returns the popcount of a XOR b.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
