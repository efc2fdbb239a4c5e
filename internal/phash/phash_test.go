package phash

import (
	"testing"

	"github.com/llindqvist/imgtools/internal/dihedral"
)

// uniform builds a w*h grayscale buffer where every pixel has value v.
func uniform(w, h int, v byte) []byte {
	buf := make([]byte, w*h)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func TestDownsampleUniformImageGivesUniformGrid(t *testing.T) {
	g := Downsample(uniform(16, 16, 128), 16, 16)
	for i, v := range g {
		if v != 128.0 {
			t.Fatalf("cell %d = %v, want 128", i, v)
		}
	}
}

func TestDownsampleNonMultipleOf8Centers(t *testing.T) {
	// 17x17 leaves one unused column on the right and one unused row at
	// the bottom ((17%8)/2 = 0 skipped on the left/top); it should not panic and
	// should still produce a uniform grid for a uniform source image.
	g := Downsample(uniform(17, 17, 64), 17, 17)
	for i, v := range g {
		if v != 64.0 {
			t.Fatalf("cell %d = %v, want 64", i, v)
		}
	}
}

func TestThresholdUniformGridIsZero(t *testing.T) {
	// An all-zero grid has no signal at any frequency, so every DCT
	// coefficient is exactly 0, and Threshold treats 0 as "not set"
	// (it requires strictly greater than zero).
	var g dihedral.Grid
	for i := range g {
		g[i] = 0
	}
	dct := DCT(&g)
	hash := Threshold(&dct)
	if hash != 0 {
		t.Fatalf("Threshold(DCT(zero grid)) = %#x, want 0", hash)
	}
}

func TestHashIsStableAcrossCalls(t *testing.T) {
	g := Downsample(uniform(32, 32, 10), 32, 32)
	g[5] += 3 // break flatness so the hash isn't trivially zero
	h1 := Hash(&g)
	h2 := Hash(&g)
	if h1 != h2 {
		t.Fatalf("Hash is not deterministic: %#x vs %#x", h1, h2)
	}
}

func TestVariantBaseMatchesHash(t *testing.T) {
	g := Downsample(uniform(16, 16, 200), 16, 16)
	g[0] -= 7
	want := Hash(&g)
	got := Variant(dihedral.Base, &g)
	if got != want {
		t.Fatalf("Variant(Base, g) = %#x, want Hash(g) = %#x", got, want)
	}
}

func TestHammingDistance(t *testing.T) {
	cases := []struct {
		a, b uint64
		want int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0xff, 0x00, 8},
		{0xffffffffffffffff, 0, 64},
	}
	for _, c := range cases {
		if got := HammingDistance(c.a, c.b); got != c.want {
			t.Fatalf("HammingDistance(%#x, %#x) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
