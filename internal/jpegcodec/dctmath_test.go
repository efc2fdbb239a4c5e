package jpegcodec

import "testing"

func TestClamp8ClampsOutOfRange(t *testing.T) {
	cases := []struct {
		in   float64
		want byte
	}{
		{-10, 0},
		{0, 0},
		{128, 128},
		{255, 255},
		{300, 255},
	}
	for _, c := range cases {
		if got := clamp8(c.in); got != c.want {
			t.Fatalf("clamp8(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFdctIdctRoundTripsFlatBlock(t *testing.T) {
	var b block
	for i := range b {
		b[i] = 128
	}
	fdct(&b)

	// A perfectly flat block has zero energy at every AC frequency; only
	// the DC term (index 0) should be nonzero once level-shifted by -128.
	for i := 1; i < blockSize; i++ {
		if b[i] != 0 {
			t.Fatalf("AC coefficient %d = %d, want 0 for a flat block", i, b[i])
		}
	}

	var coeff [64]float64
	for i, v := range b {
		coeff[i] = float64(v)
	}
	out := idct(&coeff)
	for i, v := range out {
		if v != 128 {
			t.Fatalf("idct roundtrip pixel %d = %d, want 128", i, v)
		}
	}
}

func TestMcuSizeKnownSubsamplings(t *testing.T) {
	cases := []struct {
		s    Subsampling
		w, h int
	}{
		{Subsample444, 8, 8},
		{Subsample422, 16, 8},
		{Subsample420, 16, 16},
		{Subsample440, 8, 16},
		{Subsample411, 32, 8},
		{Subsample410, 32, 16},
		{SubsampleGray, 8, 8},
	}
	for _, c := range cases {
		w, h := c.s.mcuSize()
		if w != c.w || h != c.h {
			t.Fatalf("%v.mcuSize() = %d,%d want %d,%d", c.s, w, h, c.w, c.h)
		}
	}
}
