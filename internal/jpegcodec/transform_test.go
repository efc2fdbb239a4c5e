package jpegcodec

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func TestComponentQuantIndex(t *testing.T) {
	if got := componentQuantIndex(0); got != quantIndexLuminance {
		t.Fatalf("componentQuantIndex(0) = %v, want quantIndexLuminance", got)
	}
	for i := 1; i < maxComponents; i++ {
		if got := componentQuantIndex(i); got != quantIndexChrominance {
			t.Fatalf("componentQuantIndex(%d) = %v, want quantIndexChrominance", i, got)
		}
	}
}

func TestToZigZagBytesRoundTripsNaturalOrder(t *testing.T) {
	var quant [maxTh + 1][blockSize]uint16
	for i := 0; i < blockSize; i++ {
		quant[0][i] = uint16(i + 1)   // luma table, distinct values
		quant[1][i] = uint16(200 - i) // chroma table
	}
	comps := []component{
		{tq: 0}, // luma
		{tq: 1}, // chroma
		{tq: 1}, // chroma, same table selector — should not overwrite
	}

	out := toZigZagBytes(quant, comps)

	for zig := 0; zig < blockSize; zig++ {
		wantLuma := byte(quant[0][unzig[zig]])
		if out[quantIndexLuminance][zig] != wantLuma {
			t.Fatalf("luma[%d] = %d, want %d", zig, out[quantIndexLuminance][zig], wantLuma)
		}
		wantChroma := byte(quant[1][unzig[zig]])
		if out[quantIndexChrominance][zig] != wantChroma {
			t.Fatalf("chroma[%d] = %d, want %d", zig, out[quantIndexChrominance][zig], wantChroma)
		}
	}
}

func TestCropRejectsUndecodableInput(t *testing.T) {
	_, err := Crop([]byte{0xff, 0xd8, 0xff, 0xd9}, CropRect{X: 0, Y: 0, W: 8, H: 8})
	if err == nil {
		t.Fatal("expected an error for input with no frame to decode")
	}
}

// TestCropProducesLosslessPixelAndCoefficientRoundTrip builds a real JPEG via
// Encode (a gradient, so every block has nonzero AC terms, not just a flat
// DC), crops it, and verifies that both the retained pixels and the
// underlying quantized coefficients are exactly unchanged outside the
// cropped-away MCU.
func TestCropProducesLosslessPixelAndCoefficientRoundTrip(t *testing.T) {
	const w, h = 16, 8
	src := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src.SetGray(x, y, color.Gray{Y: byte((x*7 + y*13) % 256)})
		}
	}

	var buf bytes.Buffer
	if err := Encode(&buf, src, nil); err != nil {
		t.Fatalf("Encode fixture: %v", err)
	}
	full := buf.Bytes()

	orig, err := Decode(full)
	if err != nil {
		t.Fatalf("Decode fixture: %v", err)
	}
	if orig.Width != w || orig.Height != h {
		t.Fatalf("fixture dims = %dx%d, want %dx%d", orig.Width, orig.Height, w, h)
	}

	// Crop away the left 8x8 MCU, keeping the right half of the image.
	rect := CropRect{X: 8, Y: 0, W: 8, H: 8}
	cropped, err := Crop(full, rect)
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}

	got, err := Decode(cropped)
	if err != nil {
		t.Fatalf("Decode cropped result: %v", err)
	}
	if got.Width != rect.W || got.Height != rect.H {
		t.Fatalf("cropped dims = %dx%d, want %dx%d", got.Width, got.Height, rect.W, rect.H)
	}

	for y := 0; y < rect.H; y++ {
		for x := 0; x < rect.W; x++ {
			want := orig.Gray[y*w+(x+rect.X)]
			have := got.Gray[y*rect.W+x]
			if want != have {
				t.Fatalf("pixel (%d,%d): cropped=%d, want %d (from source (%d,%d))", x, y, have, want, x+rect.X, y)
			}
		}
	}

	mcuW, _ := orig.Subsampling.mcuSize()
	blockX := rect.X / mcuW
	blocksWideOrig := orig.McuPerRow * orig.Comps[0].h
	blocksWideCrop := got.McuPerRow * got.Comps[0].h
	wantBlock := orig.CompBlocks[0][blockX]
	haveBlock := got.CompBlocks[0][0]
	if wantBlock != haveBlock {
		t.Fatalf("retained block's quantized coefficients changed by crop:\nwant %v\nhave %v", wantBlock, haveBlock)
	}
	// Sanity: the source grid is two blocks wide and the cropped grid one.
	if blocksWideOrig != 2 || blocksWideCrop != 1 {
		t.Fatalf("unexpected block grid width: orig=%d crop=%d", blocksWideOrig, blocksWideCrop)
	}
}
