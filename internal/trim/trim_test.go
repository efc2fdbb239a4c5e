package trim

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llindqvist/imgtools/internal/config"
	"github.com/llindqvist/imgtools/internal/jpegcodec"
)

func uniformOpts() config.TrimOptions {
	return config.TrimOptions{Margin: 2, GradientThresh: 10, LuminosityThresh: 26}
}

func TestFindBorderUniformRunsToCompletion(t *testing.T) {
	// 8x8 plane, all pixels the same value: no line ever trips the
	// gradient+luminosity gate, so findBorder scans every outer line and
	// returns margin plus that count.
	pix := make([]byte, 8*8)
	for i := range pix {
		pix[i] = 100
	}
	opts := uniformOpts()
	mt := findBorder(pix, 0, 8, 0, 7, +1, 1, 8, opts)
	assert.Equal(t, opts.Margin+7, mt)
}

func TestFindBorderStopsAtContrastLine(t *testing.T) {
	// Rows 0-2 are a flat border; row 3 onward alternates 0/255, which
	// trips both the gradient (adjacent delta) and luminosity (min/max
	// spread) thresholds, so the scan should stop there.
	w, h := 8, 8
	pix := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := byte(100)
			if y >= 3 {
				if x%2 == 0 {
					v = 0
				} else {
					v = 255
				}
			}
			pix[y*w+x] = v
		}
	}
	opts := uniformOpts()
	mt := findBorder(pix, 0, w, 0, h-1, +1, 1, w, opts)
	assert.Equal(t, opts.Margin+3, mt)
}

func TestScanNoCropWhenAllBordersWithinMargin(t *testing.T) {
	w, h := 8, 8
	pix := make([]byte, w*h)
	for i := range pix {
		pix[i] = 100
	}
	// Force every edge's findBorder to stay at exactly Margin by making
	// the outer-most line already high contrast.
	pix[0] = 0
	pix[1] = 255
	pix[w-1] = 0
	pix[w*(h-1)] = 0
	pix[w*(h-1)+1] = 255
	opts := config.TrimOptions{Margin: 0, GradientThresh: 10, LuminosityThresh: 26}
	plan := Scan(pix, w, h, 8, 8, opts)
	assert.False(t, plan.DoCrop)
}

func TestScanProducesMCUAlignedRect(t *testing.T) {
	// An 8px uniform border around a 32x32 checkerboard "content" square
	// should produce a non-empty crop rect aligned to 8x8 MCUs.
	w, h := 48, 48
	pix := make([]byte, w*h)
	for i := range pix {
		pix[i] = 100
	}
	for y := 8; y < 40; y++ {
		for x := 8; x < 40; x++ {
			v := byte(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			pix[y*w+x] = v
		}
	}
	opts := config.TrimOptions{Margin: 1, GradientThresh: 10, LuminosityThresh: 26}
	plan := Scan(pix, w, h, 8, 8, opts)
	require.True(t, plan.DoCrop)
	assert.Equal(t, 0, plan.Rect.X%8)
	assert.Equal(t, 0, plan.Rect.Y%8)
	assert.Equal(t, 0, plan.Rect.W%8)
	assert.Equal(t, 0, plan.Rect.H%8)
}

// TestHandleCropsRealJPEGLosslessly builds a real JPEG (flat border around a
// checkerboard content square), runs it through Handle end to end, and
// checks the file Handle writes back decodes to the same plan Scan computed
// and is pixel-identical to the decoded source JPEG within the retained
// region — the positive counterpart to the error-path-only coverage
// elsewhere in this package and in internal/jpegcodec.
func TestHandleCropsRealJPEGLosslessly(t *testing.T) {
	w, h := 48, 48
	pix := make([]byte, w*h)
	for i := range pix {
		pix[i] = 100
	}
	for y := 8; y < 40; y++ {
		for x := 8; x < 40; x++ {
			v := byte(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			pix[y*w+x] = v
		}
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: pix[y*w+x]})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpegcodec.Encode(&buf, img, nil))
	src, err := jpegcodec.Decode(buf.Bytes())
	require.NoError(t, err)

	opts := config.TrimOptions{Margin: 1, GradientThresh: 10, LuminosityThresh: 26, Force: true}
	wantPlan := Scan(pix, w, h, 8, 8, opts)
	require.True(t, wantPlan.DoCrop)

	dir := t.TempDir()
	path := filepath.Join(dir, "border.jpg")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	require.NoError(t, Handle(path, opts, zerolog.Nop()))

	// Force=true means no .0ld backup and the same path holds the result.
	out, err := os.ReadFile(path)
	require.NoError(t, err)

	cropped, err := jpegcodec.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, wantPlan.Rect.W, cropped.Width)
	assert.Equal(t, wantPlan.Rect.H, cropped.Height)

	for y := 0; y < cropped.Height; y++ {
		for x := 0; x < cropped.Width; x++ {
			want := src.Gray[(y+wantPlan.Rect.Y)*w+(x+wantPlan.Rect.X)]
			have := cropped.Gray[y*cropped.Width+x]
			require.Equalf(t, want, have, "pixel (%d,%d)", x, y)
		}
	}
}
