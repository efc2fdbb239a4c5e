// Package imgdecode adapts arbitrary image files to the grayscale pixel
// buffer internal/phash needs, plus the EXIF timestamp the hasher's record
// mode reports. Two paths exist, mirroring imghash.c's decompress_item:
// internal/jpegcodec is tried first (the reentrant, purpose-built decoder),
// and any image Go's standard library (plus golang.org/x/image) can decode
// falls back to a generic path serialized behind fallbackMu — keeping the
// single-in-flight-decode contract imghash.c's Imlib2 fallback required,
// even though none of the fallback decoders here actually need it.
package imgdecode

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/llindqvist/imgtools/internal/jpegcodec"
)

// fallbackMu serializes the standard-library decode path process-wide. Kept
// even though image/jpeg, image/png, etc. are individually reentrant: it
// preserves the single-decoder-in-flight contract the original Imlib2
// fallback required, which spec.md treats as part of the behavioral
// contract under test rather than an implementation detail.
var fallbackMu sync.Mutex

// Gray is a decoded grayscale image ready for internal/phash.
type Gray struct {
	W, H int
	Pix  []byte
}

// Decode converts a file's raw bytes to a grayscale pixel buffer, trying
// internal/jpegcodec first and falling back to the standard decoders.
func Decode(data []byte) (Gray, error) {
	if looksLikeJPEG(data) {
		if img, err := jpegcodec.Decode(data); err == nil {
			return Gray{W: img.Width, H: img.Height, Pix: img.Gray}, nil
		}
	}
	return decodeFallback(data)
}

func looksLikeJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xff && data[1] == 0xd8
}

// decodeFallback decodes via the standard image package (plus bmp/tiff),
// converting to luma with spec.md's 0.30/0.58/0.12 weights rather than Go's
// own color.Gray conversion, which uses different coefficients.
func decodeFallback(data []byte) (Gray, error) {
	fallbackMu.Lock()
	defer fallbackMu.Unlock()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Gray{}, errors.Wrap(err, "imgdecode: fallback decode")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, w*h)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := 0.30*float64(r>>8) + 0.58*float64(g>>8) + 0.12*float64(bl>>8)
			pix[i] = clampByte(lum)
			i++
		}
	}
	return Gray{W: w, H: h, Pix: pix}, nil
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}

// exifTimeLayout is the format every EXIF date/time tag uses.
const exifTimeLayout = "2006:01:02 15:04:05"

// exifTagOrder is the lookup order for an item's embedded timestamp,
// matching imghash.c's handle_item EXIF scan.
var exifTagOrder = []exif.FieldName{
	exif.DateTimeOriginal,
	exif.DateTimeDigitized,
	exif.DateTime,
}

// ExtractTime returns the first populated DateTimeOriginal / DateTimeDigitized
// / DateTime EXIF tag, parsed in local time. ok is false if the file has no
// EXIF segment or none of those tags parse.
func ExtractTime(data []byte) (t time.Time, ok bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return time.Time{}, false
	}
	for _, tag := range exifTagOrder {
		v, err := x.Get(tag)
		if err != nil {
			continue
		}
		s, err := v.StringVal()
		if err != nil {
			continue
		}
		parsed, err := time.ParseInLocation(exifTimeLayout, s, time.Local)
		if err != nil {
			continue
		}
		return parsed, true
	}
	return time.Time{}, false
}
