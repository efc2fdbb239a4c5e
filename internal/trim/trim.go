// Package trim finds the JPEG-block-aligned border around a photo's real
// content and, if one is found wider than the configured margin, crops it
// away losslessly via internal/jpegcodec. It is the Go analogue of
// jpgtrim.c's findborder/crop/handle trio, minus turbojpeg: decoding,
// border scan and re-encode all happen through internal/jpegcodec instead.
package trim

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/llindqvist/imgtools/internal/config"
	"github.com/llindqvist/imgtools/internal/jpegcodec"
)

// Plan is the outcome of scanning one image for a border: the widths found
// on each edge and, if they warrant a crop, the MCU-aligned rectangle to
// keep.
type Plan struct {
	Top, Bottom, Left, Right int
	Rect                     jpegcodec.CropRect
	DoCrop                   bool
}

// Scan walks inward from all four edges of a grayscale w*h pixel buffer and
// reports the widest border found on each side, then — mirroring handle()'s
// gate — decides whether any edge exceeds the configured margin and, if so,
// whether the resulting rectangle rounds to a valid non-empty MCU-aligned
// crop.
func Scan(pix []byte, w, h, mcuW, mcuH int, opts config.TrimOptions) Plan {
	mt := findBorder(pix, 0, w, 0, h-1, +1, 1, w, opts)
	mb := findBorder(pix, 0, w, h-1, -1, -1, 1, w, opts)
	ml := findBorder(pix, mt, h-mb, 0, w-1, +1, w, 1, opts)
	mr := findBorder(pix, mt, h-mb, w-1, -1, -1, w, 1, opts)

	plan := Plan{Top: mt, Bottom: mb, Left: ml, Right: mr}
	if mt <= opts.Margin && mb <= opts.Margin && ml <= opts.Margin && mr <= opts.Margin {
		return plan
	}

	xm := ml % mcuW
	ym := mt % mcuH
	cx := ml + (mcuW - xm)
	cy := mt + (mcuH - ym)
	cw := w - mr - xm - cx
	cw -= cw % mcuW
	ch := h - mb - ym - cy
	ch -= ch % mcuH

	plan.Rect = jpegcodec.CropRect{X: cx, Y: cy, W: cw, H: ch}
	plan.DoCrop = cw > 0 && ch > 0 && cx+cw <= w && cy+ch <= h
	return plan
}

// findBorder scans outer lines os..oe (stepping od) of a w*h buffer indexed
// as data[o*oM+i*iM], each line itself scanned over the inner range
// is..ie. It returns how many consecutive lines, starting at opts.Margin,
// look like uniform border before one crosses both the gradient and
// luminosity thresholds and is judged to be content.
//
// The inner loop's delta skip condition is `i != 0`, literally, not
// `i != is`: for the left/right scans (where is is the content-row floor
// mt, not 0) this makes the very first sample of every line compare
// against the sentinel prev=-1, which can inflate that one delta. This
// mirrors findborder()'s own loop guard exactly.
func findBorder(data []byte, is, ie, os, oe, od, iM, oM int, opts config.TrimOptions) int {
	ret := opts.Margin
	for o := os; o != oe; o += od {
		min, max, di, prev := 1000, 0, 0, -1
		for i := is; i < ie; i++ {
			v := int(data[o*oM+i*iM])
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			if i != 0 {
				if delta := abs(prev - v); delta > di {
					di = delta
				}
			}
			prev = v
		}
		if di > opts.GradientThresh && abs(min-max) > opts.LuminosityThresh {
			break
		}
		ret++
	}
	return ret
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Handle reads one JPEG file, scans it for a border, and — unless opts is a
// dry run — overwrites it in place with the cropped version, keeping a
// backup copy under opts.OutputSuffix unless opts.Force is set. It mirrors
// handle()'s decode/scan/crop/report sequence, log.Logger standing in for
// the C tool's warnx/printf pair.
func Handle(path string, opts config.TrimOptions, log zerolog.Logger) error {
	srcbuf, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "trim: read %s", path)
	}

	img, err := jpegcodec.Decode(srcbuf)
	if err != nil {
		return errors.Wrapf(err, "trim: decode %s", path)
	}

	mcuW, mcuH := img.Subsampling.MCUSize()
	plan := Scan(img.Gray, img.Width, img.Height, mcuW, mcuH, opts)

	if plan.Top <= opts.Margin && plan.Bottom <= opts.Margin && plan.Left <= opts.Margin && plan.Right <= opts.Margin {
		return nil
	}

	if opts.Verbosity > 1 || (opts.Verbosity > 0 && plan.DoCrop) {
		log.Info().
			Str("path", path).
			Bool("crop", plan.DoCrop).
			Int("l", plan.Left).Int("t", plan.Top).Int("r", plan.Right).Int("b", plan.Bottom).
			Int("w", img.Width).Int("h", img.Height).
			Int("cw", plan.Rect.W).Int("ch", plan.Rect.H).
			Int("cx", plan.Rect.X).Int("cy", plan.Rect.Y).
			Msg("border")
	}

	if !plan.DoCrop || opts.DryRun {
		return nil
	}
	return crop(srcbuf, path, plan.Rect, opts)
}

// crop performs the re-encode and file swap: back up the original (unless
// clobbering), write the cropped bytes, and restore the backup if the write
// fails. Mirrors crop()'s rename-then-fwrite-then-rename-back sequence.
func crop(srcbuf []byte, path string, rect jpegcodec.CropRect, opts config.TrimOptions) error {
	out, err := jpegcodec.Crop(srcbuf, rect)
	if err != nil {
		return errors.Wrapf(err, "trim: crop %s", path)
	}

	var backup string
	if !opts.Force {
		suffix := opts.OutputSuffix
		if suffix == "" {
			suffix = DefaultOldSuffix
		}
		backup = path + suffix
		if err := os.Rename(path, backup); err != nil {
			return errors.Wrapf(err, "trim: cannot backup %s, skipping", path)
		}
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		if backup != "" {
			_ = os.Rename(backup, path)
		}
		return errors.Wrapf(err, "trim: write %s", path)
	}
	return nil
}

// DefaultOldSuffix is the backup suffix used when -o/--oldsuffix is unset,
// matching jpgtrim.c's default_oldext.
const DefaultOldSuffix = ".0ld"
