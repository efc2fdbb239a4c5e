package jpegcodec

import (
	"bufio"
	"bytes"

	"github.com/pkg/errors"
)

// CropRect is a pixel-space crop origin and size. Crop requires both the
// origin and the size to be multiples of the source file's MCU dimensions
// (spec.md §4.6); Crop itself only checks this, the caller (internal/trim)
// is responsible for rounding a border-scan result to the MCU grid before
// calling in.
type CropRect struct {
	X, Y, W, H int
}

// Crop performs a coefficient-domain lossless crop: the source is fully
// decoded (the same pass Decode makes, which also renders the luma plane),
// the block grid is sliced to the requested MCU-aligned rectangle, each
// retained block's integer quantization levels are recovered by exact
// division of its dequantized coefficients by the source's quantization
// steps, and a new baseline JPEG is emitted from those levels using the
// source's own quantization tables and sampling factors. No level is ever
// requantized, which is what makes the crop lossless.
func Crop(data []byte, rect CropRect) ([]byte, error) {
	sr := &simpleByteReader{data: data}
	d := &decoder{}
	img, err := d.decode(sr)
	if err != nil {
		return nil, errors.Wrap(err, "jpegcodec: crop: decode source")
	}

	mcuW, mcuH := img.Subsampling.mcuSize()
	if rect.X%mcuW != 0 || rect.Y%mcuH != 0 || rect.W%mcuW != 0 || rect.H%mcuH != 0 {
		return nil, errors.Errorf("jpegcodec: crop rect (%d,%d,%d,%d) is not aligned to the %dx%d MCU grid", rect.X, rect.Y, rect.W, rect.H, mcuW, mcuH)
	}
	if rect.X < 0 || rect.Y < 0 || rect.X+rect.W > img.McuPerRow*mcuW || rect.Y+rect.H > img.McuPerCol*mcuH {
		return nil, errors.Errorf("jpegcodec: crop rect (%d,%d,%d,%d) exceeds source MCU grid %dx%d MCUs", rect.X, rect.Y, rect.W, rect.H, img.McuPerRow, img.McuPerCol)
	}

	mcuX0, mcuY0 := rect.X/mcuW, rect.Y/mcuH
	mcuCropW, mcuCropH := rect.W/mcuW, rect.H/mcuH

	var e encoder
	var out bytes.Buffer
	e.w = bufio.NewWriter(&out)

	e.write([]byte{0xff, 0xd8}) // SOI
	e.writeDQTFrom(toZigZagBytes(img.Quant, img.Comps))
	// SOF0 carries the source's own sampling factors, so the retained MCUs
	// are laid out exactly as they were read.
	e.writeMarkerHeader(sof0Marker, 8+3*len(img.Comps))
	e.write([]byte{8, byte(rect.H >> 8), byte(rect.H), byte(rect.W >> 8), byte(rect.W), byte(len(img.Comps))})
	for i, c := range img.Comps {
		e.write([]byte{byte(i + 1), byte(c.h<<4 | c.v), byte(componentQuantIndex(i))})
	}
	e.writeDHT(len(img.Comps))
	if err := e.writeCroppedSOS(img, mcuX0, mcuY0, mcuCropW, mcuCropH); err != nil {
		return nil, err
	}
	e.write([]byte{0xff, 0xd9}) // EOI
	e.flush()
	if e.err != nil {
		return nil, errors.Wrap(e.err, "jpegcodec: crop: encode")
	}
	return out.Bytes(), nil
}

// componentQuantIndex maps a component to one of the two quantization
// tables the writer machinery supports: component 0 (luma) always uses
// quantIndexLuminance, every other component uses quantIndexChrominance.
// This mirrors the teacher encoder's own hard-coded two-table layout and is
// the JPEG convention nearly every baseline encoder (including turbojpeg's
// default settings) follows for 4:2:0/4:2:2/4:4:4 YCbCr.
func componentQuantIndex(i int) quantIndex {
	if i == 0 {
		return quantIndexLuminance
	}
	return quantIndexChrominance
}

// toZigZagBytes converts each referenced component's natural-order
// quantization table back to the zig-zag byte order DQT markers use,
// slotted into the writer's fixed two-table [nQuantIndex] layout.
func toZigZagBytes(quant [maxTh + 1][blockSize]uint16, comps []component) [nQuantIndex][blockSize]byte {
	var out [nQuantIndex][blockSize]byte
	seen := [nQuantIndex]bool{}
	for i, c := range comps {
		qi := componentQuantIndex(i)
		if seen[qi] {
			continue
		}
		seen[qi] = true
		natural := quant[c.tq]
		for zig := 0; zig < blockSize; zig++ {
			out[qi][zig] = byte(natural[unzig[zig]])
		}
	}
	return out
}

// writeCroppedSOS writes the Start Of Scan marker and the retained blocks
// for a crop spanning [mcuX0, mcuX0+mcuCropW) x [mcuY0, mcuY0+mcuCropH) in
// MCU units, re-differencing each component's DC terms from a predictor
// that resets to zero at the start of the cropped scan (per Annex F.2.2's
// restart semantics — a crop is equivalent to always restarting here).
func (e *encoder) writeCroppedSOS(img *Image, mcuX0, mcuY0, mcuCropW, mcuCropH int) error {
	switch len(img.Comps) {
	case 1:
		e.write(sosHeaderY)
	default:
		e.write(sosHeaderYCbCr)
	}

	prevDC := make([]int32, len(img.Comps))
	for my := 0; my < mcuCropH; my++ {
		for mx := 0; mx < mcuCropW; mx++ {
			for ci, c := range img.Comps {
				blocksWide := img.McuPerRow * c.h
				natural := img.Quant[c.tq]
				for by := 0; by < c.v; by++ {
					for bx := 0; bx < c.h; bx++ {
						srcMX, srcMY := mcuX0+mx, mcuY0+my
						blockX := srcMX*c.h + bx
						blockY := srcMY*c.v + by
						idx := blockY*blocksWide + blockX
						if idx < 0 || idx >= len(img.CompBlocks[ci]) {
							return errors.Errorf("jpegcodec: crop: block index %d out of range for component %d", idx, ci)
						}
						b := img.CompBlocks[ci][idx]

						var levels [blockSize]int32
						for zig := 0; zig < blockSize; zig++ {
							pos := unzig[zig]
							q := int32(natural[pos])
							if q == 0 {
								return errors.New("jpegcodec: crop: zero quantization step in source")
							}
							levels[zig] = b[pos] / q
						}

						qi := componentQuantIndex(ci)
						prevDC[ci] = e.writeQuantizedBlock(&levels, qi, prevDC[ci])
					}
				}
			}
		}
	}

	e.emit(0x7f, 7)
	return e.err
}
