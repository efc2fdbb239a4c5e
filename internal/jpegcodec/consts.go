// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jpegcodec

// block is an 8x8 block of coefficients, in natural (not zig-zag) order.
type block [blockSize]int32

const blockSize = 64 // A block is 8x8.

const (
	soiMarker   = 0xd8 // Start Of Image.
	eoiMarker   = 0xd9 // End Of Image.
	sof0Marker  = 0xc0 // Start Of Frame (Baseline Sequential).
	sof1Marker  = 0xc1 // Start Of Frame (Extended Sequential).
	sof2Marker  = 0xc2 // Start Of Frame (Progressive).
	dhtMarker   = 0xc4 // Define Huffman Table.
	dqtMarker   = 0xdb // Define Quantization Table.
	sosMarker   = 0xda // Start Of Scan.
	driMarker   = 0xdd // Define Restart Interval.
	rst0Marker  = 0xd0 // ReSTart (0).
	rst7Marker  = 0xd7 // ReSTart (7).
	app0Marker  = 0xe0 // APPlication specific (0, JFIF).
	app14Marker = 0xee // APPlication specific (14, Adobe).
	comMarker   = 0xfe // COMment.
)

// maxComponents is the maximum number of color components stored in a
// frame: 1 for gray, 3 for YCbCr, 4 for YCbCrK/CMYK.
const maxComponents = 4

// maxTh is the largest valid Huffman/quantization table selector.
const maxTh = 3

// unzig maps from the zig-zag scan order, in which JPEG sends (and this
// package stores while scanning) a block's coefficients, to the natural
// (row-major) order in which block and the DCT math expect them.
var unzig = [blockSize]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// component holds the parameters for one color component, as parsed from
// the SOF marker and referenced through the rest of decode.
type component struct {
	h, v int // Horizontal and vertical sampling factor.
	c    uint8
	tq   uint8 // Quantization table destination selector.
}

// Subsampling enumerates the supported component sampling ratios, named the
// way turbojpeg's TJSAMP_* constants are (and the MCU size contract spec.md
// §4.6/§6.4 assumes): tjMCUWidth/tjMCUHeight index by this value.
type Subsampling int

const (
	Subsample444 Subsampling = iota
	Subsample422
	Subsample420
	Subsample440
	Subsample411
	Subsample410
	SubsampleGray
)

// mcuSize returns the MCU width and height in pixels for a subsampling
// ratio — the alignment contract a lossless crop origin must respect
// (spec.md §4.6, §6.4 "MCU width for the file's subsampling").
func (s Subsampling) mcuSize() (w, h int) {
	switch s {
	case Subsample444:
		return 8, 8
	case Subsample422:
		return 16, 8
	case Subsample420:
		return 16, 16
	case Subsample440:
		return 8, 16
	case Subsample411:
		return 32, 8
	case Subsample410:
		return 32, 16
	case SubsampleGray:
		return 8, 8
	default:
		return 8, 8
	}
}

// MCUSize is mcuSize for callers outside this package.
func (s Subsampling) MCUSize() (w, h int) { return s.mcuSize() }
