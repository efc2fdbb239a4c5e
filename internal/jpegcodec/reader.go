// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jpegcodec implements just enough of the baseline JPEG format to
// serve the hasher's grayscale decode contract and the trimmer's
// coefficient-domain lossless crop: parsing markers,
// Huffman-decoding every component's coefficients to keep the entropy-coded
// bitstream in sync, but reconstructing pixels for the Y (luma) component
// only, since a grayscale fingerprint never needs chroma. The frame header
// (readSOF) still recognizes a progressive SOF2 marker so it can reject it
// cleanly; this package never decodes or writes a progressive scan. The
// encode side (writer.go) supports the baseline sequential path only.
package jpegcodec

import (
	"io"

	"github.com/pkg/errors"
)

// bitReader pulls single bits out of an entropy-coded segment, undoing
// byte-stuffing (0xFF 0x00 -> 0xFF) and stopping at the next real marker.
type bitReader struct {
	r      io.ByteReader
	cur    byte
	nBits  uint
	marker byte // the marker byte that ended the segment, 0 if not yet hit
	atEnd  bool
}

func newBitReader(r io.ByteReader) *bitReader {
	return &bitReader{r: r}
}

func (b *bitReader) readBit() (byte, error) {
	if b.nBits == 0 {
		c, err := b.r.ReadByte()
		if err != nil {
			return 0, err
		}
		if c == 0xff {
			c2, err := b.r.ReadByte()
			if err != nil {
				return 0, err
			}
			if c2 != 0x00 {
				b.marker = c2
				b.atEnd = true
				return 0, io.EOF
			}
		}
		b.cur = c
		b.nBits = 8
	}
	b.nBits--
	return (b.cur >> b.nBits) & 1, nil
}

// receiveExtend reads n raw magnitude bits (JPEG Annex F.2.2.1's RECEIVE) and
// extends them per EXTEND into a signed value.
func (b *bitReader) receiveExtend(n int) (int32, error) {
	if n == 0 {
		return 0, nil
	}
	var v int32
	for i := 0; i < n; i++ {
		bit, err := b.readBit()
		if err != nil {
			return 0, err
		}
		v = v<<1 | int32(bit)
	}
	if v < 1<<(uint(n)-1) {
		v += -1<<uint(n) + 1
	}
	return v, nil
}

// Header is the subset of SOF0/SOF2 fields the hasher and trimmer need
// without a full decode.
type Header struct {
	Width, Height int
	Progressive   bool
	NComponents   int
	Subsampling   Subsampling
}

// Image is the result of a full baseline decode: luma pixels for hashing,
// plus each component's coefficient blocks (dequantized, i.e. level times
// quantization step, natural order) for lossless crop re-encoding.
type Image struct {
	Header
	Gray       []byte // Header.Width*Header.Height luma samples, row-major
	Quant      [maxTh + 1][blockSize]uint16
	Comps      []component
	McuPerRow  int
	McuPerCol  int
	CompBlocks [][]block // per component, a row-major grid McuPerRow*h blocks wide and McuPerCol*v blocks high
}

type decoder struct {
	width           int
	height          int
	comps           []component
	quant           [maxTh + 1][blockSize]uint16
	huffDC          [maxTh + 1]huffTable
	huffAC          [maxTh + 1]huffTable
	progressive     bool
	restartInterval int
}

// byteReaderAt is the io.ByteReader interface under another name; reading a
// byte at a time is all the marker parser and bit reader need.
type byteReaderAt interface {
	io.ByteReader
}

type simpleByteReader struct {
	data []byte
	pos  int
}

func (s *simpleByteReader) ReadByte() (byte, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	c := s.data[s.pos]
	s.pos++
	return c, nil
}

func (s *simpleByteReader) readUint16() (uint16, error) {
	hi, err := s.ReadByte()
	if err != nil {
		return 0, err
	}
	lo, err := s.ReadByte()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// Decode parses a complete baseline (SOF0) JPEG byte stream, Huffman
// decoding every component but reconstructing pixels for the luma plane
// only.
func Decode(data []byte) (*Image, error) {
	sr := &simpleByteReader{data: data}
	d := &decoder{}
	img, err := d.decode(sr)
	if err != nil {
		return nil, errors.Wrap(err, "jpegcodec: decode")
	}
	return img, nil
}

// DecodeHeader parses only the markers needed to answer Header, stopping
// before any entropy-coded data. Used by callers (e.g. the trimmer) that
// only need dimensions and subsampling.
func DecodeHeader(data []byte) (Header, error) {
	sr := &simpleByteReader{data: data}
	d := &decoder{}
	h, err := d.decodeHeaderOnly(sr)
	if err != nil {
		return Header{}, errors.Wrap(err, "jpegcodec: decode header")
	}
	return h, nil
}

func (d *decoder) expectMarker(sr *simpleByteReader, want byte) error {
	c, err := sr.ReadByte()
	if err != nil {
		return err
	}
	if c != 0xff {
		return errors.Errorf("jpegcodec: expected marker prefix, got 0x%02x", c)
	}
	m, err := sr.ReadByte()
	if err != nil {
		return err
	}
	if m != want {
		return errors.Errorf("jpegcodec: expected marker 0x%02x, got 0x%02x", want, m)
	}
	return nil
}

func (d *decoder) nextMarker(sr *simpleByteReader) (byte, error) {
	for {
		c, err := sr.ReadByte()
		if err != nil {
			return 0, err
		}
		if c != 0xff {
			continue
		}
		for {
			m, err := sr.ReadByte()
			if err != nil {
				return 0, err
			}
			if m == 0xff {
				continue
			}
			if m == 0x00 {
				break // stuffed byte inside non-entropy data, keep scanning
			}
			return m, nil
		}
	}
}

func (d *decoder) decodeHeaderOnly(sr *simpleByteReader) (Header, error) {
	if err := d.expectMarker(sr, soiMarker); err != nil {
		return Header{}, err
	}
	for {
		m, err := d.nextMarker(sr)
		if err != nil {
			return Header{}, err
		}
		switch m {
		case sof0Marker, sof1Marker:
			if err := d.readSOF(sr, false); err != nil {
				return Header{}, err
			}
			return d.header(), nil
		case sof2Marker:
			if err := d.readSOF(sr, true); err != nil {
				return Header{}, err
			}
			return d.header(), nil
		case eoiMarker:
			return Header{}, errors.New("jpegcodec: no SOF before EOI")
		default:
			if err := d.skipSegment(sr); err != nil {
				return Header{}, err
			}
		}
	}
}

func (d *decoder) header() Header {
	sub := subsamplingFor(d.comps)
	return Header{
		Width:       d.width,
		Height:      d.height,
		Progressive: d.progressive,
		NComponents: len(d.comps),
		Subsampling: sub,
	}
}

func subsamplingFor(comps []component) Subsampling {
	if len(comps) == 1 {
		return SubsampleGray
	}
	h, v := comps[0].h, comps[0].v
	switch {
	case h == 1 && v == 1:
		return Subsample444
	case h == 2 && v == 1:
		return Subsample422
	case h == 2 && v == 2:
		return Subsample420
	case h == 1 && v == 2:
		return Subsample440
	case h == 4 && v == 1:
		return Subsample411
	case h == 4 && v == 2:
		return Subsample410
	default:
		return Subsample444
	}
}

func (d *decoder) skipSegment(sr *simpleByteReader) error {
	n, err := sr.readUint16()
	if err != nil {
		return err
	}
	if n < 2 {
		return errors.New("jpegcodec: short segment length")
	}
	for i := 0; i < int(n)-2; i++ {
		if _, err := sr.ReadByte(); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) readSOF(sr *simpleByteReader, progressive bool) error {
	n, err := sr.readUint16()
	if err != nil {
		return err
	}
	_ = n
	if _, err := sr.ReadByte(); err != nil { // sample precision, always 8
		return err
	}
	h, err := sr.readUint16()
	if err != nil {
		return err
	}
	w, err := sr.readUint16()
	if err != nil {
		return err
	}
	nComp, err := sr.ReadByte()
	if err != nil {
		return err
	}
	if int(nComp) > maxComponents {
		return errors.Errorf("jpegcodec: too many components: %d", nComp)
	}
	d.width = int(w)
	d.height = int(h)
	d.progressive = progressive
	d.comps = make([]component, nComp)
	for i := range d.comps {
		c, err := sr.ReadByte()
		if err != nil {
			return err
		}
		hv, err := sr.ReadByte()
		if err != nil {
			return err
		}
		tq, err := sr.ReadByte()
		if err != nil {
			return err
		}
		d.comps[i] = component{c: c, h: int(hv >> 4), v: int(hv & 0x0f), tq: tq}
	}
	return nil
}

func (d *decoder) readDQT(sr *simpleByteReader) error {
	n, err := sr.readUint16()
	if err != nil {
		return err
	}
	remaining := int(n) - 2
	for remaining > 0 {
		pqTq, err := sr.ReadByte()
		if err != nil {
			return err
		}
		remaining--
		pq := pqTq >> 4
		tq := pqTq & 0x0f
		if tq > maxTh {
			return errors.Errorf("jpegcodec: bad quant table selector %d", tq)
		}
		var natural [blockSize]uint16
		for i := 0; i < blockSize; i++ {
			if pq == 0 {
				v, err := sr.ReadByte()
				if err != nil {
					return err
				}
				remaining--
				natural[unzig[i]] = uint16(v)
			} else {
				v, err := sr.readUint16()
				if err != nil {
					return err
				}
				remaining -= 2
				natural[unzig[i]] = v
			}
		}
		d.quant[tq] = natural
	}
	return nil
}

func (d *decoder) readDHT(sr *simpleByteReader) error {
	n, err := sr.readUint16()
	if err != nil {
		return err
	}
	remaining := int(n) - 2
	for remaining > 0 {
		tcTh, err := sr.ReadByte()
		if err != nil {
			return err
		}
		remaining--
		class := tcTh >> 4
		th := tcTh & 0x0f
		if th > maxTh {
			return errors.Errorf("jpegcodec: bad huffman table selector %d", th)
		}
		var counts [16]byte
		total := 0
		for i := 0; i < 16; i++ {
			c, err := sr.ReadByte()
			if err != nil {
				return err
			}
			counts[i] = c
			total += int(c)
		}
		remaining -= 16
		values := make([]byte, total)
		for i := range values {
			v, err := sr.ReadByte()
			if err != nil {
				return err
			}
			values[i] = v
		}
		remaining -= total
		var t huffTable
		if err := t.build(counts, values); err != nil {
			return err
		}
		if class == 0 {
			d.huffDC[th] = t
		} else {
			d.huffAC[th] = t
		}
	}
	return nil
}

func (d *decoder) readDRI(sr *simpleByteReader) error {
	if _, err := sr.readUint16(); err != nil {
		return err
	}
	v, err := sr.readUint16()
	if err != nil {
		return err
	}
	d.restartInterval = int(v)
	return nil
}

func (d *decoder) decode(sr *simpleByteReader) (*Image, error) {
	if err := d.expectMarker(sr, soiMarker); err != nil {
		return nil, err
	}
	for {
		m, err := d.nextMarker(sr)
		if err != nil {
			return nil, err
		}
		switch m {
		case sof0Marker, sof1Marker:
			if err := d.readSOF(sr, false); err != nil {
				return nil, err
			}
		case sof2Marker:
			return nil, errors.New("jpegcodec: progressive decode not supported")
		case dqtMarker:
			if err := d.readDQT(sr); err != nil {
				return nil, err
			}
		case dhtMarker:
			if err := d.readDHT(sr); err != nil {
				return nil, err
			}
		case driMarker:
			if err := d.readDRI(sr); err != nil {
				return nil, err
			}
		case sosMarker:
			return d.readSOSAndScan(sr)
		case eoiMarker:
			return nil, errors.New("jpegcodec: EOI before SOS")
		default:
			if err := d.skipSegment(sr); err != nil {
				return nil, err
			}
		}
	}
}

type scanComponent struct {
	compIndex int
	dcTable   uint8
	acTable   uint8
}

func (d *decoder) readSOSAndScan(sr *simpleByteReader) (*Image, error) {
	if _, err := sr.readUint16(); err != nil {
		return nil, err
	}
	ns, err := sr.ReadByte()
	if err != nil {
		return nil, err
	}
	scanComps := make([]scanComponent, ns)
	for i := range scanComps {
		cs, err := sr.ReadByte()
		if err != nil {
			return nil, err
		}
		tdta, err := sr.ReadByte()
		if err != nil {
			return nil, err
		}
		idx := -1
		for j, c := range d.comps {
			if c.c == cs {
				idx = j
			}
		}
		if idx < 0 {
			return nil, errors.Errorf("jpegcodec: SOS references unknown component %d", cs)
		}
		scanComps[i] = scanComponent{compIndex: idx, dcTable: tdta >> 4, acTable: tdta & 0x0f}
	}
	// Ss, Se, AhAl: unused for baseline.
	for i := 0; i < 3; i++ {
		if _, err := sr.ReadByte(); err != nil {
			return nil, err
		}
	}

	hMax, vMax := 1, 1
	for _, c := range d.comps {
		if c.h > hMax {
			hMax = c.h
		}
		if c.v > vMax {
			vMax = c.v
		}
	}
	mcuW, mcuH := 8*hMax, 8*vMax
	mcusPerRow := (d.width + mcuW - 1) / mcuW
	mcusPerCol := (d.height + mcuH - 1) / mcuH

	blocksPerComp := make([][]block, len(d.comps))
	for i, c := range d.comps {
		n := mcusPerRow * mcusPerCol * c.h * c.v
		blocksPerComp[i] = make([]block, n)
	}

	br := newBitReader(sr)
	dcPred := make([]int32, len(d.comps))
	restartCount := 0

	readBlock := func(compIdx int, b *block) error {
		c := d.comps[compIdx]
		dcT := &d.huffDC[scanComps[indexForComp(scanComps, compIdx)].dcTable]
		acT := &d.huffAC[scanComps[indexForComp(scanComps, compIdx)].acTable]

		s, err := dcT.decode(br)
		if err != nil {
			return err
		}
		diff, err := br.receiveExtend(int(s))
		if err != nil {
			return err
		}
		dcPred[compIdx] += diff
		b[0] = dcPred[compIdx] * int32(d.quant[c.tq][0])

		k := 1
		for k < blockSize {
			rs, err := acT.decode(br)
			if err != nil {
				return err
			}
			run := int(rs >> 4)
			size := int(rs & 0x0f)
			if size == 0 {
				if run == 15 {
					k += 16
					continue
				}
				break // EOB
			}
			k += run
			if k >= blockSize {
				break
			}
			v, err := br.receiveExtend(size)
			if err != nil {
				return err
			}
			b[unzig[k]] = v * int32(d.quant[c.tq][unzig[k]])
			k++
		}
		return nil
	}

	for my := 0; my < mcusPerCol; my++ {
		for mx := 0; mx < mcusPerRow; mx++ {
			for ci, c := range d.comps {
				for by := 0; by < c.v; by++ {
					for bx := 0; bx < c.h; bx++ {
						blockIdx := (my*c.v+by)*mcusPerRow*c.h + (mx*c.h + bx)
						var b block
						if err := readBlock(ci, &b); err != nil {
							return nil, err
						}
						blocksPerComp[ci][blockIdx] = b
					}
				}
			}
			restartCount++
			if d.restartInterval > 0 && restartCount == d.restartInterval && (my != mcusPerCol-1 || mx != mcusPerRow-1) {
				restartCount = 0
				if err := d.syncRestart(sr, br, dcPred); err != nil {
					return nil, err
				}
			}
		}
	}

	gray := d.renderLuma(blocksPerComp[0], mcusPerRow, hMax, vMax)

	return &Image{
		Header:     d.header(),
		Gray:       gray,
		Quant:      d.quant,
		Comps:      d.comps,
		McuPerRow:  mcusPerRow,
		McuPerCol:  mcusPerCol,
		CompBlocks: blocksPerComp,
	}, nil
}

func indexForComp(scanComps []scanComponent, compIdx int) int {
	for i, sc := range scanComps {
		if sc.compIndex == compIdx {
			return i
		}
	}
	return 0
}

// syncRestart consumes the RSTn marker and resets DC predictors and the bit
// reader's byte alignment, per Annex B.2.4.
func (d *decoder) syncRestart(sr *simpleByteReader, br *bitReader, dcPred []int32) error {
	br.nBits = 0
	if br.marker == 0 {
		c, err := sr.ReadByte()
		if err != nil {
			return err
		}
		if c != 0xff {
			return errors.New("jpegcodec: expected restart marker")
		}
		m, err := sr.ReadByte()
		if err != nil {
			return err
		}
		if m < rst0Marker || m > rst7Marker {
			return errors.Errorf("jpegcodec: expected RSTn, got 0x%02x", m)
		}
	}
	br.marker = 0
	br.atEnd = false
	for i := range dcPred {
		dcPred[i] = 0
	}
	return nil
}

// renderLuma runs the inverse DCT over the Y component's blocks only and
// assembles the cropped-to-(width,height) luma plane. Chroma blocks were
// Huffman-decoded above to keep the bitstream in sync but are discarded
// here, mirroring a grayscale-only decompress request.
func (d *decoder) renderLuma(yBlocks []block, mcusPerRow, hMax, vMax int) []byte {
	c := d.comps[0]
	blocksWide := mcusPerRow * c.h
	planeW := blocksWide * 8
	planeH := (len(yBlocks) / blocksWide) * 8
	full := make([]byte, planeW*planeH)

	for bi, b := range yBlocks {
		bx := bi % blocksWide
		by := bi / blocksWide
		var coeff [64]float64
		for i := 0; i < 64; i++ {
			coeff[i] = float64(b[i])
		}
		px := idct(&coeff)
		ox, oy := bx*8, by*8
		for y := 0; y < 8; y++ {
			copy(full[(oy+y)*planeW+ox:(oy+y)*planeW+ox+8], px[8*y:8*y+8])
		}
	}

	if planeW == d.width && planeH == d.height {
		return full
	}
	out := make([]byte, d.width*d.height)
	for y := 0; y < d.height; y++ {
		copy(out[y*d.width:(y+1)*d.width], full[y*planeW:y*planeW+d.width])
	}
	return out
}
