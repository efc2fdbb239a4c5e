// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jpegcodec

import "github.com/pkg/errors"

// maxCodeLength is the longest Huffman code a baseline DHT marker may
// define.
const maxCodeLength = 16

// huffTable is the decode side of a huffmanSpec: built from a DHT marker's
// (counts, values) pair into the per-length minCode/maxCode/valPtr arrays
// used by the standard canonical-Huffman decode walk (one bit at a time,
// comparing the accumulated code against maxCode[length] until it is found
// or exceeds every defined length).
type huffTable struct {
	counts   [maxCodeLength + 1]int32 // counts[length], 1-indexed by bit length
	values   []byte
	minCode  [maxCodeLength + 1]int32
	maxCode  [maxCodeLength + 1]int32 // -1 means "no code of this length"
	valIndex [maxCodeLength + 1]int32 // index into values of the first code of this length
}

// build fills in the decode tables from DHT-order counts (counts[i] = number
// of i+1 bit codes, i in 0..15) and values (the decoded byte for each code,
// in the same order codes are assigned: shortest codes first, then in
// ascending numeric order within a length).
func (t *huffTable) build(countsByLenMinus1 [16]byte, values []byte) error {
	t.values = values
	var total int32
	for i, c := range countsByLenMinus1 {
		t.counts[i+1] = int32(c)
		total += int32(c)
	}
	if int(total) != len(values) {
		return errors.Errorf("jpegcodec: huffman table count/value mismatch: %d counts, %d values", total, len(values))
	}

	code, k := int32(0), int32(0)
	for length := 1; length <= maxCodeLength; length++ {
		n := t.counts[length]
		if n == 0 {
			t.minCode[length] = 0
			t.maxCode[length] = -1
			t.valIndex[length] = 0
			code <<= 1
			continue
		}
		t.valIndex[length] = k
		t.minCode[length] = code
		code += n
		k += n
		t.maxCode[length] = code - 1
		code <<= 1
	}
	return nil
}

// decode reads one Huffman-coded symbol from br, returning its decoded
// byte value.
func (t *huffTable) decode(br *bitReader) (byte, error) {
	var code int32
	for length := 1; length <= maxCodeLength; length++ {
		bit, err := br.readBit()
		if err != nil {
			return 0, err
		}
		code = code<<1 | int32(bit)
		if t.maxCode[length] != -1 && code <= t.maxCode[length] && code >= t.minCode[length] {
			idx := t.valIndex[length] + (code - t.minCode[length])
			return t.values[idx], nil
		}
	}
	return 0, errors.New("jpegcodec: invalid huffman code")
}
