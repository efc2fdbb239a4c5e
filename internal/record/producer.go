// Package record implements the JSON wire format produced by the hasher
// and consumed/produced by the grouper (spec.md §4.4, §6.1), grounded on
// github.com/json-iterator/go. The producer uses jsoniter's Stream API for
// direct, allocation-light object emission; the consumer (consumer.go)
// walks an Iterator the way imgdups.c's yajl SAX callbacks walk tokens.
package record

import (
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/llindqvist/imgtools/internal/dihedral"
	"github.com/llindqvist/imgtools/internal/item"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StreamEncoder incrementally writes a JSON array of full-hash objects, one
// item at a time, as each item finishes hashing — the direct analogue of
// imghash.c's print_item/fputjson pair, which writes the opening "[",
// streams one object per completed item (guarded by prlock), then closes
// with "]" once every worker has finished. Item completion order (not
// enqueue order) becomes output order when multiple workers run
// concurrently, matching the C tool exactly.
type StreamEncoder struct {
	w     io.Writer
	mu    sync.Mutex
	first bool
	err   error
}

// NewStreamEncoder writes the opening "[" and returns an encoder ready for
// concurrent calls to WriteItem.
func NewStreamEncoder(w io.Writer) (*StreamEncoder, error) {
	if _, err := io.WriteString(w, "["); err != nil {
		return nil, errors.Wrap(err, "record: write array start")
	}
	return &StreamEncoder{w: w, first: true}, nil
}

// WriteItem appends one full-hash object. Safe for concurrent use.
func (e *StreamEncoder) WriteItem(it *item.Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return
	}
	stream := json.BorrowStream(e.w)
	defer json.ReturnStream(stream)
	if !e.first {
		stream.WriteMore()
	}
	writeFullObject(stream, it)
	e.first = false
	e.err = stream.Flush()
}

// Close writes the closing "]". It returns the first error encountered by
// either WriteItem or Close itself.
func (e *StreamEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	_, err := io.WriteString(e.w, "\n]\n")
	return err
}

// WriteHasherItems writes the hasher's record-mode output in one shot: a
// JSON array with one full eight-hash object per item (spec.md §6.1). Used
// by tests and by any caller that already has the full item slice in hand.
func WriteHasherItems(w io.Writer, items []item.Item) error {
	stream := json.BorrowStream(w)
	defer json.ReturnStream(stream)
	stream.WriteArrayStart()
	for i := range items {
		if i > 0 {
			stream.WriteMore()
		}
		writeFullObject(stream, &items[i])
	}
	stream.WriteArrayEnd()
	return stream.Flush()
}

// GroupStreamEncoder incrementally writes the grouper's array-of-arrays
// output across however many separate clustering passes produced it —
// imgdups.c's postproc is called once per input file in per-file mode, but
// all of its output shares one top-level "[" / "]" pair (guarded by the
// same function-local `first` flag postproc itself uses), not one pair per
// call.
type GroupStreamEncoder struct {
	w     io.Writer
	first bool
	err   error
}

// NewGroupStreamEncoder writes the opening "[".
func NewGroupStreamEncoder(w io.Writer) (*GroupStreamEncoder, error) {
	if _, err := io.WriteString(w, "["); err != nil {
		return nil, errors.Wrap(err, "record: write array start")
	}
	return &GroupStreamEncoder{w: w, first: true}, nil
}

// WriteGroup appends one cluster (root, then its peers in chain order).
func (e *GroupStreamEncoder) WriteGroup(arena *item.Arena, root int) {
	if e.err != nil {
		return
	}
	stream := json.BorrowStream(e.w)
	defer json.ReturnStream(stream)
	if !e.first {
		stream.WriteMore()
	}
	stream.WriteArrayStart()
	writeFullObject(stream, &arena.Items[root])
	for _, peer := range arena.Peers(root) {
		stream.WriteMore()
		writePeerObject(stream, &arena.Items[peer])
	}
	stream.WriteArrayEnd()
	e.first = false
	e.err = stream.Flush()
}

// Close writes the closing "]".
func (e *GroupStreamEncoder) Close() error {
	if e.err != nil {
		return e.err
	}
	_, err := io.WriteString(e.w, "\n]\n")
	return err
}

// WriteGroups writes the grouper's output: an array of arrays, one inner
// array per cluster. The first element is the cluster root (full-hash
// shape); every following element is a peer (dist/xform/hash shape).
// Mirrors imgcmp.c's fputjson, called once per item with first==(i==0).
func WriteGroups(w io.Writer, arena *item.Arena, roots []int) error {
	stream := json.BorrowStream(w)
	defer json.ReturnStream(stream)
	stream.WriteArrayStart()
	for gi, root := range roots {
		if gi > 0 {
			stream.WriteMore()
		}
		stream.WriteArrayStart()
		writeFullObject(stream, &arena.Items[root])
		for _, peer := range arena.Peers(root) {
			stream.WriteMore()
			writePeerObject(stream, &arena.Items[peer])
		}
		stream.WriteArrayEnd()
	}
	stream.WriteArrayEnd()
	return stream.Flush()
}

func writeCommonFields(stream *jsoniter.Stream, it *item.Item) {
	stream.WriteObjectField("path")
	stream.WriteString(it.Path)
	stream.WriteMore()
	stream.WriteObjectField("size")
	stream.WriteInt64(it.Size)
	stream.WriteMore()
	stream.WriteObjectField("w")
	stream.WriteInt(it.W)
	stream.WriteMore()
	stream.WriteObjectField("h")
	stream.WriteInt(it.H)
	stream.WriteMore()
	stream.WriteObjectField("mtime")
	stream.WriteInt64(it.MTime)
	if it.ETime != 0 {
		stream.WriteMore()
		stream.WriteObjectField("etime")
		stream.WriteInt64(it.ETime)
	}
}

// writeFullObject writes every one of the eight hash variants, the shape
// used for items that never matched a cluster (roots, or plain hasher
// output).
func writeFullObject(stream *jsoniter.Stream, it *item.Item) {
	stream.WriteObjectStart()
	writeCommonFields(stream, it)
	for t := dihedral.Index(0); t < dihedral.Count; t++ {
		stream.WriteMore()
		stream.WriteObjectField(t.Name())
		stream.WriteUint64(it.Hashes[t])
	}
	stream.WriteObjectEnd()
}

// writePeerObject writes the compact dist/xform/hash shape used for items
// that matched a cluster root.
func writePeerObject(stream *jsoniter.Stream, it *item.Item) {
	stream.WriteObjectStart()
	writeCommonFields(stream, it)
	stream.WriteMore()
	stream.WriteObjectField("dist")
	stream.WriteInt(it.EqDist)
	stream.WriteMore()
	stream.WriteObjectField("xform")
	stream.WriteString(it.EqTrans.Name())
	stream.WriteMore()
	stream.WriteObjectField("hash")
	stream.WriteUint64(it.Hashes[it.EqTrans])
	stream.WriteObjectEnd()
}
