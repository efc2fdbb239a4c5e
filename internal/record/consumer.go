package record

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/llindqvist/imgtools/internal/dihedral"
	"github.com/llindqvist/imgtools/internal/item"
)

// countingReader tracks bytes consumed so a parse error can report an
// offset, the Go analogue of yajl_get_bytes_consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// parseState owns the in-progress item list for one parse. It is a local
// value, not a package global, so concurrent parses (e.g. a reference file
// and a target file) never alias state.
type parseState struct {
	items []item.Item
}

// ReadItems parses a record file — a JSON array of per-item objects, each
// either the full eight-hash shape or the compact dist/xform/hash shape —
// into items in file order. Keys may arrive in any order; unrecognized keys
// are skipped, mirroring imgdups.c's jkey/jmaps dispatch over yajl
// callbacks.
func ReadItems(r io.Reader) ([]item.Item, error) {
	cr := &countingReader{r: r}
	iter := jsoniter.Parse(json, cr, 64*1024)
	st := &parseState{}

	cont := iter.ReadArrayCB(func(iter *jsoniter.Iterator) bool {
		it, err := st.readOneItem(iter)
		if err != nil {
			iter.ReportError("record.ReadItems", err.Error())
			return false
		}
		st.items = append(st.items, it)
		return true
	})
	if !cont && iter.Error != nil && iter.Error != io.EOF {
		return nil, errors.Wrapf(iter.Error, "record: parse error at byte offset %d", cr.n)
	}
	return st.items, nil
}

func (st *parseState) readOneItem(iter *jsoniter.Iterator) (item.Item, error) {
	it := item.NewItem()
	var (
		distSeen    bool
		xformName   string
		hashVal     uint64
		hashValSeen bool
	)

	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		switch field {
		case "path":
			it.Path = iter.ReadString()
		case "size":
			it.Size = iter.ReadInt64()
		case "w":
			it.W = iter.ReadInt()
		case "h":
			it.H = iter.ReadInt()
		case "mtime":
			it.MTime = iter.ReadInt64()
		case "etime":
			it.ETime = iter.ReadInt64()
		case "dist":
			it.EqDist = iter.ReadInt()
			distSeen = true
		case "xform":
			xformName = iter.ReadString()
		case "hash":
			hashVal = iter.ReadUint64()
			hashValSeen = true
		default:
			if t, ok := dihedral.ParseName(field); ok {
				it.Hashes[t] = iter.ReadUint64()
			} else {
				iter.Skip()
			}
		}
		if iter.Error != nil && iter.Error != io.EOF {
			return item.Item{}, iter.Error
		}
	}

	it.Valid = true
	if distSeen {
		t, ok := dihedral.ParseName(xformName)
		if !ok {
			return item.Item{}, errors.Errorf("record: unknown transform name %q", xformName)
		}
		it.EqTrans = t
		if hashValSeen {
			it.Hashes[t] = hashVal
		}
	}
	return it, nil
}
