package record

import (
	"strings"
	"testing"

	"github.com/llindqvist/imgtools/internal/dihedral"
	"github.com/llindqvist/imgtools/internal/item"
)

func sample(path string, base uint64) item.Item {
	it := item.NewItem()
	it.Path = path
	it.Size = 123
	it.W, it.H = 64, 48
	it.MTime = 1000
	it.Hashes[dihedral.Base] = base
	return it
}

func TestWriteHasherItemsRoundTrip(t *testing.T) {
	items := []item.Item{sample("a.jpg", 0x1), sample("b.jpg", 0x2)}
	var buf strings.Builder
	if err := WriteHasherItems(&buf, items); err != nil {
		t.Fatalf("WriteHasherItems: %v", err)
	}

	got, err := ReadItems(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ReadItems: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadItems returned %d items, want 2", len(got))
	}
	if got[0].Path != "a.jpg" || got[0].Hashes[dihedral.Base] != 0x1 {
		t.Fatalf("got[0] = %+v", got[0])
	}
	if got[1].Path != "b.jpg" || got[1].Hashes[dihedral.Base] != 0x2 {
		t.Fatalf("got[1] = %+v", got[1])
	}
}

func TestStreamEncoderProducesValidArray(t *testing.T) {
	var buf strings.Builder
	enc, err := NewStreamEncoder(&buf)
	if err != nil {
		t.Fatalf("NewStreamEncoder: %v", err)
	}
	a := sample("a.jpg", 0x1)
	b := sample("b.jpg", 0x2)
	enc.WriteItem(&a)
	enc.WriteItem(&b)
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadItems(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ReadItems: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadItems returned %d items, want 2", len(got))
	}
}

func TestReadItemsParsesCompactPeerShape(t *testing.T) {
	payload := `[{"path":"p.jpg","size":1,"w":8,"h":8,"mtime":0,"dist":3,"xform":"rot1","hash":42}]`
	got, err := ReadItems(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("ReadItems: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d items, want 1", len(got))
	}
	it := got[0]
	if it.EqDist != 3 || it.EqTrans != dihedral.Rot1 || it.Hashes[dihedral.Rot1] != 42 {
		t.Fatalf("parsed peer item = %+v", it)
	}
}

func TestReadItemsRejectsUnknownTransformName(t *testing.T) {
	payload := `[{"path":"p.jpg","dist":1,"xform":"not-a-real-transform","hash":1}]`
	if _, err := ReadItems(strings.NewReader(payload)); err == nil {
		t.Fatal("expected an error for an unknown transform name")
	}
}

func TestGroupStreamEncoderWritesRootAndPeers(t *testing.T) {
	arena := item.NewArena(2)
	root := arena.Add(sample("root.jpg", 0x0))
	peer := arena.Add(sample("peer.jpg", 0x1))
	arena.Attach(root, peer, dihedral.Flip, 1)

	var buf strings.Builder
	enc, err := NewGroupStreamEncoder(&buf)
	if err != nil {
		t.Fatalf("NewGroupStreamEncoder: %v", err)
	}
	enc.WriteGroup(arena, root)
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "root.jpg") || !strings.Contains(out, "peer.jpg") {
		t.Fatalf("output missing expected paths: %s", out)
	}
	if !strings.HasPrefix(out, "[") {
		t.Fatalf("output does not start with array marker: %s", out)
	}
}

func TestWriteGroupsMatchesGroupStreamEncoderShape(t *testing.T) {
	arena := item.NewArena(2)
	root := arena.Add(sample("root.jpg", 0x0))
	peer := arena.Add(sample("peer.jpg", 0x1))
	arena.Attach(root, peer, dihedral.Rot2, 2)

	var buf strings.Builder
	if err := WriteGroups(&buf, arena, []int{root}); err != nil {
		t.Fatalf("WriteGroups: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"xform":"rot2"`) {
		t.Fatalf("expected compact peer shape with xform field, got: %s", out)
	}
}
