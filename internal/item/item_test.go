package item

import (
	"testing"

	"github.com/llindqvist/imgtools/internal/dihedral"
)

func TestNewItemIsUnlinked(t *testing.T) {
	it := NewItem()
	if it.EqParent != NoParent {
		t.Fatalf("EqParent = %d, want NoParent", it.EqParent)
	}
	if it.EqNext != NoNext {
		t.Fatalf("EqNext = %d, want NoNext", it.EqNext)
	}
	if it.EqTrans != TransUnset {
		t.Fatalf("EqTrans = %d, want TransUnset", it.EqTrans)
	}
	if it.EqDist != DistUnset {
		t.Fatalf("EqDist = %d, want DistUnset", it.EqDist)
	}
}

func TestArenaAddReturnsIndex(t *testing.T) {
	a := NewArena(0)
	i0 := a.Add(NewItem())
	i1 := a.Add(NewItem())
	if i0 != 0 || i1 != 1 {
		t.Fatalf("Add returned %d, %d; want 0, 1", i0, i1)
	}
}

func TestRootOfUnlinkedItemIsItself(t *testing.T) {
	a := NewArena(0)
	idx := a.Add(NewItem())
	if got := a.Root(idx); got != idx {
		t.Fatalf("Root(%d) = %d, want %d", idx, got, idx)
	}
}

func TestAttachLinksChildUnderRoot(t *testing.T) {
	a := NewArena(0)
	root := a.Add(NewItem())
	child := a.Add(NewItem())

	a.Attach(root, child, dihedral.Flip, 2)

	if got := a.Root(child); got != root {
		t.Fatalf("Root(child) = %d, want %d", got, root)
	}
	if !a.IsClaimed(child) {
		t.Fatal("child should be claimed after Attach")
	}
	if a.IsClaimed(root) {
		t.Fatal("root should not be claimed")
	}
	if a.Items[child].EqTrans != dihedral.Flip || a.Items[child].EqDist != 2 {
		t.Fatalf("child EqTrans/EqDist = %v/%d, want Flip/2", a.Items[child].EqTrans, a.Items[child].EqDist)
	}
	peers := a.Peers(root)
	if len(peers) != 1 || peers[0] != child {
		t.Fatalf("Peers(root) = %v, want [%d]", peers, child)
	}
	if a.Items[root].EqN != 1 {
		t.Fatalf("root EqN = %d, want 1", a.Items[root].EqN)
	}
}

func TestAttachThroughExistingChainResolvesToRoot(t *testing.T) {
	a := NewArena(0)
	root := a.Add(NewItem())
	mid := a.Add(NewItem())
	leaf := a.Add(NewItem())

	a.Attach(root, mid, dihedral.Base, 0)
	// Attaching "under" mid should still resolve to root, since mid is
	// not itself a root once attached.
	a.Attach(mid, leaf, dihedral.Base, 1)

	if got := a.Root(leaf); got != root {
		t.Fatalf("Root(leaf) = %d, want %d", got, root)
	}
	if a.Items[root].EqN != 2 {
		t.Fatalf("root EqN = %d, want 2", a.Items[root].EqN)
	}
	peers := a.Peers(root)
	if len(peers) != 2 {
		t.Fatalf("Peers(root) = %v, want 2 entries", peers)
	}
}

func TestPeersOfUnclaimedRootIsEmpty(t *testing.T) {
	a := NewArena(0)
	idx := a.Add(NewItem())
	if peers := a.Peers(idx); len(peers) != 0 {
		t.Fatalf("Peers(idx) = %v, want empty", peers)
	}
}
