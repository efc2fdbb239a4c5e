// Package item holds the Image Item data model shared by the hasher and
// grouper (spec.md §3). Cluster membership is modeled as an arena of Items
// addressed by index rather than an intrusive pointer chain: this follows
// spec.md §9's design note ("Intrusive cluster links vs. idiomatic
// collections") directly — allocate items contiguously, refer to other
// items by index, and store (parent, next, transform, dist) per item. It
// removes any aliasing concern during the clustering pass since slice
// growth invalidates pointers but not indices captured before growth, so
// items may be appended after earlier items were linked (group.ReferenceSet
// does this: each new batch joins an arena whose references persist across
// passes) without invalidating any existing link.
package item

import (
	"time"

	"github.com/llindqvist/imgtools/internal/dihedral"
)

// NoParent marks a root item (no eq_parent) and NoNext terminates an
// eq_next chain. TransUnset marks an item that has not (yet) matched a
// cluster root.
const (
	NoParent   = -1
	NoNext     = -1
	TransUnset = dihedral.Count // one past the last valid Index
	DistUnset  = -1
)

// Item is one image record: either freshly hashed (hasher) or parsed from a
// record file (grouper). Both callers share this type since the grouper
// only ever consumes what the hasher (or a previous grouper run) produced.
type Item struct {
	Path  string
	Size  int64
	W, H  int
	MTime int64
	ETime int64 // 0 means "unset" (valid EXIF timestamps are post-1970)
	Valid bool

	Hashes [dihedral.Count]uint64

	// Cluster fields below are arena indices into the owning Arena's items
	// slice, not pointers. See the package doc for why.
	EqParent int
	EqNext   int
	EqTrans  dihedral.Index
	EqDist   int
	EqN      int
}

// NewItem returns an Item with cluster fields at their "unlinked" zero
// values, mirroring imgdups.c's item_t initialization
// (eq_trans = TI_LAST, eq_dist = -1).
func NewItem() Item {
	return Item{
		EqParent: NoParent,
		EqNext:   NoNext,
		EqTrans:  TransUnset,
		EqDist:   DistUnset,
	}
}

// Arena owns a contiguous slice of Items addressed by index. Hasher workers
// each own exactly one index (set once at dequeue time, read-only
// thereafter by every other goroutine); the grouper's clustering pass is
// the only code that mutates EqParent/EqNext/EqTrans/EqDist/EqN after
// parsing completes.
type Arena struct {
	Items []Item
}

// NewArena preallocates capacity hint items.
func NewArena(hint int) *Arena {
	return &Arena{Items: make([]Item, 0, hint)}
}

// Add appends it and returns its index.
func (a *Arena) Add(it Item) int {
	a.Items = append(a.Items, it)
	return len(a.Items) - 1
}

// Root walks EqParent until it finds an item with no parent, returning that
// item's index. Path compression is deliberately not performed here: per
// spec.md §9, compressing eq_parent would invalidate the guarantee that a
// non-root's chain is only ever walked forward via EqNext, never
// re-resolved through EqParent after the clustering pass.
func (a *Arena) Root(idx int) int {
	for a.Items[idx].EqParent != NoParent {
		idx = a.Items[idx].EqParent
	}
	return idx
}

// Attach links child onto parentIdx's cluster: child.EqParent = root(parentIdx),
// child is pushed onto the front of the root's EqNext chain, EqTrans/EqDist
// record the match, and the root's EqN is incremented. Mirrors imgdups.c's
// handle_pair: `p := ref; while p.eq_parent: p = p.eq_parent; tmp->eq_parent
// = p; tmp->eq_next = p->eq_next; p->eq_next = tmp; p->eq_n++`.
func (a *Arena) Attach(parentIdx, childIdx int, t dihedral.Index, dist int) {
	root := a.Root(parentIdx)
	child := &a.Items[childIdx]
	rootItem := &a.Items[root]
	child.EqParent = root
	child.EqNext = rootItem.EqNext
	child.EqTrans = t
	child.EqDist = dist
	rootItem.EqNext = childIdx
	rootItem.EqN++
}

// IsClaimed reports whether idx has already joined a cluster (spec.md
// §4.5: "if cand already has eq_parent != none, skip").
func (a *Arena) IsClaimed(idx int) bool {
	return a.Items[idx].EqParent != NoParent
}

// Peers returns the indices of rootIdx's EqNext chain, in chain order.
// rootIdx must be a cluster root.
func (a *Arena) Peers(rootIdx int) []int {
	var out []int
	for n := a.Items[rootIdx].EqNext; n != NoNext; n = a.Items[n].EqNext {
		out = append(out, n)
	}
	return out
}

// Now returns time.Now(). It is a plain function, not a replaceable
// variable.
func Now() time.Time { return time.Now() }
