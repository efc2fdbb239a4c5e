// Package group implements imgdups.c's clustering pass: pairwise-compare a
// set of items' base hashes against every dihedral variant of every other
// item, and union anything within the configured Hamming distance into the
// same cluster. Two modes mirror intracmp/refcmp: Intragroup compares a set
// against itself; Reference compares a working set against a fixed set of
// reference items that never themselves join a cluster.
package group

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/llindqvist/imgtools/internal/dihedral"
	"github.com/llindqvist/imgtools/internal/item"
	"github.com/llindqvist/imgtools/internal/phash"
)

// tieBreakOrder is cmp_items' exact evaluation sequence: a candidate is
// claimed by the first transform (in this order) whose hash lands within
// the threshold of the reference's base hash.
var tieBreakOrder = []dihedral.Index{
	dihedral.Base,
	dihedral.Flip,
	dihedral.Rot1,
	dihedral.Rot2,
	dihedral.Rot3,
	dihedral.Flr1,
	dihedral.Flr2,
	dihedral.Flr3,
}

// cmpItems mirrors cmp_items: it returns the first transform in
// tieBreakOrder whose hash is within threshold of ref's base hash.
func cmpItems(ref, cand *item.Item, threshold int) (dihedral.Index, int, bool) {
	for _, t := range tieBreakOrder {
		d := phash.HammingDistance(ref.Hashes[dihedral.Base], cand.Hashes[t])
		if d <= threshold {
			return t, d, true
		}
	}
	return 0, 0, false
}

// FilterMissing drops any item whose Path no longer exists on disk, unless
// missingOK is set — jmape's access(path, F_OK) check, applied once right
// after each item is parsed in the C tool; here applied in one pass right
// after a full record file is parsed, before clustering.
func FilterMissing(items []item.Item, missingOK bool, log zerolog.Logger) []item.Item {
	if missingOK {
		return items
	}
	kept := items[:0]
	for _, it := range items {
		if _, err := os.Stat(it.Path); err != nil {
			log.Warn().Str("path", it.Path).Msg("skipping missing file")
			continue
		}
		kept = append(kept, it)
	}
	return kept
}

// Intragroup clusters items against themselves: every item is compared
// against every item that parsed after it, in reverse parse order —
// mirroring intracmp's traversal of imgdups.c's prepend-built item list,
// where the most recently parsed item is always list head. Returns the
// indices (into arena.Items) of every cluster root that gained at least one
// peer, in the same order postproc would report them.
func Intragroup(arena *item.Arena, threshold int) []int {
	n := len(arena.Items)
	for ri := n - 1; ri >= 0; ri-- {
		for ci := ri - 1; ci >= 0; ci-- {
			attachIfMatch(arena, ri, ci, threshold)
		}
	}
	return rootsWithPeers(arena, allIndicesReverse(n))
}

// ReferenceSet clusters one or more batches of items against a fixed set of
// reference items: a reference item can gain peers but never joins another
// cluster itself, matching refcmp's asymmetric pairing (refs only ever
// appear as the `ref` argument to handle_pair, never as `tmp`). It mirrors
// imgdups.c's refitems, which is parsed once up front and then reused,
// unreset, across every call to iorrcmp — in per-file (-G) mode each file's
// batch only extends the references' accumulated eq_next chains, it never
// starts them over, so postproc(refs) reports a growing peer list on every
// call. ReferenceSet reproduces that by keeping one arena alive across
// calls to Add: references occupy indices [0, refCount) once, and each
// batch is appended after whatever batches came before it.
type ReferenceSet struct {
	arena    *item.Arena
	refCount int
}

// NewReferenceSet seeds a ReferenceSet with the parsed reference items.
func NewReferenceSet(refs []item.Item) *ReferenceSet {
	a := item.NewArena(len(refs))
	for _, it := range refs {
		a.Add(it)
	}
	return &ReferenceSet{arena: a, refCount: len(refs)}
}

// Arena returns the set's backing arena; root and peer indices returned by
// Add are indices into it.
func (rs *ReferenceSet) Arena() *item.Arena { return rs.arena }

// Add appends one batch of candidate items, compares every reference
// against only this batch's new indices (earlier batches were already
// resolved by a prior call), and returns every reference index that has at
// least one peer at this point — which, in per-file mode, can repeat
// references reported by an earlier call with a longer peer list now.
func (rs *ReferenceSet) Add(items []item.Item, threshold int) []int {
	start := len(rs.arena.Items)
	for _, it := range items {
		rs.arena.Add(it)
	}
	end := len(rs.arena.Items)

	for ri := rs.refCount - 1; ri >= 0; ri-- {
		for ci := end - 1; ci >= start; ci-- {
			attachIfMatch(rs.arena, ri, ci, threshold)
		}
	}
	return rootsWithPeers(rs.arena, reverseRange(rs.refCount))
}

// attachIfMatch is handle_pair: a candidate already claimed by an earlier
// cluster is left alone, otherwise cmpItems decides whether (and by which
// transform) it matches ref, and if so it's attached under ref's ultimate
// root.
func attachIfMatch(arena *item.Arena, refIdx, candIdx, threshold int) {
	if arena.IsClaimed(candIdx) {
		return
	}
	t, dist, ok := cmpItems(&arena.Items[refIdx], &arena.Items[candIdx], threshold)
	if !ok {
		return
	}
	arena.Attach(refIdx, candIdx, t, dist)
}

func allIndicesReverse(n int) []int {
	return reverseRange(n)
}

func reverseRange(n int) []int {
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = n - 1 - i
	}
	return out
}

// rootsWithPeers filters candidates (visited in the given order) down to
// those that are their own root and gained at least one peer — postproc's
// `if (!ref->eq_n) continue`.
func rootsWithPeers(arena *item.Arena, candidates []int) []int {
	var roots []int
	for _, idx := range candidates {
		if arena.Items[idx].EqN > 0 {
			roots = append(roots, idx)
		}
	}
	return roots
}
