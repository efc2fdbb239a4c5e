package group

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llindqvist/imgtools/internal/dihedral"
	"github.com/llindqvist/imgtools/internal/item"
)

// newItem sets every dihedral slot to the same value so a test's intent
// ("these two should/shouldn't match") isn't accidentally decided by
// cmpItems falling through to an unset (zero-valued) transform slot.
func newItem(path string, base uint64) item.Item {
	it := item.NewItem()
	it.Path = path
	for t := dihedral.Index(0); t < dihedral.Count; t++ {
		it.Hashes[t] = base
	}
	return it
}

func TestIntragroupClustersWithinThreshold(t *testing.T) {
	arena := item.NewArena(3)
	arena.Add(newItem("a.jpg", 0x00))
	arena.Add(newItem("b.jpg", 0x01)) // 1 bit from a
	arena.Add(newItem("c.jpg", 0xff)) // far from both

	roots := Intragroup(arena, 2)
	require.Len(t, roots, 1)
	root := roots[0]
	peers := arena.Peers(root)
	require.Len(t, peers, 1)
	assert.Equal(t, item.NoParent, arena.Items[2].EqParent) // c.jpg stays unattached
}

func TestIntragroupNoMatchesProducesNoRoots(t *testing.T) {
	arena := item.NewArena(2)
	arena.Add(newItem("a.jpg", 0x00))
	arena.Add(newItem("b.jpg", 0xff))

	roots := Intragroup(arena, 1)
	assert.Empty(t, roots)
}

func TestReferenceSetAttachesOnlyMatchingCandidate(t *testing.T) {
	rs := NewReferenceSet([]item.Item{newItem("ref.jpg", 0x00)})
	roots := rs.Add([]item.Item{newItem("dup.jpg", 0x00), newItem("other.jpg", 0xff)}, 0)

	require.Len(t, roots, 1)
	root := roots[0]
	arena := rs.Arena()
	assert.Equal(t, "ref.jpg", arena.Items[root].Path)
	peers := arena.Peers(root)
	require.Len(t, peers, 1)
	assert.Equal(t, "dup.jpg", arena.Items[peers[0]].Path)
}

func TestReferenceSetAccumulatesAcrossBatches(t *testing.T) {
	rs := NewReferenceSet([]item.Item{newItem("ref.jpg", 0x00)})

	firstRoots := rs.Add([]item.Item{newItem("batch1-dup.jpg", 0x00)}, 0)
	require.Len(t, firstRoots, 1)
	assert.Len(t, rs.Arena().Peers(firstRoots[0]), 1)

	secondRoots := rs.Add([]item.Item{newItem("batch2-dup.jpg", 0x00)}, 0)
	require.Len(t, secondRoots, 1)
	assert.Len(t, rs.Arena().Peers(secondRoots[0]), 2)
}

func TestCmpItemsPrefersBaseOverRotations(t *testing.T) {
	ref := newItem("ref.jpg", 0x00)
	cand := newItem("cand.jpg", 0x00)
	cand.Hashes[dihedral.Rot1] = 0x00
	t2, dist, ok := cmpItems(&ref, &cand, 0)
	assert.True(t, ok)
	assert.Equal(t, dihedral.Base, t2)
	assert.Equal(t, 0, dist)
}
