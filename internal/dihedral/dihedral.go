// Package dihedral defines the eight symmetries of the square (the dihedral
// group D4) as pure index permutations over an 8x8 grid flattened in
// row-major order. internal/phash uses these to re-derive a hash for a
// rotated or mirrored image without re-downsampling the source pixels: the
// 64 block means are permuted and the DCT + threshold step is simply rerun.
package dihedral

// Index names one of the eight transform variants. Order matches spec.md's
// Item.hashes array and the wire format's transform name set; it is NOT the
// order used for Hamming-match tie-breaking (see internal/group).
type Index int

const (
	Base Index = iota
	Rot1       // 90 degrees counter-clockwise
	Rot2       // 180 degrees
	Rot3       // 270 degrees counter-clockwise
	Flip       // horizontal mirror
	Flr1       // Flip then Rot1
	Flr2       // Flip then Rot2
	Flr3       // Flip then Rot3
	Count
)

// Name returns the wire-format transform name, e.g. for record.Codec.
func (i Index) Name() string {
	if i < 0 || i >= Count {
		return ""
	}
	return names[i]
}

var names = [Count]string{"base", "rot1", "rot2", "rot3", "flip", "flr1", "flr2", "flr3"}

// ParseName is the inverse of Name. ok is false for any string outside the
// eight transform names.
func ParseName(s string) (Index, bool) {
	for i, n := range names {
		if n == s {
			return Index(i), true
		}
	}
	return 0, false
}

// Grid is a flattened 8x8 array of float64 block means, row-major, index =
// 8*y + x.
type Grid [64]float64

// permute applies a [64]int index permutation: out[i] = in[perm[i]].
func permute(in *Grid, perm *[64]int) Grid {
	var out Grid
	for i, p := range perm {
		out[i] = in[p]
	}
	return out
}

// Apply permutes in according to the named transform. Base returns in
// unchanged.
func Apply(t Index, in *Grid) Grid {
	switch t {
	case Base:
		return *in
	case Rot1:
		return permute(in, &rot1Perm)
	case Rot2:
		return permute(in, &rot2Perm)
	case Rot3:
		return permute(in, &rot3Perm)
	case Flip:
		return permute(in, &flipPerm)
	case Flr1:
		return permute(in, &flr1Perm)
	case Flr2:
		return permute(in, &flr2Perm)
	case Flr3:
		return permute(in, &flr3Perm)
	default:
		return *in
	}
}

// The permutation tables below are filled in once by init() from each
// transform's index arithmetic (spec.md §4.1); they are not written out as
// literal tables.
var (
	rot1Perm, rot2Perm, rot3Perm [64]int
	flipPerm                     [64]int
	flr1Perm, flr2Perm, flr3Perm [64]int
)

func init() {
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			out := 8*y + x
			// ROT1 (90 CCW): out[8y+x] = in[8x + (7-y)]
			rot1Perm[out] = 8*x + (7 - y)
			// ROT2: out[8y+x] = in[8(7-y) + (7-x)]
			rot2Perm[out] = 8*(7-y) + (7 - x)
			// ROT3: out[8y+x] = in[8(7-x) + y]
			rot3Perm[out] = 8*(7-x) + y
			// FLIP: out[8y+x] = in[8y + (7-x)]
			flipPerm[out] = 8*y + (7 - x)
		}
	}
	// FLRn = FLIP composed with ROTn: flrPerm[out] = flipPerm[rotPerm[out]]
	for i := 0; i < 64; i++ {
		flr1Perm[i] = flipPerm[rot1Perm[i]]
		flr2Perm[i] = flipPerm[rot2Perm[i]]
		flr3Perm[i] = flipPerm[rot3Perm[i]]
	}
}
