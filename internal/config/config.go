// Package config holds the plain option structs each cmd/ binary populates
// straight from its cli.Context flags (spec.md §6.3) — no env/file layer,
// matching the teacher's flag-only configuration model.
package config

import "github.com/llindqvist/imgtools/internal/dihedral"

// HashOptions configures cmd/imghash.
type HashOptions struct {
	Threads   int   // -T, --threads
	MaxBytes  int64 // -M, --maxmegabytes, already converted to bytes
	Record    bool  // -a, --jsondump
	Dedup     bool  // -d, --dedup
	Verbosity int   // net of -v/-q, default 1
	Rotate    bool  // -r, --rotate
	Flip      bool  // -f, --flip
	AllTrans  bool  // -t, --transform
	FromStdin bool  // -i, --stdin
}

// EffectiveTransforms reports which dihedral variants must be computed and
// (in plain-hex mode) printed, folding in the "record output always wants
// every variant" rule from imghash.c's `if (jsondump) transform = ~TRANS_NONE`.
func (o HashOptions) EffectiveTransforms() (rotate, flip bool) {
	if o.Record || o.Dedup || o.AllTrans {
		return true, true
	}
	return o.Rotate, o.Flip
}

// PlainOrder returns, in print order, the dihedral variants plain-hex mode
// emits for one item: always Base first, then Rot1-3 if rotate, then Flip
// (and Flr1-3 if rotate) if flip. Mirrors imghash.c's print_item ordering
// exactly (which differs from the tie-break evaluation order used by the
// grouper).
func PlainOrder(rotate, flip bool) []dihedral.Index {
	order := []dihedral.Index{dihedral.Base}
	if rotate {
		order = append(order, dihedral.Rot1, dihedral.Rot2, dihedral.Rot3)
	}
	if flip {
		order = append(order, dihedral.Flip)
		if rotate {
			order = append(order, dihedral.Flr1, dihedral.Flr2, dihedral.Flr3)
		}
	}
	return order
}

// GroupOptions configures cmd/imgdups. Global defaults true: every record
// file given is merged into one set and clustered in a single pass. -G
// (intragroupcheck) sets it false, clustering each input file's items
// separately instead — note the flag's name is the inverse of what it
// does to this field.
type GroupOptions struct {
	Threshold   int    // -l, --threshold: max Hamming distance counted as a match
	Global      bool   // true unless -G/--intragroupcheck is given
	ReferenceOf string // -R, --reference-files: reference record file path, empty if unset
	MissingOK   bool   // -x, --missing-ok: keep items whose file no longer exists instead of dropping them
	Record      bool   // -a, --jsondump
	FromStdin   bool   // -i, --stdin: read a record array from stdin instead of positional files
	Verbosity   int
}

// TrimOptions configures cmd/jpgtrim. findBorder walks inward from each edge
// and counts lines as border until it reaches a line on which two conditions
// both hold: a pixel-to-pixel delta exceeds GradientThresh (-g) and the
// min/max spread along the line exceeds LuminosityThresh (-t). That
// line is content and ends the scan; a line that exceeds only one of the two
// thresholds still counts as border.
type TrimOptions struct {
	LuminosityThresh int    // -t, --threshold: min/max spread that marks content, default 26
	GradientThresh   int    // -g, --gradient: pixel-to-pixel delta that marks content, default 10
	Margin           int    // -m, --margin: border kept even when content runs to the edge, default 4
	Force            bool   // -f, --clobber: overwrite without the .0ld backup
	OutputSuffix     string // -o, --oldsuffix: backup suffix, default ".0ld"
	DryRun           bool   // -d, --dry-run: report the crop rect without writing
	Verbosity        int
}
