// Package hasher implements imghash.c's worker-pool pipeline: walk a set of
// roots, decode each image, perceptually hash it (and its dihedral variants
// if asked for), and emit either plain hex lines or a JSON record array.
//
// Item discovery (the walk) always runs single-threaded to completion before
// any hashing goroutine starts, unlike handle()/thpool_add_work in the C
// tool, which dispatch a file to the pool the moment it's found, while the
// walk is still discovering siblings. The C tool gets away with this because
// every item is its own malloc'd struct linked into a list by pointer; ours
// live in one contiguous internal/item.Arena slice that can reallocate on
// append, so letting hashing workers read arena slots while the walk is
// still appending new ones would race on the slice header. Building the
// whole arena first, then fanning the fixed index range out to workers,
// keeps the two-mutex contract (one serializing output, one serializing the
// fallback decoder) without that race.
package hasher

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/llindqvist/imgtools/internal/config"
	"github.com/llindqvist/imgtools/internal/dihedral"
	"github.com/llindqvist/imgtools/internal/imgdecode"
	"github.com/llindqvist/imgtools/internal/item"
	"github.com/llindqvist/imgtools/internal/phash"
	"github.com/llindqvist/imgtools/internal/record"
	"github.com/llindqvist/imgtools/internal/walk"
)

// pending is one discovered file awaiting an arena slot.
type pending struct {
	path  string
	size  int64
	mtime int64
}

// Run walks roots, hashes every regular file at or under opts.MaxBytes, and
// writes the result to out — one JSON array if opts.Record or opts.Dedup is
// set (jsondump is forced on for dedup exactly as main() does), otherwise
// plain hex lines. It reports failed=true if any root couldn't be walked or
// any discovered file turned out unreadable/undecodable/too small, mirroring
// the nonzero exit imghash.c's main() produces in the same cases.
func Run(opts config.HashOptions, roots []string, out io.Writer, log zerolog.Logger) (failed bool, err error) {
	var pend []pending
	for _, root := range roots {
		walkErr := walk.Files(root, opts.MaxBytes, func(path string, size int64) error {
			info, statErr := os.Stat(path)
			mtime := int64(0)
			if statErr == nil {
				mtime = info.ModTime().Unix()
			}
			pend = append(pend, pending{path: path, size: size, mtime: mtime})
			return nil
		}, func(path string, size int64) {
			log.Warn().Str("path", path).Int64("size", size).Msg("won't handle large file")
		})
		if walkErr != nil {
			log.Warn().Err(walkErr).Str("root", root).Msg("walk failed")
			failed = true
		}
	}

	arena := item.NewArena(len(pend))
	for _, p := range pend {
		it := item.NewItem()
		it.Path = p.path
		it.Size = p.size
		it.MTime = p.mtime
		arena.Add(it)
	}

	recordMode := opts.Record || opts.Dedup
	var enc *record.StreamEncoder
	if recordMode {
		enc, err = record.NewStreamEncoder(out)
		if err != nil {
			return failed, errors.Wrap(err, "hasher: open record stream")
		}
	}

	rotate, flip := opts.EffectiveTransforms()
	r := &runner{
		opts:       opts,
		out:        out,
		log:        log,
		enc:        enc,
		recordMode: recordMode,
		rotate:     rotate,
		flip:       flip,
	}

	n := len(arena.Items)
	if opts.Threads > 1 {
		jobs := make(chan int, n)
		for i := 0; i < n; i++ {
			jobs <- i
		}
		close(jobs)

		var wg sync.WaitGroup
		workers := opts.Threads
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for idx := range jobs {
					r.process(&arena.Items[idx])
				}
			}()
		}
		wg.Wait()
	} else {
		for i := range arena.Items {
			r.process(&arena.Items[i])
		}
	}

	if recordMode {
		if cerr := enc.Close(); cerr != nil {
			return failed, errors.Wrap(cerr, "hasher: close record stream")
		}
	}

	for i := range arena.Items {
		if !arena.Items[i].Valid {
			failed = true
		}
	}
	return failed, nil
}

type runner struct {
	opts       config.HashOptions
	out        io.Writer
	log        zerolog.Logger
	enc        *record.StreamEncoder
	recordMode bool
	rotate     bool
	flip       bool
	plainMu    sync.Mutex
}

// process is handle_item's Go twin: read, decode, downsample, hash, and
// (only if everything up to there succeeded) emit. A failure at any step
// leaves the item invalid and unemitted but does not abort the batch —
// read_item/decompress_item's warnx-and-return pattern, not a fatal error.
func (r *runner) process(it *item.Item) {
	data, err := os.ReadFile(it.Path)
	if err != nil {
		r.log.Warn().Err(err).Str("path", it.Path).Msg("fopen")
		return
	}

	gray, err := imgdecode.Decode(data)
	if err != nil {
		r.log.Warn().Str("path", it.Path).Msg("failed to read image data")
		return
	}
	it.W, it.H = gray.W, gray.H
	it.Valid = it.W >= 8 && it.H >= 8
	if !it.Valid {
		r.log.Warn().Str("path", it.Path).Int("w", it.W).Int("h", it.H).Msg("cannot handle image")
		return
	}

	if r.recordMode {
		if t, ok := imgdecode.ExtractTime(data); ok {
			it.ETime = t.Unix()
		}
	}

	grid := phash.Downsample(gray.Pix, gray.W, gray.H)
	it.Hashes[dihedral.Base] = phash.Hash(&grid)
	if r.rotate {
		it.Hashes[dihedral.Rot1] = phash.Variant(dihedral.Rot1, &grid)
		it.Hashes[dihedral.Rot2] = phash.Variant(dihedral.Rot2, &grid)
		it.Hashes[dihedral.Rot3] = phash.Variant(dihedral.Rot3, &grid)
	}
	if r.flip {
		it.Hashes[dihedral.Flip] = phash.Variant(dihedral.Flip, &grid)
		if r.rotate {
			it.Hashes[dihedral.Flr1] = phash.Variant(dihedral.Flr1, &grid)
			it.Hashes[dihedral.Flr2] = phash.Variant(dihedral.Flr2, &grid)
			it.Hashes[dihedral.Flr3] = phash.Variant(dihedral.Flr3, &grid)
		}
	}

	if r.recordMode {
		r.enc.WriteItem(it)
		return
	}
	r.printPlain(it)
}

// printPlain writes one item's plain hex lines, in print_item's order
// (config.PlainOrder), under plainMu so two workers' multi-line items never
// interleave — the role prlock plays for the non-JSON branch.
func (r *runner) printPlain(it *item.Item) {
	r.plainMu.Lock()
	defer r.plainMu.Unlock()
	for _, t := range config.PlainOrder(r.rotate, r.flip) {
		io.WriteString(r.out, prhashLine(it, t, r.opts.Verbosity))
	}
}

func prhashLine(it *item.Item, t dihedral.Index, verbosity int) string {
	line := hex16(it.Hashes[t])
	if verbosity > 0 {
		line += "\t" + it.Path
	}
	if verbosity > 1 {
		line += "\t# " + t.Name()
	}
	return line + "\n"
}

const hexDigits = "0123456789abcdef"

// hex16 formats a hash as sixteen lowercase hex digits, matching prhash's
// "%016lx" — spelled out rather than routed through fmt to keep the hot
// per-item path allocation-free beyond the final string.
func hex16(v uint64) string {
	var buf [16]byte
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf[:])
}
