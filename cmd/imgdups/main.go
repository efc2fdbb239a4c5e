// Command imgdups groups a set of imghash records into duplicate clusters,
// either against each other (intragroup/global) or against a fixed set of
// reference images. It is the Go rebuild of imgdups.c: same clustering
// engine (internal/group), same JSON shape (internal/record), minus yajl.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"github.com/llindqvist/imgtools/internal/config"
	"github.com/llindqvist/imgtools/internal/group"
	"github.com/llindqvist/imgtools/internal/item"
	"github.com/llindqvist/imgtools/internal/record"
)

func main() {
	app := cli.NewApp()
	app.Name = "imgdups"
	app.Usage = "cluster imghash records by perceptual similarity"
	app.UsageText = "imgdups [options] <record.json> ..."

	var verbose, quiet config.Counter
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "l, threshold", Value: 1, Usage: "max Hamming distance counted as a match"},
		cli.GenericFlag{Name: "v, verbose", Value: &verbose, Usage: "increase verbosity"},
		cli.GenericFlag{Name: "q, quiet", Value: &quiet, Usage: "decrease verbosity"},
		cli.BoolFlag{Name: "a, jsondump", Usage: "emit a JSON array of clusters instead of plain paths"},
		cli.BoolFlag{Name: "i, stdin", Usage: "read a record array from stdin instead of positional files"},
		cli.BoolFlag{Name: "x, missing-ok", Usage: "don't skip items whose file no longer exists"},
		cli.StringFlag{Name: "R, reference-files", Usage: "cluster against this reference record file instead of intragroup"},
		cli.BoolFlag{Name: "G, intragroupcheck", Usage: "cluster each input file separately instead of merging them all first"},
		cli.BoolFlag{Name: "d, dedup", Usage: "unused, kept for command-line compatibility"},
	}

	app.Action = func(c *cli.Context) error {
		opts := config.GroupOptions{
			Threshold:   c.Int("threshold"),
			Global:      !c.Bool("intragroupcheck"),
			ReferenceOf: c.String("reference-files"),
			MissingOK:   c.Bool("missing-ok"),
			Record:      c.Bool("jsondump"),
			FromStdin:   c.Bool("stdin"),
			Verbosity:   1 + int(verbose) - int(quiet),
		}

		paths := []string(c.Args())
		if (len(paths) > 0) == opts.FromStdin {
			return cli.NewExitError("exactly one of positional record files or --stdin is required", 1)
		}

		log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

		if err := run(opts, paths, os.Stdout, log); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts config.GroupOptions, paths []string, out io.Writer, log zerolog.Logger) error {
	var refs *group.ReferenceSet
	if opts.ReferenceOf != "" {
		items, err := readRecordFile(opts.ReferenceOf)
		if err != nil {
			return errors.Wrapf(err, "imgdups: read reference file %s", opts.ReferenceOf)
		}
		items = group.FilterMissing(items, opts.MissingOK, log)
		if len(items) == 0 {
			return errors.Errorf("imgdups: no references in %s", opts.ReferenceOf)
		}
		refs = group.NewReferenceSet(items)
	}

	var enc *record.GroupStreamEncoder
	if opts.Record {
		var err error
		enc, err = record.NewGroupStreamEncoder(out)
		if err != nil {
			return errors.Wrap(err, "imgdups: open record stream")
		}
	}

	emit := func(arena *item.Arena, roots []int) {
		for _, root := range roots {
			if enc != nil {
				enc.WriteGroup(arena, root)
				continue
			}
			fmt.Fprintln(out, arena.Items[root].Path)
			for _, peer := range arena.Peers(root) {
				fmt.Fprintln(out, arena.Items[peer].Path)
			}
		}
	}

	if opts.FromStdin {
		items, err := record.ReadItems(os.Stdin)
		if err != nil {
			return errors.Wrap(err, "imgdups: read stdin")
		}
		items = group.FilterMissing(items, opts.MissingOK, log)
		clusterBatch(items, refs, opts.Threshold, emit)
	}

	if len(paths) > 0 {
		if opts.Global {
			var all []item.Item
			for _, p := range paths {
				items, err := readRecordFile(p)
				if err != nil {
					return errors.Wrapf(err, "imgdups: read %s", p)
				}
				all = append(all, items...)
			}
			all = group.FilterMissing(all, opts.MissingOK, log)
			clusterBatch(all, refs, opts.Threshold, emit)
		} else {
			for _, p := range paths {
				items, err := readRecordFile(p)
				if err != nil {
					return errors.Wrapf(err, "imgdups: read %s", p)
				}
				items = group.FilterMissing(items, opts.MissingOK, log)
				clusterBatch(items, refs, opts.Threshold, emit)
			}
		}
	}

	if enc != nil {
		return enc.Close()
	}
	return nil
}

// clusterBatch clusters one batch of items — against refs if set, against
// itself otherwise — and hands the resulting (arena, roots) to emit.
// Mirrors iorrcmp's dispatch between refcmp and intracmp.
func clusterBatch(items []item.Item, refs *group.ReferenceSet, threshold int, emit func(*item.Arena, []int)) {
	if len(items) == 0 {
		return
	}
	if refs != nil {
		roots := refs.Add(items, threshold)
		emit(refs.Arena(), roots)
		return
	}
	arena := item.NewArena(len(items))
	for _, it := range items {
		arena.Add(it)
	}
	roots := group.Intragroup(arena, threshold)
	emit(arena, roots)
}

func readRecordFile(path string) ([]item.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return record.ReadItems(f)
}
