// Command imghash perceptually hashes images — baseline JPEGs through
// internal/jpegcodec, everything else through the standard decoders — and
// prints either plain hex hashes or a JSON record array, one entry per
// input file. It is the Go rebuild of imghash.c: same flag surface, same
// worker-pool-and-print-mutex shape, minus libexif/turbojpeg/pthreads.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"github.com/llindqvist/imgtools/internal/config"
	"github.com/llindqvist/imgtools/internal/hasher"
)

func main() {
	app := cli.NewApp()
	app.Name = "imghash"
	app.Usage = "perceptually hash images"
	app.UsageText = "imghash [options] <file|dir> ..."

	var verbose, quiet config.Counter
	app.Flags = []cli.Flag{
		cli.GenericFlag{Name: "v, verbose", Value: &verbose, Usage: "increase verbosity"},
		cli.GenericFlag{Name: "q, quiet", Value: &quiet, Usage: "decrease verbosity"},
		cli.BoolFlag{Name: "R, raw", Usage: "unused, kept for command-line compatibility"},
		cli.IntFlag{Name: "T, threads", Value: 8, Usage: "worker count, 1 disables the pool"},
		cli.BoolFlag{Name: "a, jsondump", Usage: "emit a JSON record array instead of plain hex"},
		cli.IntFlag{Name: "M, maxmegabytes", Value: 64, Usage: "skip files larger than this many MiB"},
		cli.BoolFlag{Name: "t, transform", Usage: "compute and print every dihedral variant"},
		cli.BoolFlag{Name: "r, rotate", Usage: "also compute the three rotations"},
		cli.BoolFlag{Name: "f, flip", Usage: "also compute the mirrored variants"},
		cli.BoolFlag{Name: "i, stdin", Usage: "read a newline-separated file list from stdin"},
		cli.BoolFlag{Name: "d, dedup", Usage: "hash, then hand the record off to imgdups -a"},
	}

	app.Action = func(c *cli.Context) error {
		opts := config.HashOptions{
			Threads:   c.Int("threads"),
			MaxBytes:  int64(c.Int("maxmegabytes")) * 1024 * 1024,
			Record:    c.Bool("jsondump"),
			Dedup:     c.Bool("dedup"),
			Verbosity: 1 + int(verbose) - int(quiet),
			Rotate:    c.Bool("rotate"),
			Flip:      c.Bool("flip"),
			AllTrans:  c.Bool("transform"),
			FromStdin: c.Bool("stdin"),
		}

		roots := []string(c.Args())
		if (len(roots) > 0) == opts.FromStdin {
			return cli.NewExitError("exactly one of positional files or --stdin is required", 1)
		}
		if opts.FromStdin {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				roots = append(roots, scanner.Text())
			}
		}

		log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(levelFor(opts.Verbosity))

		if opts.Dedup {
			return runDedup(opts, roots, log)
		}

		failed, err := hasher.Run(opts, roots, os.Stdout, log)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		if failed {
			return cli.NewExitError("", 1)
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runDedup writes the record output to a temp file (jsondump forced on,
// exactly as main() does for -d) then runs imgdups -a against it. The C
// tool execlp-replaces itself, exiting 127 only if the exec fails; Go
// processes can't replace themselves portably, so this runs imgdups as a
// child and forwards its exit code instead, cleaning up the temp file
// afterward (the C tool never unlinks it, relying on process exit).
func runDedup(opts config.HashOptions, roots []string, log zerolog.Logger) error {
	opts.Record = true

	tmp, err := os.CreateTemp("", "imghash-*.json")
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("unable to get tempfile: %s", err), 1)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	fmt.Printf("Writing to tempfile %s\n", tmpPath)

	failed, err := hasher.Run(opts, roots, tmp, log)
	closeErr := tmp.Close()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if closeErr != nil {
		return cli.NewExitError(closeErr.Error(), 1)
	}
	_ = failed // dedup hands the full record to imgdups regardless of per-item failures

	cmd := exec.Command("imgdups", "-a", tmpPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return cli.NewExitError("", exitErr.ExitCode())
		}
		return cli.NewExitError(fmt.Sprintf("unable to run imgdups: %s", err), 127)
	}
	return nil
}

func levelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity > 1:
		return zerolog.DebugLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 0:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
