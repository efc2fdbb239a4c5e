// Command jpgtrim losslessly crops the uniform border photographers'
// scanners and cameras sometimes leave around a frame's real content. It is
// the Go rebuild of jpgtrim.c: same findborder/crop pass (internal/trim),
// minus turbojpeg.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"github.com/llindqvist/imgtools/internal/config"
	"github.com/llindqvist/imgtools/internal/trim"
)

func main() {
	app := cli.NewApp()
	app.Name = "jpgtrim"
	app.Usage = "losslessly crop uniform borders from JPEG files"
	app.UsageText = "jpgtrim [options] <file.jpg> ..."
	app.EnableBashCompletion = true

	var verbose, quiet config.Counter
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "f, clobber", Usage: "overwrite without keeping a backup"},
		cli.GenericFlag{Name: "v, verbose", Value: &verbose, Usage: "increase verbosity"},
		cli.GenericFlag{Name: "q, quiet", Value: &quiet, Usage: "decrease verbosity"},
		cli.StringFlag{Name: "o, oldsuffix", Value: trim.DefaultOldSuffix, Usage: "backup suffix, when not clobbering"},
		cli.IntFlag{Name: "t, threshold", Value: 26, Usage: "min/max spread over a run that marks content"},
		cli.IntFlag{Name: "g, gradient", Value: 10, Usage: "pixel-to-pixel delta that marks content"},
		cli.IntFlag{Name: "m, margin", Value: 4, Usage: "border kept even when content runs to the edge"},
		cli.BoolFlag{Name: "d, dry-run", Usage: "report the crop rect without writing anything"},
	}

	app.Action = func(c *cli.Context) error {
		opts := config.TrimOptions{
			LuminosityThresh: c.Int("threshold"),
			GradientThresh:   c.Int("gradient"),
			Margin:           c.Int("margin"),
			Force:            c.Bool("clobber"),
			OutputSuffix:     c.String("oldsuffix"),
			DryRun:           c.Bool("dry-run"),
			Verbosity:        1 + int(verbose) - int(quiet),
		}

		paths := []string(c.Args())
		if len(paths) == 0 {
			return cli.NewExitError("jpgtrim: no files given", 1)
		}

		log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(levelFor(opts.Verbosity))

		failed := false
		for _, path := range paths {
			if err := trim.Handle(path, opts, log); err != nil {
				fmt.Fprintf(os.Stderr, "jpgtrim: %s\n", err)
				failed = true
			}
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
