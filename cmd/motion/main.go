package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/motion/cmd/motion/console"
)

var version string
var commit string
var date string

func main() {
	app := &cli.App{
		Name:                 "motion",
		Usage:                "acceleration and magnetic field readout",
		Version:              fmt.Sprintf("%s-%s-%s", version, date, commit),
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable verbose logging",
			},
		},
		Before: func(ctx *cli.Context) error {
			setupLogging(ctx.Bool("verbose"))
			return nil
		},
		Commands: cli.Commands{
			&accelCmd,
			&magCmd,
			&watchCmd,
			&adapterCmd,
			&usbCmd,
		},
	}
	if err := app.Run(os.Args); err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			os.Exit(exerr.ExitCode())
		}
		slog.Error("unexpected error", "error", err)
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	charm := chlog.NewWithOptions(os.Stdout, chlog.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	charm.SetColorProfile(termenv.TrueColor)
	charm.SetLevel(chlog.InfoLevel)
	if verbose {
		charm.SetLevel(chlog.DebugLevel)
		console.Trace = true
	}
	slog.SetDefault(slog.New(charm))
}
