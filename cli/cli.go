package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "soaker"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// -v is taken by the run verbosity flag
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "Print the version",
	}

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		cli: &cli.App{
			Name:           AppName,
			Usage:          "Run a test program in a loop, recording every run",
			DefaultCommand: "run",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "verbose",
					Usage: "Enable verbose (debug) logging",
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run one or more test programs in a loop",
		ArgsUsage: "TEST...",
		Action:    app.run,
		Flags:     runFlags(),
		Description: `Run each TEST in turn, repeating forever until interrupted or a
failure stops the loop. Every invocation gets its own run record
directory under the results root, holding timestamped stdout/stderr
logs, the duration, the exit status and git metadata. The "current"
and "latest" pointer aliases track the newest record per tag.

A single interrupt lets the current test finish and then stops the
loop; a second interrupt kills the test's whole process tree.`,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previous run records",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "tag",
				Usage: "Only show records with this tag",
			},
			resultsFlag(),
			configFlag(),
		},
	})
	return app
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "once",
			Aliases: []string{"1"},
			Usage:   "Run each test once instead of looping",
		},
		&cli.BoolFlag{
			Name:    "lenient",
			Aliases: []string{"k"},
			Usage:   "Keep looping after infrastructure failures; repeat to keep looping after any failure",
		},
		&cli.BoolFlag{
			Name:    "live",
			Aliases: []string{"v"},
			Usage:   "Mirror test stdout live; repeat to mirror stderr too",
		},
		&cli.StringFlag{
			Name:  "tag",
			Usage: "Suffix for run record names and pointer aliases",
		},
		&cli.BoolFlag{
			Name:  "video",
			Usage: "Ask the test program to record a video into the run record",
		},
		&cli.BoolFlag{
			Name:  "dump-images",
			Usage: "Ask the test program to dump debug images",
		},
		resultsFlag(),
		configFlag(),
	}
}

func resultsFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "results",
		Aliases: []string{"o"},
		Usage:   "Results root directory holding run records",
		Value:   "results",
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "config",
		Usage: "Config file providing flag defaults",
		Value: defaultConfigFile,
	}
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}
