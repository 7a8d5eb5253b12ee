package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/xeptore/rockar/config"
	"github.com/xeptore/rockar/constants"
	"github.com/xeptore/rockar/fs"
	"github.com/xeptore/rockar/history"
	"github.com/xeptore/rockar/log"
	"github.com/xeptore/rockar/prompt"
	"github.com/xeptore/rockar/rip"
	"github.com/xeptore/rockar/rockar"
	"github.com/xeptore/rockar/ytdl"
)

func main() {
	logger := log.NewDefault()

	//nolint:exhaustruct
	app := &cli.Command{
		Name:    "rockar",
		Version: constants.Version,
		Metadata: map[string]any{
			"compiled_at": constants.CompileTime,
		},
		Suggest:   true,
		Usage:     "Descarga la discografía de un artista de rock.com.ar",
		ArgsUsage: "<artista> [disco]",
		Description: strings.Join(
			[]string{
				"Busca el artista en rock.com.ar y descarga cada tema de sus discos.",
				"Sin disco, recorre la discografía completa.",
			},
			"\n",
		),
		EnableShellCompletion:      true,
		ShellCompletionCommandName: "shell-completion",
		Flags: []cli.Flag{
			//nolint:exhaustruct
			&cli.BoolFlag{
				Name:    "simulate",
				Aliases: []string{"s"},
				Usage:   "Search tracks without downloading them",
			},
			//nolint:exhaustruct
			&cli.BoolFlag{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List the artist albums and exit",
			},
			//nolint:exhaustruct
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Pick the albums to download when no album is given",
			},
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Config file path",
				Required: false,
			},
		},
		Action: run,
	}

	if err := app.Run(context.Background(), os.Args); nil != err {
		if errors.Is(err, context.Canceled) {
			logger.Trace().Msg("Application was canceled")
			_, _ = fmt.Fprintln(os.Stdout, "\nERROR: Lo interrumpiste vos")
			os.Exit(1)
		}

		var exitCode exitCodeError
		if errors.As(err, &exitCode) {
			os.Exit(int(exitCode))
		}

		logger.Error().Err(err).Msg("Application exited with error")
		os.Exit(10)
	}
}

type exitCodeError int

func (e exitCodeError) Error() string {
	return "error with exit code: " + strconv.Itoa(int(e))
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.NewDefault()

	if cmd.NArg() < 1 || cmd.NArg() > 2 {
		if err := cli.ShowAppHelp(cmd); nil != err {
			return fmt.Errorf("show help: %v", err)
		}

		return exitCodeError(1)
	}

	if err := godotenv.Load(); nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env file: %v", err)
		}
		logger.Debug().Msg(".env file was not found")
	} else {
		logger.Debug().Msg(".env file was loaded")
	}

	conf, err := config.Load(cmd.String("config"))
	if nil != err {
		return fmt.Errorf("load config: %v", err)
	}

	logger = log.FromConfig(conf.Log)

	logger.Debug().Dict("config", conf.ToDict()).Msg("Config loaded")

	client, err := rockar.NewClient(conf.Site)
	if nil != err {
		return fmt.Errorf("create site client: %v", err)
	}

	var hist rip.History
	if conf.History.Enabled() {
		h, err := history.Open(conf.History.Path)
		if nil != err {
			return fmt.Errorf("open history: %v", err)
		}
		defer func() {
			if err := h.Close(); nil != err {
				logger.Error().Err(err).Msg("close history")
			}
		}()
		hist = h
		logger.Debug().Str("path", conf.History.Path).Msg("History opened")
	}

	opts := rip.Options{
		Artist:   cmd.Args().Get(0),
		Album:    cmd.Args().Get(1),
		Simulate: cmd.Bool("simulate"),
		List:     cmd.Bool("list"),
		Pause:    conf.Downloader.Pause.Duration,
		Select:   nil,
	}
	if cmd.Bool("interactive") && opts.Album == "" {
		opts.Select = prompt.SelectAlbums
	}

	runner := rip.NewRunner(
		client,
		ytdl.New(conf.Downloader),
		fs.DownloadsDirFrom(conf.Output.Dir),
		hist,
		os.Stdout,
	)

	return runErr(logger, runner.Run(ctx, logger, opts))
}

func runErr(logger zerolog.Logger, err error) error {
	switch {
	case nil == err:
		return nil
	case errors.Is(err, rip.ErrArtistNotFound), errors.Is(err, rip.ErrAlbumNotFound):
		return exitCodeError(1)
	case errors.Is(err, syscall.ENOTTY):
		logger.Error().Msg("No TTY detected. Interactive mode needs a terminal.")
		return exitCodeError(2)
	default:
		return err
	}
}
