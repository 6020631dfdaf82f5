package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/FitrahHaque/wzip/config"
	"github.com/FitrahHaque/wzip/engine"
	"github.com/FitrahHaque/wzip/server"
)

var isTerminal = isatty.IsTerminal

const (
	exitOK        = 0
	exitFailure   = 1
	exitBadInput  = 2
	exitIntegrity = 3
)

func main() {
	cfg, err := config.NewConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: ", err)
		os.Exit(exitFailure)
	}

	setupLogging(cfg)
	displayConfig(cfg)

	if cfg.CLI.NoColor {
		color.NoColor = true
	}

	e, err := engine.New(engineOptions(cfg))
	if err != nil {
		logrus.Errorf("unable to create engine: %s", err)
		os.Exit(exitFailure)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, e)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, e *engine.Engine) int {
	switch {
	case cfg.CLI.Listen != "":
		return serve(ctx, cfg, e)
	case len(cfg.CLI.Files) > 0:
		return processFiles(ctx, cfg, e)
	default:
		return processStream(ctx, cfg, e)
	}
}

func serve(ctx context.Context, cfg *config.Config, e *engine.Engine) int {
	s, err := server.New(e, server.Options{
		Listen:          cfg.TOML.Server.Listen,
		MaxBodyBytes:    cfg.TOML.Server.MaxBodyBytes,
		ReadTimeout:     cfg.TOML.Server.ReadTimeout.Duration(),
		WriteTimeout:    cfg.TOML.Server.WriteTimeout.Duration(),
		ShutdownTimeout: cfg.TOML.Server.ShutdownTimeout.Duration(),
	})
	if err != nil {
		logrus.Errorf("unable to create server: %s", err)
		return exitFailure
	}

	if err := s.Run(ctx); err != nil {
		logrus.Errorf("error during server run: %s", err)
		return exitFailure
	}

	return exitOK
}

func processFiles(ctx context.Context, cfg *config.Config, e *engine.Engine) int {
	results := e.ProcessFiles(ctx, mode(cfg), cfg.CLI.Files, engine.FileOptions{
		Suffix:   cfg.CLI.Suffix,
		Delete:   cfg.CLI.Delete,
		Progress: cfg.CLI.Progress,
	})

	code := exitOK
	for _, res := range results {
		if res.Err != nil {
			color.New(color.FgRed).Fprintf(os.Stderr, "%s: %s\n", res.Input, res.Err)
			code = max(code, exitCode(res.Err))
			continue
		}
		if !cfg.CLI.Quiet {
			printSummary(res.Input+" -> "+res.Output, res.Stats)
		}
	}

	return code
}

func processStream(ctx context.Context, cfg *config.Config, e *engine.Engine) (code int) {
	var in io.Reader = os.Stdin
	if cfg.CLI.Input != "" {
		f, err := os.Open(cfg.CLI.Input)
		if err != nil {
			logrus.Errorf("unable to open input: %s", err)
			return exitFailure
		}
		defer f.Close()
		in = f
	}

	m, in, err := e.Resolve(mode(cfg), in)
	if err != nil {
		logrus.Errorf("unable to read input: %s", err)
		return exitFailure
	}

	out := os.Stdout
	if cfg.CLI.Output != "" {
		f, err := os.Create(cfg.CLI.Output)
		if err != nil {
			logrus.Errorf("unable to create output: %s", err)
			return exitFailure
		}
		out = f
		defer func() {
			if err := f.Close(); err != nil && code == exitOK {
				logrus.Errorf("unable to close output: %s", err)
				code = exitFailure
			}
			if code != exitOK {
				_ = os.Remove(cfg.CLI.Output)
			}
		}()
	} else if m == engine.ModeCompress && isTerminal(out.Fd()) {
		logrus.Error("refusing to write compressed data to a terminal, use --output")
		return exitFailure
	}

	bw := bufio.NewWriter(out)
	stats, err := e.Run(ctx, m, bufio.NewReader(in), bw)
	if err == nil {
		err = errors.Wrap(bw.Flush(), "unable to write output")
	}
	if err != nil {
		logrus.Errorf("%s failed (%s): %s", stats.Mode, engine.Classify(err), err)
		return exitCode(err)
	}

	if !cfg.CLI.Quiet && cfg.CLI.Output != "" {
		printSummary(cfg.CLI.Output, stats)
	}

	return exitOK
}

func mode(cfg *config.Config) engine.Mode {
	switch {
	case cfg.CLI.Compress:
		return engine.ModeCompress
	case cfg.CLI.Decompress:
		return engine.ModeDecompress
	default:
		return engine.ModeAuto
	}
}

func exitCode(err error) int {
	kind := engine.Classify(err)

	switch {
	case kind == engine.KindNone:
		return exitOK
	case kind.Integrity():
		return exitIntegrity
	case kind.BadInput():
		return exitBadInput
	default:
		return exitFailure
	}
}

func engineOptions(cfg *config.Config) engine.Options {
	opts := engine.DefaultOptions()
	opts.Level = *cfg.TOML.Compress.Level
	opts.BlockSize = cfg.TOML.Compress.BlockSize

	// Already validated by config.
	if format, err := engine.ParseFormat(cfg.TOML.Compress.Format); err == nil {
		opts.Format = format
	}

	return opts
}

func printSummary(name string, stats engine.Stats) {
	bold := color.New(color.Bold)
	bold.Fprintf(os.Stderr, "%s (%s, %s)\n", name, stats.Mode, stats.Format)
	fmt.Fprintf(os.Stderr, "  Original size (in bytes): %v\n", stats.In)
	fmt.Fprintf(os.Stderr, "  Result size (in bytes): %v\n", stats.Out)

	ratio := color.New(color.FgGreen)
	if stats.Out > stats.In {
		ratio = color.New(color.FgYellow)
	}
	ratio.Fprintf(os.Stderr, "  Ratio: %.2f%%\n", stats.Ratio())
}

func setupLogging(cfg *config.Config) {
	if cfg.TOML.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.TOML.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.CLI.Debug {
		logrus.Debug("debug mode enabled")
	}
}

func displayConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	logrus.Debug("wzip settings:")
	logrus.Debug("  [CLI]")
	logrus.Debugf("  version: %s", config.VERSION)
	logrus.Debugf("  compress: %v", cfg.CLI.Compress)
	logrus.Debugf("  decompress: %v", cfg.CLI.Decompress)
	logrus.Debugf("  input: %s", cfg.CLI.Input)
	logrus.Debugf("  output: %s", cfg.CLI.Output)
	logrus.Debugf("  files: %v", cfg.CLI.Files)
	logrus.Debugf("  suffix: %s", cfg.CLI.Suffix)
	logrus.Debugf("  delete: %v", cfg.CLI.Delete)
	logrus.Debugf("  progress: %v", cfg.CLI.Progress)
	logrus.Debugf("  listen: %s", cfg.CLI.Listen)
	logrus.Debugf("  config file: %s", cfg.CLI.ConfigFile)
	logrus.Debugf("  quiet: %v", cfg.CLI.Quiet)
	logrus.Debug("")
	logrus.Debug("  [COMPRESS]")
	logrus.Debugf("  compress.level: %d", *cfg.TOML.Compress.Level)
	logrus.Debugf("  compress.format: %s", cfg.TOML.Compress.Format)
	logrus.Debugf("  compress.block_size: %d", cfg.TOML.Compress.BlockSize)
	logrus.Debug("")
	logrus.Debug("  [SERVER]")
	logrus.Debugf("  server.listen: %s", cfg.TOML.Server.Listen)
	logrus.Debugf("  server.max_body_bytes: %d", cfg.TOML.Server.MaxBodyBytes)
	logrus.Debugf("  server.read_timeout: %s", cfg.TOML.Server.ReadTimeout)
	logrus.Debugf("  server.write_timeout: %s", cfg.TOML.Server.WriteTimeout)
	logrus.Debugf("  server.shutdown_timeout: %s", cfg.TOML.Server.ShutdownTimeout)
	logrus.Debug("")
	logrus.Debug("  [LOG]")
	logrus.Debugf("  log.level: %s", cfg.TOML.Log.Level)
	logrus.Debugf("  log.format: %s", cfg.TOML.Log.Format)
}
