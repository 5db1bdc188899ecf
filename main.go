package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"osuroundtrip/dotosu"
	"osuroundtrip/internal/config"
	"osuroundtrip/ruleset"
)

const usage = `osuroundtrip checks that .osu beatmaps survive a decode/encode round trip.

Usage:
  osuroundtrip [--config FILE] [--log-level LEVEL] <command> [flags] [args]

Commands:
  verify [PATH]   verify a directory, .osz archive or .osu file
  decode FILE     print a JSON summary of a decoded beatmap
  encode FILE     decode a beatmap and write it back out
  watch [DIR]     verify .osu files in DIR again whenever they change

Global flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *ruleset.Registry
	stdout   io.Writer
	stderr   io.Writer
}

func run(args []string, stdout, stderr io.Writer) error {
	flagSet := pflag.NewFlagSet("osuroundtrip", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(stderr)
	configPath := flagSet.String("config", "", "YAML config file (default $"+config.EnvVar+")")
	logLevel := flagSet.String("log-level", "", "override log.level from the config")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printUsage(stderr, flagSet)
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: ruleset.DefaultRegistry(),
		stdout:   stdout,
		stderr:   stderr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command, rest := flagSet.Arg(0), flagSet.Args()[1:]
	switch command {
	case "verify":
		return a.verifyCommand(ctx, rest)
	case "decode":
		return a.decodeCommand(rest)
	case "encode":
		return a.encodeCommand(rest)
	case "watch":
		return a.watchCommand(ctx, rest)
	}
	return fmt.Errorf("unknown command %q (want verify, decode, encode or watch)", command)
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, usage)
	fmt.Fprint(w, flagSet.FlagUsages())
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// decodeOptions are the configured options for decoding input files.
func (a *app) decodeOptions() []dotosu.DecodeOption {
	opts := []dotosu.DecodeOption{
		dotosu.WithOffsets(a.cfg.Decode.Offsets),
		dotosu.WithLenient(a.cfg.Decode.Lenient),
		dotosu.WithLogger(a.logger),
	}
	if v := a.cfg.Decode.FormatVersion; v != 0 {
		opts = append(opts, dotosu.WithFormatVersion(v))
	}
	return opts
}
