package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"

	"osuroundtrip/beatmap"
	"osuroundtrip/dotosu"
	"osuroundtrip/internal/compare"
	"osuroundtrip/internal/results"
	"osuroundtrip/resources"
	"osuroundtrip/skin"
)

const statusSkip results.Status = "skip"

// outcome is the verification of one file.
type outcome struct {
	Name     string
	Ruleset  string
	Size     int64
	Objects  int
	Duration time.Duration
	Status   results.Status
	Err      error
	// Output is the re-encoded text of the first failing step.
	Output   []byte
}

type verifyOptions struct {
	workers     int
	convert     bool
	skipSeen    bool
	skip        map[int]bool
	failuresDir string
}

func (a *app) verifyCommand(ctx context.Context, args []string) error {
	flagSet := pflag.NewFlagSet("verify", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	workers := flagSet.IntP("workers", "j", a.cfg.Verify.Workers, "files verified in parallel")
	convert := flagSet.Bool("convert", a.cfg.Verify.Convert, "also check double conversion stability")
	skipSeen := flagSet.Bool("skip-seen", a.cfg.Verify.SkipSeen, "skip files whose content already passed")
	skip := flagSet.StringSlice("skip-ruleset", a.cfg.Verify.SkipRulesets, "ruleset short names not to verify")
	failuresDir := flagSet.String("failures", "", "directory to write the output of failed files to")
	dbPath := flagSet.String("results", a.cfg.ResultsDB, "SQLite results database, empty to disable")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	opts := verifyOptions{
		workers:     *workers,
		convert:     *convert,
		skipSeen:    *skipSeen,
		skip:        map[int]bool{},
		failuresDir: *failuresDir,
	}
	for _, name := range *skip {
		r, err := a.registry.LookupName(name)
		if err != nil {
			return err
		}
		opts.skip[r.ID()] = true
	}

	path := a.cfg.Fixtures
	if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	src, err := openSource(path)
	if err != nil {
		return err
	}
	defer src.close()

	db, err := a.openResults(*dbPath)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	outcomes := a.verifyAll(ctx, src.store, src.names, db, opts)
	a.report(outcomes)
	return summarize(outcomes)
}

// source is the set of beatmaps named on the command line.
type source struct {
	store resources.Store
	names []string
	close func() error
}

// openSource opens a directory, an .osz archive or a single beatmap file.
func openSource(path string) (*source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	noop := func() error { return nil }

	if info.IsDir() {
		store := resources.NewDirStore(path)
		names, err := resources.Beatmaps(store)
		if err != nil {
			return nil, err
		}
		return &source{store: store, names: names, close: noop}, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".osz", ".zip":
		store, err := resources.OpenZip(path)
		if err != nil {
			return nil, err
		}
		names, err := resources.Beatmaps(store)
		if err != nil {
			store.Close()
			return nil, err
		}
		return &source{store: store, names: names, close: store.Close}, nil
	}

	if !resources.IsBeatmap(path) {
		return nil, fmt.Errorf("%s is not a directory, archive or .osu file", path)
	}
	store := resources.NewDirStore(filepath.Dir(path))
	return &source{store: store, names: []string{filepath.Base(path)}, close: noop}, nil
}

func (a *app) openResults(path string) (*results.Store, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return results.Open(path, a.logger)
}

func (a *app) verifyAll(ctx context.Context, store resources.Store, names []string, db *results.Store, opts verifyOptions) []outcome {
	outcomes := make([]outcome, len(names))
	var done atomic.Int64

	forEach(len(names), opts.workers, func(i int) {
		if ctx.Err() != nil {
			outcomes[i] = outcome{Name: names[i], Status: statusSkip, Err: ctx.Err()}
			return
		}
		o := a.verifyFile(ctx, store, names[i], db, opts)
		outcomes[i] = o

		n := done.Add(1)
		attrs := []any{"file", o.Name, "status", o.Status, "progress", fmt.Sprintf("%d/%d", n, len(names))}
		if o.Status == results.StatusFail {
			a.logger.Warn("verification failed", append(attrs, "error", o.Err)...)
		} else {
			a.logger.Debug("verified", attrs...)
		}
	})
	return outcomes
}

func (a *app) verifyFile(ctx context.Context, store resources.Store, name string, db *results.Store, opts verifyOptions) outcome {
	start := time.Now()
	o := outcome{Name: name}

	data, err := resources.ReadAll(store, name)
	if err != nil {
		o.Status, o.Err = results.StatusFail, err
		return o
	}
	o.Size = int64(len(data))
	hash := results.Hash(data)

	if db != nil && opts.skipSeen {
		seen, err := db.Seen(ctx, hash)
		if err != nil {
			a.logger.Warn("results lookup failed", "file", name, "error", err)
		}
		if seen {
			o.Status = statusSkip
			return o
		}
	}

	err = guard(func() error { return a.verifyData(data, opts, &o) })
	o.Duration = time.Since(start)
	if o.Status == statusSkip {
		return o
	}
	o.Status = results.StatusPass
	if err != nil {
		o.Status, o.Err = results.StatusFail, err
		if opts.failuresDir != "" {
			if err := saveFailure(opts.failuresDir, name, o.Output, err.Error()); err != nil {
				a.logger.Error("saving failure", "file", name, "error", err)
			}
		}
	}

	if db != nil {
		run := results.Run{
			Name:     name,
			Hash:     hash,
			Status:   o.Status,
			Duration: o.Duration,
			Size:     o.Size,
			Output:   o.Output,
			At:       time.Now(),
		}
		if o.Err != nil {
			run.Error = o.Err.Error()
		}
		if err := db.Record(ctx, run); err != nil {
			a.logger.Error("recording run", "file", name, "error", err)
		}
	}
	return o
}

// verifyData decodes data, encodes it and decodes the output again, which
// must give the same beatmap. With opts.convert the beatmap is also
// converted, round tripped and converted twice more, which must not change
// it either.
func (a *app) verifyData(data []byte, opts verifyOptions, o *outcome) error {
	b, s, err := dotosu.Decode(bytes.NewReader(data), a.decodeOptions()...)
	if err != nil {
		return err
	}
	o.Objects = len(b.HitObjects)
	if r, err := a.registry.Lookup(b.RulesetID); err == nil {
		o.Ruleset = r.ShortName()
	}
	if opts.skip[b.RulesetID] {
		o.Status = statusSkip
		return nil
	}

	again, againSkin, output, err := a.reencode(b, s)
	if err != nil {
		o.Output = output
		return fmt.Errorf("round trip: %w", err)
	}
	if err := sameBeatmap(b, s, again, againSkin); err != nil {
		o.Output = output
		return fmt.Errorf("round trip: %w", err)
	}

	if !opts.convert {
		return nil
	}
	once, err := a.registry.Convert(b)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	decoded, decodedSkin, output, err := a.reencode(once, s)
	if err != nil {
		o.Output = output
		return fmt.Errorf("converted round trip: %w", err)
	}
	twice, err := a.registry.Convert(decoded)
	if err == nil {
		twice, err = a.registry.Convert(twice)
	}
	if err != nil {
		return fmt.Errorf("convert again: %w", err)
	}
	if err := sameBeatmap(once, s, twice, decodedSkin); err != nil {
		o.Output = output
		return fmt.Errorf("double conversion: %w", err)
	}
	return nil
}

// reencode encodes b and decodes the result at b's format version.
func (a *app) reencode(b *beatmap.Beatmap, s *skin.Config) (*beatmap.Beatmap, *skin.Config, []byte, error) {
	var buf bytes.Buffer
	if err := dotosu.Encode(&buf, b, s); err != nil {
		return nil, nil, nil, err
	}
	out := buf.Bytes()
	again, againSkin, err := dotosu.Decode(bytes.NewReader(out),
		dotosu.WithFormatVersion(b.FormatVersion),
		dotosu.WithLogger(a.logger))
	if err != nil {
		return nil, nil, out, err
	}
	return again, againSkin, out, nil
}

func sameBeatmap(want *beatmap.Beatmap, wantSkin *skin.Config, got *beatmap.Beatmap, gotSkin *skin.Config) error {
	m, err := compare.Beatmaps(want, wantSkin, got, gotSkin)
	if err != nil {
		return err
	}
	if m != nil {
		return m
	}
	return nil
}

// summarize returns an error naming the first failure, if any.
func summarize(outcomes []outcome) error {
	var passed, checked int
	var first *outcome
	for i := range outcomes {
		o := &outcomes[i]
		switch o.Status {
		case results.StatusPass:
			passed++
			checked++
		case results.StatusFail:
			checked++
			if first == nil {
				first = o
			}
		}
	}
	if first != nil {
		return fmt.Errorf("verified %d/%d .osu files; first failure %s: %w", passed, checked, first.Name, first.Err)
	}
	return nil
}
