package main

import (
	"context"
	"errors"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"

	"osuroundtrip/resources"
)

// settle is how long a directory has to be quiet before changed files are
// verified. Editors tend to write a file more than once per save.
const settle = 250 * time.Millisecond

func (a *app) watchCommand(ctx context.Context, args []string) error {
	flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	workers := flagSet.IntP("workers", "j", a.cfg.Verify.Workers, "files verified in parallel")
	convert := flagSet.Bool("convert", a.cfg.Verify.Convert, "also check double conversion stability")
	failuresDir := flagSet.String("failures", "", "directory to write the output of failed files to")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	dir := a.cfg.Fixtures
	if flagSet.NArg() > 0 {
		dir = flagSet.Arg(0)
	}

	opts := verifyOptions{
		workers:     *workers,
		convert:     *convert,
		skip:        map[int]bool{},
		failuresDir: *failuresDir,
	}
	for _, name := range a.cfg.Verify.SkipRulesets {
		r, err := a.registry.LookupName(name)
		if err != nil {
			return err
		}
		opts.skip[r.ID()] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	db, err := a.openResults(a.cfg.ResultsDB)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	store := resources.NewDirStore(dir)
	names, err := resources.Beatmaps(store)
	if err != nil {
		return err
	}
	a.report(a.verifyAll(ctx, store, names, db, opts))
	a.logger.Info("watching", "dir", dir)

	pending := map[string]struct{}{}
	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !resources.IsBeatmap(ev.Name) {
				continue
			}
			rel, err := filepath.Rel(dir, ev.Name)
			if err != nil {
				continue
			}
			pending[filepath.ToSlash(rel)] = struct{}{}
			timer.Reset(settle)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", "error", err)

		case <-timer.C:
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			a.logger.Info("changed", "files", len(changed))
			a.report(a.verifyAll(ctx, store, changed, db, opts))
		}
	}
}
