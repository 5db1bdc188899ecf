package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"osuroundtrip/beatmap"
	"osuroundtrip/dotosu"
	"osuroundtrip/internal/compare"
	"osuroundtrip/skin"
	"osuroundtrip/storyboard"
)

type summary struct {
	File          string             `json:"file"`
	FormatVersion int                `json:"format_version"`
	Ruleset       string             `json:"ruleset"`
	Title         string             `json:"title"`
	Artist        string             `json:"artist"`
	Creator       string             `json:"creator"`
	Version       string             `json:"version"`
	Difficulty    beatmap.Difficulty `json:"difficulty"`
	ControlPoints map[string]int     `json:"control_points"`
	HitObjects    map[string]int     `json:"hit_objects"`
	Breaks        int                `json:"breaks"`
	ComboColours  []string           `json:"combo_colours,omitempty"`
	Storyboard    int                `json:"storyboard_elements"`
	Digest        string             `json:"digest"`
}

func (a *app) decodeCommand(args []string) error {
	flagSet := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("decode takes exactly one file")
	}
	path := flagSet.Arg(0)

	b, s, err := dotosu.DecodeFile(path, a.decodeOptions()...)
	if err != nil {
		return err
	}
	sum, err := a.summarize(path, b, s)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, string(out))
	return err
}

func (a *app) summarize(path string, b *beatmap.Beatmap, s *skin.Config) (*summary, error) {
	sum := &summary{
		File:          path,
		FormatVersion: b.FormatVersion,
		Title:         b.Metadata.Title,
		Artist:        b.Metadata.Artist,
		Creator:       b.Metadata.Creator,
		Version:       b.Metadata.Version,
		Difficulty:    b.Difficulty,
		ControlPoints: map[string]int{},
		HitObjects:    map[string]int{},
		Breaks:        len(b.Breaks),
	}
	if r, err := a.registry.Lookup(b.RulesetID); err == nil {
		sum.Ruleset = r.ShortName()
	}
	for _, p := range b.ControlPoints.AllControlPoints() {
		sum.ControlPoints[p.Kind().String()]++
	}
	for _, h := range b.HitObjects {
		sum.HitObjects[h.Kind().String()]++
	}
	for _, c := range s.ComboColours {
		sum.ComboColours = append(sum.ComboColours, skin.FormatColour(c))
	}

	if len(b.UnhandledEventLines) > 0 {
		events := "[Events]\n" + strings.Join(b.UnhandledEventLines, "\n")
		sb, err := storyboard.Decode(strings.NewReader(events), a.logger)
		if err != nil {
			return nil, fmt.Errorf("storyboard of %s: %w", path, err)
		}
		sum.Storyboard = sb.ElementCount()
	}

	digest, err := compare.Take(b, s).Digest()
	if err != nil {
		return nil, err
	}
	sum.Digest = hex.EncodeToString(digest[:])
	return sum, nil
}

func (a *app) encodeCommand(args []string) error {
	flagSet := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	output := flagSet.StringP("output", "o", "", "write to this file instead of stdout")
	convert := flagSet.String("ruleset", "", "convert to this ruleset (osu, taiko, fruits, mania) first")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("encode takes exactly one file")
	}

	b, s, err := dotosu.DecodeFile(flagSet.Arg(0), a.decodeOptions()...)
	if err != nil {
		return err
	}
	if *convert != "" {
		r, err := a.registry.LookupName(*convert)
		if err != nil {
			return err
		}
		if b, err = a.registry.ConvertTo(b, r.ID()); err != nil {
			return err
		}
	}

	if *output != "" {
		if err := dotosu.EncodeFile(*output, b, s); err != nil {
			return err
		}
		if info, err := os.Stat(*output); err == nil {
			a.logger.Info("encoded", "file", *output, "size", info.Size(), "objects", len(b.HitObjects))
		}
		return nil
	}
	return dotosu.Encode(a.stdout, b, s)
}
