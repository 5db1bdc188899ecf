package dotosu

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"osuroundtrip/beatmap"
	"osuroundtrip/controlpoints"
	"osuroundtrip/skin"
)

// ENCODE_VERSION is the format version written by Encode.
const ENCODE_VERSION = FIRST_LAZER_VERSION

type encoder struct {
	w    *bufio.Writer
	b    *beatmap.Beatmap
	skin *skin.Config
}

func EncodeFile(path string, b *beatmap.Beatmap, s *skin.Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, b, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes b, and the combo colours of s when s is non-nil, as a .osu
// file. Per-object sample and slider velocity state is written back as
// legacy control points.
func Encode(w io.Writer, b *beatmap.Beatmap, s *skin.Config) error {
	e := &encoder{w: bufio.NewWriter(w), b: b, skin: s}

	fmt.Fprintf(e.w, "%s%d\n", headerPrefix, ENCODE_VERSION)
	e.general()
	e.editor()
	e.metadata()
	e.difficulty()
	e.events()
	e.timingPoints()
	e.colours()
	e.hitObjects()

	return e.w.Flush()
}

func (e *encoder) section(name string) {
	fmt.Fprintf(e.w, "\n[%s]\n", name)
}

func (e *encoder) kv(key string, val any) {
	switch v := val.(type) {
	case float64:
		val = formatFloat(v)
	case bool:
		val = formatBoolInt(v)
	}
	fmt.Fprintf(e.w, "%s: %v\n", key, val)
}

func (e *encoder) general() {
	g := e.b.General
	e.section("General")
	e.kv("AudioFilename", g.AudioFilename)
	e.kv("AudioLeadIn", g.AudioLeadIn)
	e.kv("PreviewTime", g.PreviewTime)
	e.kv("Countdown", g.Countdown)
	e.kv("SampleSet", sampleSetName(g.SampleSet))
	e.kv("SampleVolume", g.SampleVolume)
	e.kv("StackLeniency", g.StackLeniency)
	e.kv("Mode", e.b.RulesetID)
	e.kv("LetterboxInBreaks", g.LetterboxInBreaks)
	if g.SpecialStyle {
		e.kv("SpecialStyle", true)
	}
	e.kv("WidescreenStoryboard", g.WidescreenStoryboard)
	if g.EpilepsyWarning {
		e.kv("EpilepsyWarning", true)
	}
	if g.SamplesMatchPlaybackRate {
		e.kv("SamplesMatchPlaybackRate", true)
	}
	if g.CountdownOffset != 0 {
		e.kv("CountdownOffset", g.CountdownOffset)
	}
}

func sampleSetName(bank string) string {
	if bank == "" {
		return "None"
	}
	return strings.ToUpper(bank[:1]) + bank[1:]
}

func (e *encoder) editor() {
	ed := e.b.Editor
	e.section("Editor")
	if len(ed.Bookmarks) > 0 {
		marks := make([]string, len(ed.Bookmarks))
		for i, m := range ed.Bookmarks {
			marks[i] = strconv.Itoa(m)
		}
		e.kv("Bookmarks", strings.Join(marks, ","))
	}
	e.kv("DistanceSpacing", ed.DistanceSpacing)
	e.kv("BeatDivisor", ed.BeatDivisor)
	e.kv("GridSize", ed.GridSize)
	e.kv("TimelineZoom", ed.TimelineZoom)
}

func (e *encoder) metadata() {
	m := e.b.Metadata
	e.section("Metadata")
	e.kv("Title", m.Title)
	if m.TitleUnicode != "" {
		e.kv("TitleUnicode", m.TitleUnicode)
	}
	e.kv("Artist", m.Artist)
	if m.ArtistUnicode != "" {
		e.kv("ArtistUnicode", m.ArtistUnicode)
	}
	e.kv("Creator", m.Creator)
	e.kv("Version", m.Version)
	if m.Source != "" {
		e.kv("Source", m.Source)
	}
	if m.Tags != "" {
		e.kv("Tags", m.Tags)
	}
	if m.BeatmapID != 0 {
		e.kv("BeatmapID", m.BeatmapID)
	}
	if m.BeatmapSetID != 0 {
		e.kv("BeatmapSetID", m.BeatmapSetID)
	}
}

func (e *encoder) difficulty() {
	d := e.b.Difficulty
	e.section("Difficulty")
	e.kv("HPDrainRate", d.HPDrainRate)
	e.kv("CircleSize", d.CircleSize)
	e.kv("OverallDifficulty", d.OverallDifficulty)
	e.kv("ApproachRate", d.ApproachRate)
	e.kv("SliderMultiplier", d.SliderMultiplier)
	e.kv("SliderTickRate", d.SliderTickRate)
}

func (e *encoder) events() {
	e.section("Events")
	if bg := e.b.Metadata.BackgroundFile; bg != "" {
		fmt.Fprintf(e.w, "%d,0,\"%s\",0,0\n", eventBackground, bg)
	}
	for _, br := range e.b.Breaks {
		fmt.Fprintf(e.w, "%d,%s,%s\n", eventBreak, formatFloat(br.Start), formatFloat(br.End))
	}
	for _, l := range e.b.UnhandledEventLines {
		fmt.Fprintln(e.w, l)
	}
}

// legacyProperties is the state of one written timing line.
type legacyProperties struct {
	sliderVelocity   float64
	generateTicks    bool
	timeSignature    int
	sampleBank       SampleSet
	customSampleBank int
	sampleVolume     int
	effects          EffectFlags
}

func (e *encoder) scrollAsVelocity() bool {
	return e.b.RulesetID == beatmap.RulesetTaiko || e.b.RulesetID == beatmap.RulesetMania
}

// legacyControlPoints rebuilds the sample and difficulty points from the hit
// objects, on top of the beatmap's timing and effect points. Taiko and mania
// keep their difficulty points, which hold the scroll speed.
func (e *encoder) legacyControlPoints() *controlpoints.Info {
	src := e.b.ControlPoints
	if src == nil {
		src = controlpoints.NewInfo()
	}
	info := src.Without(controlpoints.KindSample, controlpoints.KindDifficulty).AsLegacy()
	if e.scrollAsVelocity() {
		for _, p := range src.DifficultyPoints() {
			info.Add(p)
		}
	}

	objects := beatmap.ApplyDefaults(info, e.b.Difficulty, e.b.HitObjects)
	difficulty, samples := beatmap.ExtractLegacyControlPoints(objects, e.scrollAsVelocity())
	for _, p := range difficulty {
		info.Add(p)
	}
	for _, p := range samples {
		info.Add(p)
	}

	if e.scrollAsVelocity() {
		for _, p := range info.EffectPoints() {
			ticks := info.DifficultyPointAt(p.Time).GenerateTicks
			info.Add(controlpoints.NewDifficultyPoint(p.Time, p.ScrollSpeed, ticks))
		}
	}
	return info
}

func (e *encoder) timingPoints() {
	info := e.legacyControlPoints()
	e.section("TimingPoints")

	var last legacyProperties
	for _, g := range info.Groups() {
		tp, isTiming := g.Timing()
		props := e.propertiesAt(info, g.Time, isTiming, last)

		if isTiming {
			e.timingLine(tp.Time, formatFloat(tp.BeatLength), props, true)
			last = props
			last.sliderVelocity = 1
			last.generateTicks = true
		}
		if props == last {
			continue
		}

		// NaN reads back as a tickless 1x line and cannot carry another velocity
		beatLength := -100 / props.sliderVelocity
		if !props.generateTicks && props.sliderVelocity == 1 {
			beatLength = math.NaN()
		}
		e.timingLine(g.Time, formatFloat(beatLength), props, false)
		last = props
	}
}

func (e *encoder) propertiesAt(info *controlpoints.Info, t float64, updateBank bool, last legacyProperties) legacyProperties {
	tp := info.TimingPointAt(t)
	dp := info.DifficultyPointAt(t)
	sp := info.SamplePointAt(t)
	ep := info.EffectPointAt(t)

	props := legacyProperties{
		sliderVelocity:   dp.SliderVelocity,
		generateTicks:    dp.GenerateTicks,
		timeSignature:    tp.TimeSignature,
		sampleBank:       last.sampleBank,
		customSampleBank: sp.CustomSampleBank,
		sampleVolume:     sp.SampleVolume,
	}
	if updateBank {
		props.sampleBank = toSampleSet(sp.SampleBank)
	}
	// -1 marks a point that does not care about the custom bank
	if props.customSampleBank < 0 {
		props.customSampleBank = last.customSampleBank
	}
	if ep.KiaiMode {
		props.effects |= EffectKiai
	}
	if tp.OmitFirstBarLine {
		props.effects |= EffectOmitFirstBarLine
	}
	return props
}

func (e *encoder) timingLine(t float64, beatLength string, p legacyProperties, timingChange bool) {
	fmt.Fprintf(e.w, "%s,%s,%d,%d,%d,%d,%s,%d\n",
		formatFloat(t), beatLength, p.timeSignature, p.sampleBank, p.customSampleBank,
		p.sampleVolume, formatBoolInt(timingChange), p.effects)
}

func (e *encoder) colours() {
	if e.skin == nil || len(e.skin.ComboColours) == 0 {
		return
	}
	e.section("Colours")
	for i, c := range e.skin.LegacyComboColours() {
		fmt.Fprintf(e.w, "Combo%d: %s\n", i+1, skin.FormatColour(c))
	}
}
