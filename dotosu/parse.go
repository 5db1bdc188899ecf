package dotosu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"osuroundtrip/beatmap"
	"osuroundtrip/controlpoints"
	"osuroundtrip/skin"
	"osuroundtrip/storyboard"
)

const maxLine = 1024 * 1024

type decoder struct {
	o    decodeOptions
	log  *slog.Logger
	b    *beatmap.Beatmap
	skin *skin.Config
	info *controlpoints.Info

	version    int
	offset     float64
	headerSeen bool
	sec        section
	lineNo     int

	defaultSampleBank   string
	defaultSampleVolume int
	seenAR              bool

	pending     []controlpoints.ControlPoint
	pendingTime float64
}

func DecodeFile(path string, opts ...DecodeOption) (*beatmap.Beatmap, *skin.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Decode(f, opts...)
}

// Decode reads a .osu file. The returned beatmap holds a legacy control
// point info; unless WithoutMigration is given, sample and difficulty state
// has also been applied to the hit objects.
func Decode(r io.Reader, opts ...DecodeOption) (*beatmap.Beatmap, *skin.Config, error) {
	d := &decoder{
		o:                   newDecodeOptions(opts),
		b:                   beatmap.New(),
		skin:                &skin.Config{},
		info:                controlpoints.NewLegacyInfo(),
		defaultSampleBank:   beatmap.BankNormal,
		defaultSampleVolume: 100,
		pendingTime:         math.NaN(),
	}
	d.log = d.o.logger
	d.setVersion(d.o.version)

	sc := bufio.NewScanner(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	sc.Buffer(make([]byte, 64*1024), maxLine)

	for sc.Scan() {
		d.lineNo++
		text := sc.Text()

		if !d.headerSeen && strings.TrimSpace(text) != "" {
			d.headerSeen = true
			handled, err := d.parseHeader(text)
			if err != nil {
				return nil, nil, &FormatError{Line: d.lineNo, Section: d.sec.String(), Text: text, Err: err}
			}
			if handled {
				continue
			}
		}

		if err := d.parseLine(text); err != nil {
			ferr := &FormatError{Line: d.lineNo, Section: d.sec.String(), Text: text, Err: err}
			if !d.o.lenient {
				return nil, nil, ferr
			}
			d.log.Warn("skipping malformed line", "line", d.lineNo, "section", d.sec.String(), "error", err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if !d.headerSeen && d.o.version == 0 {
		return nil, nil, &FormatError{Err: errors.New("empty input")}
	}

	d.flushPendingPoints()
	d.finish()
	return d.b, d.skin, nil
}

func (d *decoder) setVersion(v int) {
	d.version = v
	d.b.FormatVersion = v
	d.offset = 0
	if d.o.applyOffsets && v < 5 {
		d.offset = EARLY_VERSION_TIMING_OFFSET
	}
}

// parseHeader handles the first non-blank line. It reports false when the
// line is not a header and an explicit version was given, so the line is
// decoded as content.
func (d *decoder) parseHeader(line string) (bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(strings.ToLower(line), headerPrefix) {
		if d.o.version != 0 {
			return false, nil
		}
		return false, fmt.Errorf("invalid .osu header: %q", line)
	}
	v, err := strconv.Atoi(strings.TrimSpace(line[len(headerPrefix):]))
	if err != nil {
		return true, fmt.Errorf("invalid .osu version in header: %w", err)
	}
	if d.o.version == 0 {
		d.setVersion(v)
	}
	return true, nil
}

func (d *decoder) shouldSkip(line string) bool {
	if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimLeft(line, " \t"), "//") {
		return true
	}
	// storyboard commands are kept verbatim with their event
	if d.sec == secEvents {
		return false
	}
	return line[0] == ' ' || line[0] == '_'
}

func stripComments(line string) string {
	if i := strings.Index(line, "//"); i > 0 {
		return line[:i]
	}
	return line
}

func (d *decoder) parseLine(line string) error {
	if d.shouldSkip(line) {
		return nil
	}
	if d.sec != secMetadata {
		line = stripComments(line)
	}
	line = strings.TrimRight(line, " \t")

	if strings.HasPrefix(line, "[") {
		return d.enterSection(line)
	}

	switch d.sec {
	case secGeneral:
		return d.parseGeneral(line)
	case secEditor:
		return d.parseEditor(line)
	case secMetadata:
		d.parseMetadata(line)
		return nil
	case secDifficulty:
		return d.parseDifficulty(line)
	case secEvents:
		return d.parseEvent(line)
	case secTimingPoints:
		return d.parseTimingPoint(line)
	case secColours:
		return d.parseColour(line)
	case secHitObjects:
		return d.parseHitObject(line)
	}
	return nil
}

func (d *decoder) enterSection(line string) error {
	if len(line) < 3 || !strings.HasSuffix(line, "]") {
		return errors.New("malformed section header")
	}
	name := line[1 : len(line)-1]
	sec, ok := sectionNames[strings.ToLower(name)]
	if !ok {
		d.log.Warn("skipping unknown section", "line", d.lineNo, "section", name)
		sec = secUnknown
	}
	d.sec = sec
	return nil
}

func splitKeyVal(line string) (key, val string) {
	i := strings.Index(line, ":")
	if i < 0 {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
}

// ---------- key/value sections ----------

func (d *decoder) parseGeneral(line string) error {
	k, v := splitKeyVal(line)
	g := &d.b.General
	var err error
	switch strings.ToLower(k) {
	case "audiofilename":
		g.AudioFilename = standardisePath(v)
	case "audioleadin":
		g.AudioLeadIn, err = parseInt(v)
	case "previewtime":
		var t int
		if t, err = parseInt(v); err == nil {
			if t != -1 {
				t += int(d.offset)
			}
			g.PreviewTime = t
		}
	case "sampleset":
		bank := strings.ToLower(v)
		if n, nerr := strconv.Atoi(v); nerr == nil {
			bank = sampleSetFromInt(n).Bank()
		}
		switch bank {
		case "none", "":
			bank = ""
		case beatmap.BankNormal, beatmap.BankSoft, beatmap.BankDrum:
		default:
			return fmt.Errorf("unknown sample set %q", v)
		}
		g.SampleSet = bank
		d.defaultSampleBank = bank
		if bank == "" {
			d.defaultSampleBank = beatmap.BankNormal
		}
	case "samplevolume":
		if g.SampleVolume, err = parseInt(v); err == nil {
			d.defaultSampleVolume = g.SampleVolume
		}
	case "stackleniency":
		g.StackLeniency, err = parseFloat(v, MAX_PARSE_VALUE)
	case "mode":
		var mode int
		if mode, err = parseInt(v); err == nil {
			if mode < beatmap.RulesetOsu || mode > beatmap.RulesetMania {
				return fmt.Errorf("unknown ruleset %d", mode)
			}
			d.b.RulesetID = mode
		}
	case "letterboxinbreaks":
		g.LetterboxInBreaks, err = parseBoolInt(v)
	case "specialstyle":
		g.SpecialStyle, err = parseBoolInt(v)
	case "widescreenstoryboard":
		g.WidescreenStoryboard, err = parseBoolInt(v)
	case "epilepsywarning":
		g.EpilepsyWarning, err = parseBoolInt(v)
	case "samplesmatchplaybackrate":
		g.SamplesMatchPlaybackRate, err = parseBoolInt(v)
	case "countdown":
		g.Countdown, err = parseInt(v)
	case "countdownoffset":
		g.CountdownOffset, err = parseInt(v)
	}
	return err
}

func (d *decoder) parseEditor(line string) error {
	k, v := splitKeyVal(line)
	e := &d.b.Editor
	var err error
	switch strings.ToLower(k) {
	case "bookmarks":
		e.Bookmarks = nil
		for _, p := range strings.Split(v, ",") {
			// stable wrote garbage bookmarks now and then; skip them
			if n, perr := strconv.Atoi(strings.TrimSpace(p)); perr == nil {
				e.Bookmarks = append(e.Bookmarks, n)
			}
		}
	case "distancespacing":
		var f float64
		if f, err = parseFloat(v, MAX_PARSE_VALUE); err == nil {
			e.DistanceSpacing = math.Max(0, f)
		}
	case "beatdivisor":
		var n int
		if n, err = parseInt(v); err == nil {
			e.BeatDivisor = clampInt(n, 1, 16)
		}
	case "gridsize":
		e.GridSize, err = parseInt(v)
	case "timelinezoom":
		var f float64
		if f, err = parseFloat(v, MAX_PARSE_VALUE); err == nil {
			e.TimelineZoom = math.Max(0, f)
		}
	}
	return err
}

func (d *decoder) parseMetadata(line string) {
	k, v := splitKeyVal(line)
	m := &d.b.Metadata
	switch strings.ToLower(k) {
	case "title":
		m.Title = v
	case "titleunicode":
		m.TitleUnicode = v
	case "artist":
		m.Artist = v
	case "artistunicode":
		m.ArtistUnicode = v
	case "creator":
		m.Creator = v
	case "version":
		m.Version = v
	case "source":
		m.Source = v
	case "tags":
		m.Tags = v
	case "beatmapid":
		// ids are informational; a malformed one is not worth failing on
		if n, err := strconv.Atoi(v); err == nil {
			m.BeatmapID = n
		}
	case "beatmapsetid":
		if n, err := strconv.Atoi(v); err == nil {
			m.BeatmapSetID = n
		}
	}
}

func (d *decoder) parseDifficulty(line string) error {
	k, v := splitKeyVal(line)
	diff := &d.b.Difficulty
	f, err := parseFloat(v, MAX_PARSE_VALUE)
	switch strings.ToLower(k) {
	case "hpdrainrate":
		diff.HPDrainRate = f
	case "circlesize":
		diff.CircleSize = f
	case "overalldifficulty":
		diff.OverallDifficulty = f
		if !d.seenAR {
			diff.ApproachRate = f
		}
	case "approachrate":
		diff.ApproachRate = f
		d.seenAR = true
	case "slidermultiplier":
		diff.SliderMultiplier = f
	case "slidertickrate":
		diff.SliderTickRate = f
	default:
		return nil
	}
	return err
}

func (d *decoder) parseColour(line string) error {
	k, v := splitKeyVal(line)
	if !strings.HasPrefix(k, "Combo") {
		d.log.Debug("ignoring colour", "key", k)
		return nil
	}
	c, err := skin.ParseColour(v)
	if err != nil {
		return err
	}
	d.skin.ComboColours = append(d.skin.ComboColours, c)
	return nil
}

// ---------- events ----------

func parseEventType(s string) eventType {
	s = strings.TrimSpace(s)
	if t, ok := eventNames[strings.ToLower(s)]; ok {
		return t
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < int(eventUnknown) {
		return eventType(n)
	}
	return eventUnknown
}

func (d *decoder) parseEvent(line string) error {
	split := strings.Split(line, ",")
	switch parseEventType(split[0]) {
	case eventBackground:
		if len(split) < 3 {
			return errors.New("background event without a file")
		}
		d.b.Metadata.BackgroundFile = cleanFilename(split[2])
		return nil

	case eventVideo:
		// a video event pointing at an image is how some maps declare their background
		if len(split) >= 3 {
			if file := cleanFilename(split[2]); !storyboard.IsVideo(file) {
				d.b.Metadata.BackgroundFile = file
				return nil
			}
		}

	case eventBreak:
		if len(split) < 3 {
			return errors.New("break event without an end time")
		}
		start, err := parseFloat(split[1], MAX_PARSE_VALUE)
		if err != nil {
			return err
		}
		end, err := parseFloat(split[2], MAX_PARSE_VALUE)
		if err != nil {
			return err
		}
		start += d.offset
		end = math.Max(start, end+d.offset)
		d.b.Breaks = append(d.b.Breaks, beatmap.BreakPeriod{Start: start, End: end})
		return nil

	case eventSprite:
		// older maps have no background event; the first sprite stands in
		if d.b.Metadata.BackgroundFile == "" && len(split) > 3 {
			d.b.Metadata.BackgroundFile = cleanFilename(split[3])
		}
	}
	d.b.UnhandledEventLines = append(d.b.UnhandledEventLines, line)
	return nil
}

// ---------- timing points ----------

func (d *decoder) parseTimingPoint(line string) error {
	split := strings.Split(line, ",")
	if len(split) < 2 {
		return errors.New("timing point needs at least a time and a beat length")
	}

	time, err := parseFloat(split[0], MAX_PARSE_VALUE)
	if err != nil {
		return err
	}
	time += d.offset

	// NaN beat length disables slider ticks on inherited lines
	beatLength, err := parseFloatAllowNaN(split[1], MAX_PARSE_VALUE)
	if err != nil {
		return err
	}
	speedMultiplier := 1.0
	if beatLength < 0 {
		speedMultiplier = 100 / -beatLength
	}

	meter := 4
	if len(split) >= 3 && !strings.HasPrefix(strings.TrimSpace(split[2]), "0") {
		if meter, err = parseInt(split[2]); err != nil {
			return err
		}
		if meter < 1 {
			return fmt.Errorf("invalid time signature %d", meter)
		}
	}

	bank := d.defaultSampleBank
	if len(split) >= 4 {
		n, err := parseInt(split[3])
		if err != nil {
			return err
		}
		bank = sampleSetFromInt(n).Bank()
	}
	if bank == "" {
		bank = beatmap.BankNormal
	}

	customSampleBank := 0
	if len(split) >= 5 {
		if customSampleBank, err = parseInt(split[4]); err != nil {
			return err
		}
	}

	volume := d.defaultSampleVolume
	if len(split) >= 6 {
		if volume, err = parseInt(split[5]); err != nil {
			return err
		}
	}

	timingChange := true
	if len(split) >= 7 {
		timingChange = strings.HasPrefix(strings.TrimSpace(split[6]), "1")
	}

	var effects EffectFlags
	if len(split) >= 8 {
		n, err := parseInt(split[7])
		if err != nil {
			return err
		}
		effects = EffectFlags(n)
	}

	if timingChange {
		if math.IsNaN(beatLength) {
			return errors.New("beat length cannot be NaN in a timing control point")
		}
		d.addControlPoint(time, controlpoints.NewTimingPoint(time, beatLength, meter, effects&EffectOmitFirstBarLine != 0), true)
	}

	d.addControlPoint(time, controlpoints.NewDifficultyPoint(time, speedMultiplier, !math.IsNaN(beatLength)), timingChange)

	scroll := 1.0
	if d.b.RulesetID == beatmap.RulesetTaiko || d.b.RulesetID == beatmap.RulesetMania {
		scroll = speedMultiplier
	}
	d.addControlPoint(time, controlpoints.NewEffectPoint(time, effects&EffectKiai != 0, scroll), timingChange)

	d.addControlPoint(time, controlpoints.SamplePoint{
		Time:             time,
		SampleBank:       bank,
		SampleVolume:     volume,
		CustomSampleBank: customSampleBank,
	}, timingChange)
	return nil
}

// addControlPoint buffers points of one timestamp. Points from inherited
// lines are appended and points from timing lines prepended, so that the
// flush, which walks the buffer backwards and keeps one point per kind,
// lets inherited lines override timing lines.
func (d *decoder) addControlPoint(time float64, p controlpoints.ControlPoint, timingChange bool) {
	if time != d.pendingTime {
		d.flushPendingPoints()
	}
	if timingChange {
		d.pending = append([]controlpoints.ControlPoint{p}, d.pending...)
	} else {
		d.pending = append(d.pending, p)
	}
	d.pendingTime = time
}

func (d *decoder) flushPendingPoints() {
	var seen [4]bool
	for i := len(d.pending) - 1; i >= 0; i-- {
		p := d.pending[i]
		if seen[p.Kind()] {
			continue
		}
		seen[p.Kind()] = true
		d.info.Add(p)
	}
	d.pending = d.pending[:0]
}

// ---------- post-processing ----------

func (d *decoder) finish() {
	applyDifficultyRestrictions(&d.b.Difficulty, d.b.RulesetID)
	beatmap.SortByStartTime(d.b.HitObjects)

	d.b.ControlPoints = d.info
	if d.o.migrate {
		d.b.HitObjects = beatmap.ApplyLegacyControlPoints(d.info, d.b.Difficulty, d.b.HitObjects)
	}
}

func applyDifficultyRestrictions(d *beatmap.Difficulty, mode int) {
	d.HPDrainRate = clampFloat(d.HPDrainRate, 0, 10)
	d.OverallDifficulty = clampFloat(d.OverallDifficulty, 0, 10)
	d.ApproachRate = clampFloat(d.ApproachRate, 0, 10)
	if mode == beatmap.RulesetMania {
		d.CircleSize = clampFloat(d.CircleSize, 1, MAX_MANIA_KEY_COUNT)
	} else {
		d.CircleSize = clampFloat(d.CircleSize, 0, 10)
	}
	d.SliderMultiplier = clampFloat(d.SliderMultiplier, 0.4, 3.6)
	d.SliderTickRate = clampFloat(d.SliderTickRate, 0.5, 8.0)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func standardisePath(p string) string {
	p = strings.Trim(p, "\"")
	return strings.ReplaceAll(p, "\\", "/")
}

func cleanFilename(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "\"")
	return strings.ReplaceAll(s, "\\", "/")
}
