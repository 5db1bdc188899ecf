// Package storyboard reads the storyboard elements of an [Events] section.
// Only element declarations are interpreted; command lines are attached to
// the element they follow without being parsed.
package storyboard

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
)

type LayerName string

const (
	LayerVideo      LayerName = "Video"
	LayerBackground LayerName = "Background"
	LayerFail       LayerName = "Fail"
	LayerPass       LayerName = "Pass"
	LayerForeground LayerName = "Foreground"
	LayerOverlay    LayerName = "Overlay"
)

// layer index order as written in numeric sprite lines
var numberedLayers = []LayerName{LayerBackground, LayerFail, LayerPass, LayerForeground, LayerOverlay}

type ElementKind uint8

const (
	ElementSprite ElementKind = iota
	ElementAnimation
	ElementVideo
	ElementSample
)

type Element struct {
	Kind     ElementKind
	Path     string
	Origin   string
	X, Y     float64
	Time     float64 // video offset or sample time
	Volume   int
	Frames   int
	Delay    float64
	Loop     string
	Commands []string
}

type Layer struct {
	Name     LayerName
	Elements []*Element
}

type Storyboard struct {
	layers map[LayerName]*Layer
}

func New() *Storyboard {
	sb := &Storyboard{layers: map[LayerName]*Layer{}}
	for _, name := range append([]LayerName{LayerVideo}, numberedLayers...) {
		sb.layers[name] = &Layer{Name: name}
	}
	return sb
}

// Layer returns the named layer, creating it when absent.
func (sb *Storyboard) Layer(name LayerName) *Layer {
	l, ok := sb.layers[name]
	if !ok {
		l = &Layer{Name: name}
		sb.layers[name] = l
	}
	return l
}

func (sb *Storyboard) ElementCount() int {
	n := 0
	for _, l := range sb.layers {
		n += len(l.Elements)
	}
	return n
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".flv": true, ".mpg": true,
	".mpeg": true, ".wmv": true, ".m4v": true, ".mkv": true, ".webm": true, ".ogv": true,
}

// IsVideo reports whether filename has a video extension.
func IsVideo(filename string) bool {
	return videoExtensions[strings.ToLower(path.Ext(filename))]
}

// Decode reads the [Events] section of r, which may be a whole .osu or .osb
// file or just event lines. Lines of unknown event types are logged and
// skipped.
func Decode(r io.Reader, logger *slog.Logger) (*Storyboard, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sb := New()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	inEvents := true
	var last *Element
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := strings.TrimRight(sc.Text(), " \t")
		if strings.HasPrefix(raw, "[") {
			inEvents = strings.EqualFold(raw, "[Events]")
			continue
		}
		if !inEvents || raw == "" || strings.HasPrefix(raw, "//") {
			continue
		}
		if raw[0] == ' ' || raw[0] == '_' {
			if last != nil {
				last.Commands = append(last.Commands, strings.TrimLeft(raw, " _"))
			}
			continue
		}

		el, layer, err := parseElement(raw)
		if err != nil {
			return nil, fmt.Errorf("storyboard line %d: %w", lineNo, err)
		}
		if el == nil {
			logger.Debug("skipping event", "line", lineNo, "text", raw)
			last = nil
			continue
		}
		sb.Layer(layer).Elements = append(sb.Layer(layer).Elements, el)
		last = el
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return sb, nil
}

func parseElement(line string) (*Element, LayerName, error) {
	split := strings.Split(line, ",")
	field := func(i int) string {
		if i < len(split) {
			return strings.TrimSpace(split[i])
		}
		return ""
	}
	num := func(i int) (float64, error) { return strconv.ParseFloat(field(i), 64) }

	switch strings.ToLower(field(0)) {
	case "1", "video":
		offset, err := num(1)
		if err != nil {
			return nil, "", err
		}
		file := cleanFilename(field(2))
		if !IsVideo(file) {
			// a background declared as a video event
			return nil, "", nil
		}
		return &Element{Kind: ElementVideo, Path: file, Time: offset}, LayerVideo, nil

	case "4", "sprite", "6", "animation":
		layer, err := parseLayer(field(1))
		if err != nil {
			return nil, "", err
		}
		x, err := num(4)
		if err != nil {
			return nil, "", err
		}
		y, err := num(5)
		if err != nil {
			return nil, "", err
		}
		el := &Element{Kind: ElementSprite, Origin: field(2), Path: cleanFilename(field(3)), X: x, Y: y}
		if k := strings.ToLower(field(0)); k == "6" || k == "animation" {
			el.Kind = ElementAnimation
			frames, err := strconv.Atoi(field(6))
			if err != nil {
				return nil, "", err
			}
			delay, err := num(7)
			if err != nil {
				return nil, "", err
			}
			el.Frames, el.Delay, el.Loop = frames, delay, field(8)
		}
		return el, layer, nil

	case "5", "sample":
		t, err := num(1)
		if err != nil {
			return nil, "", err
		}
		layer, err := parseLayer(field(2))
		if err != nil {
			return nil, "", err
		}
		el := &Element{Kind: ElementSample, Time: t, Path: cleanFilename(field(3)), Volume: 100}
		if field(4) != "" {
			v, err := strconv.Atoi(field(4))
			if err != nil {
				return nil, "", err
			}
			el.Volume = v
		}
		return el, layer, nil
	}
	return nil, "", nil
}

func parseLayer(s string) (LayerName, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= len(numberedLayers) {
			return "", fmt.Errorf("unknown layer %d", n)
		}
		return numberedLayers[n], nil
	}
	for _, l := range numberedLayers {
		if strings.EqualFold(string(l), s) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown layer %q", s)
}

func cleanFilename(s string) string {
	s = strings.Trim(s, "\"")
	return strings.ReplaceAll(s, "\\", "/")
}
