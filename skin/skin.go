// Package skin holds the part of a beatmap's skin configuration that lives in
// the .osu file: its combo colours.
package skin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// MaxComboColours is how many combo colours the legacy format can hold.
const MaxComboColours = 8

type Config struct {
	ComboColours []colorful.Color
}

// LegacyComboColours returns the combo colours a legacy file can hold.
// Colours past MaxComboColours are dropped.
func (c *Config) LegacyComboColours() []colorful.Color {
	if len(c.ComboColours) > MaxComboColours {
		return c.ComboColours[:MaxComboColours]
	}
	return c.ComboColours
}

// ParseColour parses "r,g,b" or "r,g,b,a" with byte components. Alpha is
// accepted and dropped.
func ParseColour(s string) (colorful.Color, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return colorful.Color{}, fmt.Errorf("colour %q: want 3 or 4 components", s)
	}
	var rgb [3]float64
	for i := range rgb {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return colorful.Color{}, fmt.Errorf("colour %q: %w", s, err)
		}
		if v < 0 || v > 255 {
			return colorful.Color{}, fmt.Errorf("colour %q: component %d out of range", s, v)
		}
		rgb[i] = float64(v) / 255
	}
	return colorful.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}

// FormatColour is the inverse of ParseColour.
func FormatColour(c colorful.Color) string {
	r, g, b := c.RGB255()
	return fmt.Sprintf("%d,%d,%d", r, g, b)
}
