package dotosu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	errNaN      = errors.New("NaN is not allowed")
	errOverflow = errors.New("value out of range")
)

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if v > MAX_PARSE_VALUE || v < -MAX_PARSE_VALUE {
		return 0, fmt.Errorf("%d: %w", v, errOverflow)
	}
	return v, nil
}

func parseFloat(s string, limit float64) (float64, error) {
	v, err := parseFloatAllowNaN(s, limit)
	if err == nil && math.IsNaN(v) {
		return 0, errNaN
	}
	return v, err
}

func parseFloatAllowNaN(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) {
		return v, nil
	}
	if v > limit || v < -limit {
		return 0, fmt.Errorf("%v: %w", v, errOverflow)
	}
	return v, nil
}

func parseBoolInt(s string) (bool, error) {
	v, err := parseInt(s)
	return v == 1, err
}

// formatFloat writes the shortest text that parses back to v.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloat32(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

func formatBoolInt(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
