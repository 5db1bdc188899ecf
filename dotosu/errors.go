package dotosu

import (
	"errors"
	"fmt"
)

// ErrFormat is matched by every *FormatError.
var ErrFormat = errors.New("malformed .osu input")

// FormatError reports a line that could not be decoded.
type FormatError struct {
	Line    int
	Section string
	Text    string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("dotosu: %v", e.Err)
	}
	return fmt.Sprintf("dotosu: line %d [%s] %q: %v", e.Line, e.Section, e.Text, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }
