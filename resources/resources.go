// Package resources opens the files of a beatmap set from a directory, an
// .osz archive or memory. Names ending in .zst or .lz4 are decompressed
// transparently.
package resources

import (
	"errors"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var ErrNotFound = errors.New("resource not found")

// Store is a read-only set of named files. Names use forward slashes.
type Store interface {
	GetStream(name string) (io.ReadCloser, error)
	List() ([]string, error)
}

const (
	zstdSuffix = ".zst"
	lz4Suffix  = ".lz4"
)

// LogicalName strips a compression suffix from name.
func LogicalName(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range []string{zstdSuffix, lz4Suffix} {
		if strings.HasSuffix(lower, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

// IsBeatmap reports whether name is a .osu file, compressed or not.
func IsBeatmap(name string) bool {
	return strings.EqualFold(path.Ext(LogicalName(name)), ".osu")
}

// Beatmaps lists the .osu files of s in name order.
func Beatmaps(s Store) ([]string, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names {
		if IsBeatmap(n) {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out, nil
}

// ReadAll reads the whole named resource.
func ReadAll(s Store, name string) ([]byte, error) {
	rc, err := s.GetStream(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

type decompressor struct {
	io.Reader
	closers []func() error
}

func (d *decompressor) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// decompress wraps rc according to the compression suffix of name.
func decompress(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, zstdSuffix):
		zr, err := zstd.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, err
		}
		return &decompressor{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			rc.Close,
		}}, nil
	case strings.HasSuffix(lower, lz4Suffix):
		return &decompressor{Reader: lz4.NewReader(rc), closers: []func() error{rc.Close}}, nil
	}
	return rc, nil
}
