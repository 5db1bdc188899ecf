package resources

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// ZipStore serves the files of an .osz archive.
type ZipStore struct {
	files  map[string]*zip.File
	names  []string
	closer io.Closer
}

// OpenZip opens the archive at p. The store must be closed.
func OpenZip(p string) (*ZipStore, error) {
	rc, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("error opening osz (zip) %s: %w", p, err)
	}
	s := newZipStore(&rc.Reader)
	s.closer = rc
	return s, nil
}

// NewZipStore reads an archive held in memory.
func NewZipStore(data []byte) (*ZipStore, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("error opening osz (zip): %w", err)
	}
	return newZipStore(r), nil
}

func newZipStore(r *zip.Reader) *ZipStore {
	s := &ZipStore{files: make(map[string]*zip.File, len(r.File))}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(strings.ReplaceAll(f.Name, "\\", "/"))
		// entries escaping the archive root are never served
		if name == ".." || strings.HasPrefix(name, "../") || strings.HasPrefix(name, "/") {
			continue
		}
		if _, dup := s.files[name]; dup {
			continue
		}
		s.files[name] = f
		s.names = append(s.names, name)
	}
	return s
}

func (s *ZipStore) GetStream(name string) (io.ReadCloser, error) {
	f, ok := s.files[path.Clean(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", name, err)
	}
	return decompress(name, rc)
}

func (s *ZipStore) List() ([]string, error) {
	return append([]string(nil), s.names...), nil
}

func (s *ZipStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
