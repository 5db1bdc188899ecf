package resources

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DirStore serves the files below a directory.
type DirStore struct {
	root string
	fsys fs.FS
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root, fsys: os.DirFS(root)}
}

func (s *DirStore) Root() string { return s.root }

func (s *DirStore) GetStream(name string) (io.ReadCloser, error) {
	f, err := s.fsys.Open(filepath.ToSlash(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, s.root)
	}
	if err != nil {
		return nil, err
	}
	return decompress(name, f)
}

func (s *DirStore) List() ([]string, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", s.root)
	}

	var names []string
	err = fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, p)
		}
		return nil
	})
	return names, err
}
