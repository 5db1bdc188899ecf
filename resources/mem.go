package resources

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
)

// MemStore serves files from memory, keyed by name.
type MemStore map[string][]byte

func (m MemStore) GetStream(name string) (io.ReadCloser, error) {
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return decompress(name, io.NopCloser(bytes.NewReader(data)))
}

func (m MemStore) List() ([]string, error) {
	return slices.Sorted(maps.Keys(m)), nil
}
