package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// saveFailure writes the re-encoded output of a failed file and the reason
// next to each other in dir.
func saveFailure(dir, name string, output []byte, reason string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if len(output) > 0 {
		if err := os.WriteFile(filepath.Join(dir, base+".out"), output, 0o644); err != nil {
			return fmt.Errorf("saving output of %s: %w", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, base+".err"), []byte(reason+"\n"), 0o644); err != nil {
		return fmt.Errorf("saving failure of %s: %w", name, err)
	}
	return nil
}
