package testrun

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Discover lists files under root whose name matches pattern, relative to dir. Hidden directories
// are skipped.
func Discover(dir string, root string, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid test pattern %q: %w", pattern, err)
	}

	base := filepath.Join(dir, root)

	var modules []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != base && (strings.HasPrefix(d.Name(), ".") || d.Name() == "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}

		if ok, _ := filepath.Match(pattern, d.Name()); !ok {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		modules = append(modules, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to discover tests under %s: %w", base, err)
	}

	sort.Strings(modules)
	return modules, nil
}
