// Package discover finds PHP test files and groups them by directory.
package discover

import (
	"cmp"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Ext is the extension of PHP test files.
const Ext = ".phpt"

// Group holds the tests found directly inside one directory. Dir and the
// test names are slash-separated and relative to the walked root; the root
// itself is the empty Dir.
type Group struct {
	Dir   string
	Tests []string
}

// Walk collects every test file under root. When include is non-empty a
// test must match one of its patterns; a test matching any skip pattern is
// dropped. Patterns use doublestar syntax against the relative path.
// Groups are ordered by depth, then component by component.
func Walk(root string, include, skip []string) ([]Group, error) {
	for _, p := range slices.Concat(include, skip) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
	}

	byDir := make(map[string][]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), Ext) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !Selected(rel, include, skip) {
			return nil
		}
		dir := path.Dir(rel)
		if dir == "." {
			dir = ""
		}
		byDir[dir] = append(byDir[dir], rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	groups := make([]Group, 0, len(byDir))
	for dir, tests := range byDir {
		groups = append(groups, Group{Dir: dir, Tests: tests})
	}
	slices.SortFunc(groups, func(a, b Group) int { return CompareDirs(a.Dir, b.Dir) })
	return groups, nil
}

// Selected reports whether a relative test path passes the filters.
func Selected(rel string, include, skip []string) bool {
	if len(include) > 0 && !matchAny(include, rel) {
		return false
	}
	return !matchAny(skip, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// CompareDirs orders shallower directories first and otherwise compares
// path components lexically.
func CompareDirs(a, b string) int {
	ap, bp := strings.Split(a, "/"), strings.Split(b, "/")
	if c := cmp.Compare(len(ap), len(bp)); c != 0 {
		return c
	}
	return slices.Compare(ap, bp)
}

// Count returns the number of tests across groups.
func Count(groups []Group) int {
	n := 0
	for _, g := range groups {
		n += len(g.Tests)
	}
	return n
}
