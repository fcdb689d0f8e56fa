// Package contentscan resolves the content globs of the build configuration
// to a sorted file list.
//
// The list tells the external CSS tool which sources to read for class names.
// Class extraction itself is not done here.
package contentscan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// Scanner walks BaseDir and matches relative slash paths against globs.
type Scanner struct {
	// BaseDir is the directory patterns are relative to.
	BaseDir string

	// Exclude lists directories (relative to BaseDir, slash separated) that
	// are never descended into. The output directory belongs here.
	Exclude []string
}

// NewScanner creates a Scanner rooted at baseDir.
func NewScanner(baseDir string, exclude ...string) *Scanner {
	return &Scanner{BaseDir: baseDir, Exclude: exclude}
}

// Scan returns every file under BaseDir matching at least one pattern.
//
// node_modules and directories whose name starts with "." are skipped.
// The result is sorted and free of duplicates regardless of filesystem
// ordering.
func (s *Scanner) Scan(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return []string{}, nil
	}

	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if err := ValidatePattern(p); err != nil {
			return nil, err
		}
		cleaned = append(cleaned, trimDotSlash(p))
	}

	excluded := make(map[string]struct{}, len(s.Exclude))
	for _, e := range s.Exclude {
		e = path.Clean(filepath.ToSlash(e))
		if e != "." && e != "" {
			excluded[e] = struct{}{}
		}
	}

	info, err := os.Stat(s.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("content scan base dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content scan base dir is not a directory: %s", s.BaseDir)
	}

	var matches []string
	err = filepath.WalkDir(s.BaseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.BaseDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			name := d.Name()
			if name == "node_modules" || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if _, ok := excluded[rel]; ok {
				return filepath.SkipDir
			}
			return nil
		}

		for _, pattern := range cleaned {
			ok, err := doublestar.Match(pattern, rel)
			if err != nil {
				return fmt.Errorf("content pattern %q: %w", pattern, err)
			}
			if ok {
				matches = append(matches, rel)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("content scan: %w", err)
	}

	sort.Strings(matches)
	return matches, nil
}

// ValidatePattern rejects patterns that cannot be matched: empty, absolute,
// unbalanced brackets or braces, or a dangling escape.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return errors.New("empty content pattern")
	}
	if path.IsAbs(filepath.ToSlash(pattern)) || filepath.IsAbs(pattern) {
		return fmt.Errorf("content pattern %q must be relative", pattern)
	}

	var brackets, braces int
	escaped := false
	for _, r := range pattern {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '[':
			if brackets == 0 {
				brackets++
			}
		case ']':
			if brackets > 0 {
				brackets--
			}
		case '{':
			if brackets == 0 {
				braces++
			}
		case '}':
			if brackets == 0 {
				if braces == 0 {
					return fmt.Errorf("content pattern %q: %w", pattern, doublestar.ErrBadPattern)
				}
				braces--
			}
		}
	}
	if escaped || brackets != 0 || braces != 0 {
		return fmt.Errorf("content pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	if _, err := doublestar.Match(trimDotSlash(pattern), ""); err != nil {
		return fmt.Errorf("content pattern %q: %w", pattern, err)
	}
	return nil
}

func trimDotSlash(p string) string {
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}
