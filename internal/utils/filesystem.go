package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cerrors "github.com/PolarWolf314/x509crypt/internal/errors"
	"github.com/bmatcuk/doublestar/v4"
)

// ResolveFiles expands user-provided paths, directories and globs relative to
// baseDir. Literal file paths are always kept. Files found by walking a
// directory or expanding a glob are kept when match accepts them. The result
// is deduplicated and keeps the order of the patterns.
//
// Returns ErrFileNotFound for a literal path that does not exist and
// ErrNoFilesFound when nothing matched at all.
func ResolveFiles(patterns []string, baseDir string, match func(string) bool) ([]string, error) {
	if len(patterns) == 0 {
		return nil, cerrors.ErrNoFilesFound
	}
	if match == nil {
		match = func(string) bool { return true }
	}

	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		resolved, err := resolvePattern(pattern, baseDir, match)
		if err != nil {
			return nil, err
		}
		for _, f := range resolved {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	if len(files) == 0 {
		return nil, cerrors.ErrNoFilesFound
	}
	return files, nil
}

func resolvePattern(pattern, baseDir string, match func(string) bool) ([]string, error) {
	absPattern := pattern
	if !filepath.IsAbs(pattern) {
		absPattern = filepath.Join(baseDir, pattern)
	}

	info, err := os.Stat(absPattern)
	if err == nil && info.IsDir() {
		return findFilesInDir(absPattern, match)
	}
	if err == nil && info.Mode().IsRegular() {
		return []string{absPattern}, nil
	}

	if strings.ContainsAny(pattern, "*?[{") {
		return expandGlob(pattern, absPattern, match)
	}

	return nil, fmt.Errorf("%w: %s", cerrors.ErrFileNotFound, pattern)
}

func expandGlob(pattern, absPattern string, match func(string) bool) ([]string, error) {
	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	var filtered []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if match(m) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

func findFilesInDir(dir string, match func(string) bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories such as .git are never walked into.
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if match(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// FileExists reports whether path names an existing file or directory.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
