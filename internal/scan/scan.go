// Package scan walks a source tree and runs the extractors over every
// recognized file.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar"

	"github.com/efebarandurmaz/modgraph/internal/depgraph"
	"github.com/efebarandurmaz/modgraph/internal/extract"
)

// DefaultExcludedDirs are never descended into.
var DefaultExcludedDirs = []string{
	".git", ".hg", ".svn", ".idea", ".vscode",
	"node_modules", "__pycache__", ".pytest_cache", ".mypy_cache",
	"venv", ".venv", "env", "vendor", "dist", "build", "target", ".terraform",
}

// DefaultMaxFileSize caps the bytes read from a single file.
const DefaultMaxFileSize = 2 << 20

// Options controls a walk.
type Options struct {
	// Languages restricts extraction; empty means every registered language.
	Languages []extract.Language
	// Exclude holds doublestar globs matched against slash-separated relative paths.
	Exclude []string
	// MaxFileSize skips larger files. Zero means DefaultMaxFileSize.
	MaxFileSize int64
	// Registry defaults to extract.Default().
	Registry *extract.Registry
	Logger   *slog.Logger
}

// Result is the outcome of a walk.
type Result struct {
	Files   []depgraph.FileAnalysis
	Skipped int // recognized files that failed to read or parse
}

// Walk scans root and returns one FileAnalysis per recognized source file,
// sorted by relative path. Files that fail to parse are logged and skipped.
func Walk(ctx context.Context, root string, opts Options) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", root)
	}

	for _, pattern := range opts.Exclude {
		if _, err := doublestar.Match(pattern, "x"); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	reg := opts.Registry
	if reg == nil {
		reg = extract.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	allowed := make(map[extract.Language]bool, len(opts.Languages))
	for _, l := range opts.Languages {
		allowed[l] = true
	}
	excludedDirs := make(map[string]bool, len(DefaultExcludedDirs))
	for _, d := range DefaultExcludedDirs {
		excludedDirs[d] = true
	}

	res := &Result{}
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			logger.Warn("walk error", "path", p, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if excludedDirs[d.Name()] || matchAny(opts.Exclude, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matchAny(opts.Exclude, rel) {
			return nil
		}

		lang, ok := extract.LanguageForPath(rel)
		if !ok || (len(allowed) > 0 && !allowed[lang]) {
			return nil
		}

		fi, err := d.Info()
		if err != nil || fi.Size() > maxSize {
			logger.Debug("skipping file", "path", rel, "error", err)
			res.Skipped++
			return nil
		}
		content, err := os.ReadFile(p)
		if err != nil {
			logger.Warn("read failed", "path", rel, "error", err)
			res.Skipped++
			return nil
		}

		abs, _ := filepath.Abs(p)
		fa, err := reg.AnalyzeFile(rel, abs, content)
		if err != nil {
			logger.Warn("extraction failed", "path", rel, "error", err)
			res.Skipped++
			return nil
		}
		res.Files = append(res.Files, fa)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(res.Files, func(i, j int) bool {
		return res.Files[i].RelativePath < res.Files[j].RelativePath
	})
	logger.Info("scan complete", "root", root, "files", len(res.Files), "skipped", res.Skipped)
	return res, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
