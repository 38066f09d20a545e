// Package clean removes build, test and runtime artefacts below a project root.
package clean

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/toolsascode/restorm/internal/logger"
)

var (
	// BuildDirs are removed at the project root
	BuildDirs = []string{"bin", "dist", "tmp"}
	// BuildFiles are file name patterns removed anywhere below the root
	BuildFiles = []string{"coverage.*", "*.test", ".DS_Store"}
	// StateDirs are removed with All
	StateDirs = []string{"volumes/storage/logs", "volumes/storage/data"}

	// skipped while searching for BuildFiles
	skipDirs = map[string]bool{".git": true, "vendor": true, "node_modules": true}
)

// ErrUnsafeRoot is returned for the filesystem root
var ErrUnsafeRoot = errors.New("refusing to clean the filesystem root")

// Options configures a clean run
type Options struct {
	Root string
	// All also removes runtime state
	All bool
	// DryRun only lists what would be removed
	DryRun bool
}

// Clean removes the artefacts below opts.Root and returns their root relative paths
func Clean(ctx context.Context, opts Options) ([]string, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	if root == filepath.Dir(root) {
		return nil, ErrUnsafeRoot
	}

	targets, err := collect(ctx, root, opts.All)
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(targets))
	for _, rel := range targets {
		if !opts.DryRun {
			if err := os.RemoveAll(filepath.Join(root, rel)); err != nil {
				return removed, fmt.Errorf("failed to remove %s: %w", rel, err)
			}
			logger.Debugf("Removed %s", rel)
		}
		removed = append(removed, rel)
	}
	return removed, nil
}

func collect(ctx context.Context, root string, all bool) ([]string, error) {
	var targets []string
	seen := make(map[string]bool)
	add := func(rel string) {
		if !seen[rel] {
			seen[rel] = true
			targets = append(targets, rel)
		}
	}

	dirs := BuildDirs
	if all {
		dirs = append(append([]string{}, dirs...), StateDirs...)
	}
	for _, dir := range dirs {
		rel, ok := within(root, dir)
		if !ok {
			return nil, fmt.Errorf("path %s escapes %s", dir, root)
		}
		if _, err := os.Lstat(filepath.Join(root, rel)); err == nil {
			add(rel)
		}
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			if path != root && (skipDirs[d.Name()] || seen[rel]) {
				return fs.SkipDir
			}
			return nil
		}
		for _, pattern := range BuildFiles {
			if ok, _ := filepath.Match(pattern, d.Name()); ok {
				add(rel)
				break
			}
		}
		return nil
	})
	return targets, err
}

// within cleans p relative to root and reports whether it stays inside
func within(root, p string) (string, bool) {
	rel, err := filepath.Rel(root, filepath.Join(root, p))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
