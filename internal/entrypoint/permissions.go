// Package entrypoint prepares the container filesystem and dispatches the
// container command.
package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/logger"
)

const (
	// SharedDirMode is used for the application and data trees
	SharedDirMode  = os.ModeSetgid | 0o770
	SharedFileMode = fs.FileMode(0o660)

	// LogsDirMode keeps logs readable by other users
	LogsDirMode  = os.ModeSetgid | 0o775
	LogsFileMode = fs.FileMode(0o664)

	sudoersMode = fs.FileMode(0o440)
)

// Tree is a directory whose entries get the same modes
type Tree struct {
	Path     string
	DirMode  fs.FileMode
	FileMode fs.FileMode
}

// Layout is the set of trees to fix and their owner. UID and GID of -1 keep the current owner.
type Layout struct {
	UID   int
	GID   int
	Trees []Tree
}

// NewLayout builds the layout of the application, data and logs directories
func NewLayout(cfg *config.Config) Layout {
	layout := Layout{UID: cfg.Entrypoint.UID, GID: cfg.Entrypoint.GID}
	add := func(path string, dirMode, fileMode fs.FileMode) {
		if path == "" {
			return
		}
		layout.Trees = append(layout.Trees, Tree{Path: path, DirMode: dirMode, FileMode: fileMode})
	}
	add(cfg.App.Dir, SharedDirMode, SharedFileMode)
	add(cfg.App.DataDir, SharedDirMode, SharedFileMode)
	add(cfg.App.LogsDir, LogsDirMode, LogsFileMode)
	return layout
}

func (l Layout) chown() bool {
	if l.UID < 0 && l.GID < 0 {
		return false
	}
	// only root may give files away
	return os.Geteuid() == 0
}

// FixPermissions creates missing trees, then sets owner and mode bits on every entry.
// Symlinks are not followed.
func FixPermissions(ctx context.Context, layout Layout) error {
	chown := layout.chown()
	for _, tree := range layout.Trees {
		if err := os.MkdirAll(tree.Path, tree.DirMode.Perm()); err != nil {
			return fmt.Errorf("failed to create %s: %w", tree.Path, err)
		}

		err := filepath.WalkDir(tree.Path, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			if chown {
				if err := os.Lchown(path, layout.UID, layout.GID); err != nil {
					return fmt.Errorf("failed to change owner of %s: %w", path, err)
				}
			}

			switch {
			case d.Type()&fs.ModeSymlink != 0:
				return nil
			case d.IsDir():
				return chmod(path, tree.DirMode)
			case d.Type().IsRegular():
				return chmod(path, tree.FileMode)
			}
			return nil
		})
		if err != nil {
			return err
		}
		logger.Infof("Fixed permissions of %s", tree.Path)
	}
	return nil
}

func chmod(path string, mode fs.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("failed to change mode of %s: %w", path, err)
	}
	return nil
}

// SudoersLine is the rule appended for user
func SudoersLine(user string) string {
	return user + " ALL=(ALL) NOPASSWD: ALL"
}

// AppendSudoers adds the password-less sudo rule of user to the drop-in file at path once.
// An empty user is a no-op.
func AppendSudoers(path, user string) error {
	if user == "" {
		return nil
	}
	line := SudoersLine(user)

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read %s: %w", path, err)
	case slices.Contains(strings.Split(string(content), "\n"), line):
		return nil
	default:
		// the file is read-only once written
		if err := os.Chmod(path, 0o640); err != nil {
			return fmt.Errorf("failed to change mode of %s: %w", path, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	prefix := ""
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		prefix = "\n"
	}
	if _, err := f.WriteString(prefix + line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Infof("Added sudoers rule for %s", user)
	return chmod(path, sudoersMode)
}
