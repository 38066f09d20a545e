// Package bump increments the semantic version kept in a Go source file and
// optionally commits, tags and pushes the change with git.
package bump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"

	"github.com/toolsascode/restorm/internal/logger"

	"github.com/Masterminds/semver/v3"
)

// DefaultFile holds the version constant
const DefaultFile = "internal/version/version.go"

// Part is the version component to increment
type Part string

const (
	Major Part = "major"
	Minor Part = "minor"
	Patch Part = "patch"
)

var (
	// ErrInvalidPart is returned for anything but major, minor or patch
	ErrInvalidPart = errors.New("bump type must be one of major, minor or patch")
	// ErrNoVersion is returned when the file holds no version constant
	ErrNoVersion = errors.New("no version found")
)

var versionPattern = regexp.MustCompile(`(Version\s*=\s*")([^"]*)(")`)

// ParsePart validates a bump type
func ParsePart(s string) (Part, error) {
	switch p := Part(s); p {
	case Major, Minor, Patch:
		return p, nil
	}
	return "", fmt.Errorf("%w, got %q", ErrInvalidPart, s)
}

// Next returns v with part incremented
func Next(v *semver.Version, part Part) (*semver.Version, error) {
	var next semver.Version
	switch part {
	case Major:
		next = v.IncMajor()
	case Minor:
		next = v.IncMinor()
	case Patch:
		next = v.IncPatch()
	default:
		return nil, fmt.Errorf("%w, got %q", ErrInvalidPart, part)
	}
	return &next, nil
}

// ReadVersion returns the version constant of the file at path
func ReadVersion(path string) (*semver.Version, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	match := versionPattern.FindSubmatch(content)
	if match == nil {
		return nil, fmt.Errorf("%w in %s", ErrNoVersion, path)
	}
	v, err := semver.StrictNewVersion(string(match[2]))
	if err != nil {
		return nil, fmt.Errorf("invalid version %q in %s: %w", match[2], path, err)
	}
	return v, nil
}

// WriteVersion replaces the version constant of the file at path
func WriteVersion(path string, v *semver.Version) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	replaced := false
	content = versionPattern.ReplaceAllFunc(content, func(m []byte) []byte {
		if replaced {
			return m
		}
		replaced = true
		return versionPattern.ReplaceAll(m, []byte("${1}"+v.String()+"${3}"))
	})
	if !replaced {
		return fmt.Errorf("%w in %s", ErrNoVersion, path)
	}

	if err := os.WriteFile(path, content, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Runner runs a git command
type Runner interface {
	Run(ctx context.Context, args ...string) error
}

// GitRunner runs git in Dir
type GitRunner struct {
	Dir string
	Out io.Writer
}

// Run implements Runner
func (r GitRunner) Run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Out
	cmd.Stderr = r.Out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	return nil
}

// Options configures a bump
type Options struct {
	File   string
	Part   Part
	Commit bool
	Tag    bool
	Push   bool
	Runner Runner
}

// Bump increments the version in opts.File and runs the requested git steps.
// It returns the old and the new version.
func Bump(ctx context.Context, opts Options) (*semver.Version, *semver.Version, error) {
	file := opts.File
	if file == "" {
		file = DefaultFile
	}

	current, err := ReadVersion(file)
	if err != nil {
		return nil, nil, err
	}
	next, err := Next(current, opts.Part)
	if err != nil {
		return nil, nil, err
	}
	if err := WriteVersion(file, next); err != nil {
		return nil, nil, err
	}
	logger.Infof("Bumped version %s -> %s", current, next)

	runner := opts.Runner
	if runner == nil {
		runner = GitRunner{Out: os.Stderr}
	}

	if opts.Commit {
		if err := runner.Run(ctx, "add", file); err != nil {
			return current, next, err
		}
		if err := runner.Run(ctx, "commit", "-m", fmt.Sprintf(":bookmark: Bump version to %s.", next)); err != nil {
			return current, next, err
		}
	}
	if opts.Tag {
		tag := "v" + next.String()
		if err := runner.Run(ctx, "tag", "-a", tag, "-m", tag); err != nil {
			return current, next, err
		}
	}
	if opts.Push {
		if err := runner.Run(ctx, "push"); err != nil {
			return current, next, err
		}
		if opts.Tag {
			if err := runner.Run(ctx, "push", "--tags"); err != nil {
				return current, next, err
			}
		}
	}

	return current, next, nil
}
