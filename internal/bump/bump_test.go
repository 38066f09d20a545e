package bump

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	calls  []string
	failOn string
}

func (r *recordingRunner) Run(_ context.Context, args ...string) error {
	call := strings.Join(args, " ")
	r.calls = append(r.calls, call)
	if r.failOn != "" && strings.HasPrefix(call, r.failOn) {
		return errors.New("git failed")
	}
	return nil
}

func writeVersionFile(t *testing.T, version string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "version.go")
	content := "package version\n\n// Version is the current version\nconst Version = \"" + version + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNext(t *testing.T) {
	tests := []struct {
		version string
		part    Part
		want    string
	}{
		{"2.0.3", Minor, "2.1.0"},
		{"2.0.3", Major, "3.0.0"},
		{"2.0.3", Patch, "2.0.4"},
		{"0.9.9", Minor, "0.10.0"},
		{"1.0.0", Patch, "1.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.version+"+"+string(tt.part), func(t *testing.T) {
			next, err := Next(semver.MustParse(tt.version), tt.part)
			require.NoError(t, err)
			assert.Equal(t, tt.want, next.String())
		})
	}

	_, err := Next(semver.MustParse("1.0.0"), Part("build"))
	assert.ErrorIs(t, err, ErrInvalidPart)
}

func TestParsePart(t *testing.T) {
	for _, s := range []string{"major", "minor", "patch"} {
		p, err := ParsePart(s)
		require.NoError(t, err)
		assert.Equal(t, Part(s), p)
	}

	_, err := ParsePart("")
	assert.ErrorIs(t, err, ErrInvalidPart)
	_, err = ParsePart("Minor")
	assert.ErrorIs(t, err, ErrInvalidPart)
}

func TestBump(t *testing.T) {
	path := writeVersionFile(t, "2.0.3")
	runner := &recordingRunner{}

	old, next, err := Bump(context.Background(), Options{File: path, Part: Minor, Runner: runner})
	require.NoError(t, err)
	assert.Equal(t, "2.0.3", old.String())
	assert.Equal(t, "2.1.0", next.String())
	assert.Empty(t, runner.calls)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `const Version = "2.1.0"`)
	assert.Contains(t, string(content), "// Version is the current version")

	v, err := ReadVersion(path)
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", v.String())
}

func TestBump_Git(t *testing.T) {
	path := writeVersionFile(t, "1.4.9")
	runner := &recordingRunner{}

	_, next, err := Bump(context.Background(), Options{File: path, Part: Patch, Commit: true, Tag: true, Push: true, Runner: runner})
	require.NoError(t, err)
	assert.Equal(t, "1.4.10", next.String())
	assert.Equal(t, []string{
		"add " + path,
		"commit -m :bookmark: Bump version to 1.4.10.",
		"tag -a v1.4.10 -m v1.4.10",
		"push",
		"push --tags",
	}, runner.calls)
}

func TestBump_GitFailure(t *testing.T) {
	path := writeVersionFile(t, "1.0.0")
	runner := &recordingRunner{failOn: "commit"}

	_, _, err := Bump(context.Background(), Options{File: path, Part: Major, Commit: true, Tag: true, Runner: runner})
	require.Error(t, err)
	assert.Equal(t, []string{"add " + path, "commit -m :bookmark: Bump version to 2.0.0."}, runner.calls)
}

func TestBump_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.go")
	_, _, err := Bump(context.Background(), Options{File: missing, Part: Minor})
	assert.Error(t, err)

	noVersion := filepath.Join(t.TempDir(), "other.go")
	require.NoError(t, os.WriteFile(noVersion, []byte("package other\n"), 0o644))
	_, _, err = Bump(context.Background(), Options{File: noVersion, Part: Minor})
	assert.ErrorIs(t, err, ErrNoVersion)

	invalid := writeVersionFile(t, "not-a-version")
	_, _, err = Bump(context.Background(), Options{File: invalid, Part: Minor})
	assert.Error(t, err)

	valid := writeVersionFile(t, "1.0.0")
	_, _, err = Bump(context.Background(), Options{File: valid, Part: Part("huge")})
	assert.ErrorIs(t, err, ErrInvalidPart)
	v, err := ReadVersion(valid)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())
}
