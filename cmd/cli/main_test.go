package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toolsascode/restorm/internal/version"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tableStatsRevision = "4f1c2a9e7b10"
	tasksRevision      = "9b3d5e7a2c41"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// setupEnv points the configuration at a local sqlite database
func setupEnv(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "restorm.db")
	t.Setenv("ENV", "local")
	t.Setenv("DEBUG", "false")
	t.Setenv("RESTORM_CONFIG_FILE", "")
	t.Setenv("RESTORM_DB_DIALECT", "sqlite")
	t.Setenv("RESTORM_DB_DSN_URL", dsn)
	t.Setenv("RESTORM_DB_READ_DSN_URL", "")
	t.Setenv("RESTORM_MIGRATION_DIR", "")
	t.Setenv("RESTORM_MIGRATION_LOCK", "none")
	t.Setenv("RESTORM_LOGGER_LEVEL", "error")
	return dsn
}

func TestExitCodes(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "version", args: []string{"version"}, code: 0},
		{name: "unknown command", args: []string{"deploy"}, code: ExitUsage},
		{name: "unknown flag", args: []string{"clean", "--force"}, code: ExitUsage},
		{name: "migrate without command", args: []string{"migrate"}, code: ExitUsage},
		{name: "unknown migrate command", args: []string{"migrate", "stamp"}, code: ExitUsage},
		{name: "create without message", args: []string{"migrate", "create"}, code: ExitUsage},
		{name: "bump without type", args: []string{"bump-version"}, code: ExitUsage},
		{name: "bump with invalid type", args: []string{"bump-version", "-b", "huge"}, code: ExitUsage},
		{name: "entrypoint without command", args: []string{"entrypoint"}, code: ExitUsage},
		{name: "entrypoint unknown command", args: []string{"entrypoint", "serve"}, code: ExitUsage},
		{name: "bump missing file", args: []string{"bump-version", "-b", "patch", "--file", filepath.Join(t.TempDir(), "missing.go")}, code: ExitOperational},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, tt.code, code, stderr)
			if tt.code != 0 {
				assert.Contains(t, stderr, "Error:")
			}
		})
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "restorm version "+version.Version+"\n", stdout)
}

func TestEntrypointUsage(t *testing.T) {
	setupEnv(t)

	code, _, stderr := runCLI(t, "entrypoint", "serve")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "Usage: restorm entrypoint")
}

func TestInvalidConfigIsOperational(t *testing.T) {
	setupEnv(t)
	t.Setenv("ENV", "qa")

	code, _, stderr := runCLI(t, "migrate", "heads")
	assert.Equal(t, ExitOperational, code)
	assert.Contains(t, stderr, "invalid ENV")
}

func TestEntrypointUsageBeforeConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("ENV", "qa")

	tests := []struct {
		name string
		args []string
	}{
		{name: "misspelled", args: []string{"entrypoint", "strat"}},
		{name: "start with arguments", args: []string{"entrypoint", "start", "now"}},
		{name: "missing", args: []string{"entrypoint"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, ExitUsage, code)
			assert.Contains(t, stderr, "Usage: restorm entrypoint")
			assert.NotContains(t, stderr, "invalid ENV")
		})
	}
}

func TestBumpVersion(t *testing.T) {
	file := filepath.Join(t.TempDir(), "version.go")
	require.NoError(t, os.WriteFile(file, []byte("package version\n\nconst Version = \"2.0.3\"\n"), 0o644))

	code, stdout, stderr := runCLI(t, "bump-version", "-b=minor", "--file", file)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Bumped version 2.0.3 -> 2.1.0\n", stdout)

	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), `const Version = "2.1.0"`)
}

func TestClean(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bin"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "volumes", "storage", "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "coverage.out"), nil, 0o644))

	code, stdout, stderr := runCLI(t, "clean", "--root", root, "--dry-run")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Would remove bin")
	assert.DirExists(t, filepath.Join(root, "bin"))

	code, stdout, stderr = runCLI(t, "clean", "--root", root, "-a")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Removed coverage.out")
	assert.NoDirExists(t, filepath.Join(root, "bin"))
	assert.NoDirExists(t, filepath.Join(root, "volumes", "storage", "logs"))

	code, stdout, _ = runCLI(t, "clean", "--root", root)
	require.Equal(t, 0, code)
	assert.Equal(t, "Nothing to clean\n", stdout)
}

func TestMigrateFlow(t *testing.T) {
	setupEnv(t)

	code, stdout, stderr := runCLI(t, "migrate", "heads")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, tasksRevision+" (head)\n", stdout)

	// dry run leaves the database untouched
	code, stdout, stderr = runCLI(t, "migrate", "upgrade", "--sql")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "CREATE TABLE table_stats")

	code, _, stderr = runCLI(t, "migrate", "check")
	assert.Equal(t, ExitOperational, code)
	assert.Contains(t, stderr, "not up to date")

	code, stdout, stderr = runCLI(t, "migrate", "upgrade")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Applied "+tableStatsRevision)
	assert.Contains(t, stdout, "Applied "+tasksRevision)

	code, stdout, stderr = runCLI(t, "migrate", "current")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, tasksRevision+" (head)\n", stdout)

	code, stdout, stderr = runCLI(t, "migrate", "check")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "No new upgrade operations detected.")

	code, stdout, stderr = runCLI(t, "migrate", "history")
	require.Equal(t, 0, code, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], tasksRevision+" (head) (current)")
	assert.Contains(t, lines[1], "<base> -> "+tableStatsRevision)

	code, stdout, stderr = runCLI(t, "migrate", "downgrade", "-1")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Reverted "+tasksRevision)
	assert.Contains(t, stdout, "Current: "+tableStatsRevision)

	code, stdout, stderr = runCLI(t, "migrate", "downgrade", "base")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Current: <base>")

	code, _, stderr = runCLI(t, "migrate", "upgrade", "+5")
	assert.Equal(t, ExitUsage, code, stderr)
}

func TestMigrateCreate(t *testing.T) {
	setupEnv(t)
	dir := filepath.Join(t.TempDir(), "versions")
	t.Setenv("RESTORM_MIGRATION_DIR", dir)

	code, stdout, stderr := runCLI(t, "migrate", "create", "--rev-id", "aaaaaaaaaaaa", "add", "users")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "aaaaaaaaaaaa_add_users.up.sql")

	code, stdout, stderr = runCLI(t, "migrate", "create", "--rev-id", "bbbbbbbbbbbb", "add orders")
	require.Equal(t, 0, code, stderr)

	up, err := os.ReadFile(filepath.Join(dir, "bbbbbbbbbbbb_add_orders.up.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(up), "aaaaaaaaaaaa")

	code, stdout, stderr = runCLI(t, "migrate", "heads")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "bbbbbbbbbbbb (head)\n", stdout)
}
