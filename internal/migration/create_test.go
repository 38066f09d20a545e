package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"Create tasks table", "create_tasks_table"},
		{"  add: index (name)!  ", "add_index_name"},
		{"!!!", "revision"},
		{"a very long message that goes well beyond the limit of forty characters", "a_very_long_message_that_goes_well_beyon"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.message))
		})
	}
}

func TestNewRevisionID(t *testing.T) {
	id := NewRevisionID()
	assert.Regexp(t, `^[0-9a-f]{12}$`, id)
	assert.NotEqual(t, id, NewRevisionID())
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	graph, err := NewGraph([]*Revision{rev("aaa")})
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	upPath, err := Create(dir, graph, CreateOptions{
		Message:  "Add orders",
		Revision: "bbb111",
		Now:      now,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bbb111_add_orders.up.sql"), upPath)

	up, err := os.ReadFile(upPath)
	require.NoError(t, err)
	down, err := os.ReadFile(filepath.Join(dir, "bbb111_add_orders.down.sql"))
	require.NoError(t, err)

	created, err := ParseRevision("bbb111_add_orders.up.sql", string(up), string(down))
	require.NoError(t, err)
	assert.Equal(t, "bbb111", created.ID)
	assert.Equal(t, []string{"aaa"}, created.DownRevisions)
	assert.Empty(t, created.BranchLabels)
	assert.Equal(t, "Add orders", created.Message)
	assert.Equal(t, now(), created.CreateDate)

	// the new script loads alongside the existing graph
	revs, err := LoadRevisions(os.DirFS(dir))
	require.NoError(t, err)
	require.Len(t, revs, 1)
}

func TestCreateErrors(t *testing.T) {
	graph, err := NewGraph([]*Revision{rev("aaa"), rev("bbb", "aaa"), rev("ccc", "aaa")})
	require.NoError(t, err)

	_, err = Create(t.TempDir(), graph, CreateOptions{Message: ""})
	assert.Error(t, err)

	_, err = Create(t.TempDir(), graph, CreateOptions{Message: "merge"})
	assert.ErrorIs(t, err, ErrMultipleHeads)

	_, err = Create(t.TempDir(), graph, CreateOptions{Message: "dup", Head: "bbb", Revision: "ccc"})
	assert.Error(t, err)

	dir := t.TempDir()
	_, err = Create(dir, graph, CreateOptions{Message: "long", Head: "bbb", Revision: strings.Repeat("a", MaxRevisionLength+1)})
	assert.ErrorContains(t, err, "longer than 32 characters")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = Create(t.TempDir(), graph, CreateOptions{Message: "widest", Head: "bbb", Revision: strings.Repeat("d", MaxRevisionLength)})
	assert.NoError(t, err)

	path, err := Create(t.TempDir(), graph, CreateOptions{Message: "on bbb", Head: "bbb", BranchLabel: "feature"})
	require.NoError(t, err)
	up, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- down_revision: 'bbb'")
	assert.Contains(t, string(up), "-- branch_labels: 'feature'")
}
