package migration

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRevision(t *testing.T) {
	up := `-- revision: 'ccc'
-- down_revision: ['aaa', 'bbb']
-- branch_labels: release
-- create_date: '2024-02-03 04:05:06.000000'
-- message: "merge heads"

CREATE TABLE merged (id INTEGER);
`
	down := "-- revision: 'ccc'\n\nDROP TABLE merged;\n"

	r, err := ParseRevision("ccc_merge_heads.up.sql", up, down)
	require.NoError(t, err)

	assert.Equal(t, "ccc", r.ID)
	assert.Equal(t, []string{"aaa", "bbb"}, r.DownRevisions)
	assert.Equal(t, []string{"release"}, r.BranchLabels)
	assert.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), r.CreateDate)
	assert.Equal(t, "merge heads", r.Message)
	assert.Equal(t, "CREATE TABLE merged (id INTEGER);", r.UpSQL)
	assert.Equal(t, "DROP TABLE merged;", r.DownSQL)
}

func TestParseRevisionNullParent(t *testing.T) {
	r, err := ParseRevision("a.up.sql", "-- revision: a\n-- down_revision: null\nSELECT 1;", "")
	require.NoError(t, err)
	assert.Empty(t, r.DownRevisions)
	assert.Equal(t, "SELECT 1;", r.UpSQL)
}

func TestParseRevisionMissingID(t *testing.T) {
	_, err := ParseRevision("x.up.sql", "-- message: nothing\nSELECT 1;", "")
	assert.Error(t, err)
}

func TestParseRevisionLongID(t *testing.T) {
	id := strings.Repeat("f", MaxRevisionLength+1)
	_, err := ParseRevision(id+"_x.up.sql", "-- revision: "+id+"\nSELECT 1;", "")
	assert.ErrorContains(t, err, "longer than 32 characters")
}

func TestLoadRevisions(t *testing.T) {
	fsys := fstest.MapFS{
		"aaa_first.up.sql":    {Data: []byte("-- revision: aaa\nCREATE TABLE a (id INTEGER);")},
		"aaa_first.down.sql":  {Data: []byte("DROP TABLE a;")},
		"bbb_second.up.sql":   {Data: []byte("-- revision: bbb\n-- down_revision: aaa\nCREATE TABLE b (id INTEGER);")},
		"bbb_second.down.sql": {Data: []byte("DROP TABLE b;")},
		"README.md":           {Data: []byte("ignored")},
	}

	revs, err := LoadRevisions(fsys)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "aaa", revs[0].ID)
	assert.Equal(t, []string{"aaa"}, revs[1].DownRevisions)
	assert.Equal(t, "DROP TABLE b;", revs[1].DownSQL)
}

func TestLoadRevisionsErrors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{
			name: "missing down script",
			fsys: fstest.MapFS{"aaa_x.up.sql": {Data: []byte("-- revision: aaa\nSELECT 1;")}},
		},
		{
			name: "file name does not match revision",
			fsys: fstest.MapFS{
				"aaa_x.up.sql":   {Data: []byte("-- revision: bbb\nSELECT 1;")},
				"aaa_x.down.sql": {Data: []byte("")},
			},
		},
		{
			name: "invalid create date",
			fsys: fstest.MapFS{
				"aaa_x.up.sql":   {Data: []byte("-- revision: aaa\n-- create_date: yesterday\nSELECT 1;")},
				"aaa_x.down.sql": {Data: []byte("")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRevisions(tt.fsys)
			assert.Error(t, err)
		})
	}
}
