package migration

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func rev(id string, parents ...string) *Revision {
	return &Revision{ID: id, DownRevisions: parents}
}

func ids(revs []*Revision) []string {
	out := make([]string, len(revs))
	for i, r := range revs {
		out[i] = r.ID
	}
	return out
}

func TestNewGraph_Errors(t *testing.T) {
	tests := []struct {
		name      string
		revisions []*Revision
		wantErr   string
	}{
		{
			name:      "duplicate revision",
			revisions: []*Revision{rev("a"), rev("a")},
			wantErr:   "duplicate revision",
		},
		{
			name:      "unknown parent",
			revisions: []*Revision{rev("a"), rev("b", "zzz")},
			wantErr:   "down revisions not found",
		},
		{
			name:      "simple cycle",
			revisions: []*Revision{rev("a", "b"), rev("b", "a")},
			wantErr:   "circular dependency",
		},
		{
			name:      "longer cycle",
			revisions: []*Revision{rev("a", "c"), rev("b", "a"), rev("c", "b"), rev("d")},
			wantErr:   "circular dependency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.revisions)
			if err == nil {
				t.Fatalf("NewGraph() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewGraph() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestGraph_TopologicalSort(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := rev("a")
	a.CreateDate = base
	c := rev("c", "a")
	c.CreateDate = base.Add(time.Minute)
	b := rev("b", "a")
	b.CreateDate = base.Add(2 * time.Minute)
	m := rev("m", "b", "c")
	m.CreateDate = base.Add(3 * time.Minute)

	g, err := NewGraph([]*Revision{m, b, c, a})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}

	got := strings.Join(ids(g.TopologicalSort()), ",")
	if got != "a,c,b,m" {
		t.Errorf("TopologicalSort() = %s, want a,c,b,m", got)
	}
}

func TestGraph_HeadsBasesAncestors(t *testing.T) {
	g, err := NewGraph([]*Revision{rev("a"), rev("b", "a"), rev("c", "a"), rev("d", "b")})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}

	if got := strings.Join(g.Heads(), ","); got != "c,d" {
		t.Errorf("Heads() = %s, want c,d", got)
	}
	if got := strings.Join(g.Bases(), ","); got != "a" {
		t.Errorf("Bases() = %s, want a", got)
	}

	anc := g.Ancestors("d")
	if len(anc) != 3 || !anc["a"] || !anc["b"] || !anc["d"] {
		t.Errorf("Ancestors(d) = %v, want a,b,d", anc)
	}

	heads := g.HeadsOf(map[string]bool{"a": true, "b": true, "c": true})
	if got := strings.Join(heads, ","); got != "b,c" {
		t.Errorf("HeadsOf() = %s, want b,c", got)
	}
}

func TestGraph_Resolve(t *testing.T) {
	labelled := rev("abc123", "abd999")
	labelled.BranchLabels = []string{"feature"}
	g, err := NewGraph([]*Revision{rev("abd999"), labelled})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}

	tests := []struct {
		ref     string
		want    string
		wantErr error
	}{
		{ref: "abc123", want: "abc123"},
		{ref: "abc", want: "abc123"},
		{ref: "feature", want: "abc123"},
		{ref: "ab", wantErr: ErrAmbiguousRevision},
		{ref: "zz", wantErr: ErrUnknownRevision},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := g.Resolve(tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%q) error = %v, want %v", tt.ref, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.ref, err)
			}
			if got.ID != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.ref, got.ID, tt.want)
			}
		})
	}
}

func TestGraph_TopologicalSortConcurrent(t *testing.T) {
	const size = 30
	revisions := make([]*Revision, 0, size)
	for i := 0; i < size; i++ {
		var parents []string
		if i > 0 {
			parents = []string{fmt.Sprintf("r%02d", i-1)}
		}
		revisions = append(revisions, rev(fmt.Sprintf("r%02d", i), parents...))
	}
	g, err := NewGraph(revisions)
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}

	var short atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if len(g.TopologicalSort()) != size {
					short.Add(1)
				}
				if _, err := g.DetectCycles(); err != nil {
					short.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if n := short.Load(); n != 0 {
		t.Errorf("concurrent sorts returned %d incomplete results", n)
	}
}
