package migration

import (
	"bufio"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// Revision is a single schema change with its SQL in both directions
type Revision struct {
	ID            string
	DownRevisions []string // empty for a base, several for a merge point
	BranchLabels  []string
	CreateDate    time.Time
	Message       string
	UpSQL         string
	DownSQL       string
	File          string // up script file name
}

// RevisionList is a YAML value that may be null, a single string or a list
type RevisionList []string

// UnmarshalYAML accepts null, a scalar or a sequence
func (l *RevisionList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || value.Value == "" || strings.EqualFold(value.Value, "none") {
			*l = nil
			return nil
		}
		*l = RevisionList{value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = RevisionList(items)
		return nil
	default:
		return fmt.Errorf("revision list must be a string or a list, got %s", value.Tag)
	}
}

// header is the YAML block at the top of an up script, every line prefixed with "-- "
type header struct {
	Revision     string       `yaml:"revision"`
	DownRevision RevisionList `yaml:"down_revision"`
	BranchLabels RevisionList `yaml:"branch_labels"`
	CreateDate   string       `yaml:"create_date"`
	Message      string       `yaml:"message"`
}

var dateLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid create_date %q", value)
}

// splitHeader separates the leading comment block from the SQL body
func splitHeader(content string) (string, string) {
	var head strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	consumed := 0
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "--") {
			break
		}
		consumed += len(line) + 1
		body := strings.TrimPrefix(trimmed, "--")
		body = strings.TrimPrefix(body, " ")
		head.WriteString(body)
		head.WriteString("\n")
	}

	if consumed > len(content) {
		consumed = len(content)
	}
	return head.String(), strings.TrimSpace(content[consumed:])
}

func checkRevisionID(id string) error {
	if len(id) > MaxRevisionLength {
		return fmt.Errorf("revision id %q is longer than %d characters", id, MaxRevisionLength)
	}
	return nil
}

// ParseRevision builds a revision from the contents of its up and down scripts
func ParseRevision(file, up, down string) (*Revision, error) {
	rawHeader, upSQL := splitHeader(up)

	var h header
	if err := yaml.Unmarshal([]byte(rawHeader), &h); err != nil {
		return nil, fmt.Errorf("failed to parse header of %s: %w", file, err)
	}
	if h.Revision == "" {
		return nil, fmt.Errorf("missing revision in header of %s", file)
	}
	if err := checkRevisionID(h.Revision); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	created, err := parseDate(h.CreateDate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	_, downSQL := splitHeader(down)

	return &Revision{
		ID:            h.Revision,
		DownRevisions: []string(h.DownRevision),
		BranchLabels:  []string(h.BranchLabels),
		CreateDate:    created,
		Message:       h.Message,
		UpSQL:         upSQL,
		DownSQL:       downSQL,
		File:          file,
	}, nil
}

// LoadRevisions reads every "<revision>_<slug>.up.sql" script (and its down pair) from the root of fsys
func LoadRevisions(fsys fs.FS) ([]*Revision, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration scripts: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), upSuffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	revisions := make([]*Revision, 0, len(names))
	for _, name := range names {
		up, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		downName := strings.TrimSuffix(name, upSuffix) + downSuffix
		down, err := fs.ReadFile(fsys, downName)
		if err != nil {
			return nil, fmt.Errorf("missing down script %s: %w", downName, err)
		}

		rev, err := ParseRevision(name, string(up), string(down))
		if err != nil {
			return nil, err
		}

		if prefix := strings.SplitN(path.Base(name), "_", 2)[0]; prefix != rev.ID {
			return nil, fmt.Errorf("%s: file name prefix %q does not match revision %q", name, prefix, rev.ID)
		}

		revisions = append(revisions, rev)
	}

	return revisions, nil
}
