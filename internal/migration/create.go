package migration

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
)

const upTemplate = `-- revision: '{{.Revision}}'
-- down_revision: {{.DownRevision}}
-- branch_labels: {{.BranchLabels}}
-- create_date: '{{.CreateDate}}'
-- message: {{printf "%q" .Message}}

-- Write the upgrade SQL of this revision below.
`

const downTemplate = `-- revision: '{{.Revision}}'

-- Write the SQL reverting this revision below.
`

var (
	upTmpl   = template.Must(template.New("up").Parse(upTemplate))
	downTmpl = template.Must(template.New("down").Parse(downTemplate))

	slugPattern = regexp.MustCompile(`[^a-z0-9]+`)
)

// CreateOptions configures a new revision script
type CreateOptions struct {
	Message     string
	Head        string // parent revision, required when the graph has several heads
	BranchLabel string // optional branch label of the new revision
	Revision    string // optional explicit revision id
	Now         func() time.Time
}

// templateData holds the values rendered into the script templates
type templateData struct {
	Revision     string
	DownRevision string
	BranchLabels string
	CreateDate   string
	Message      string
}

// NewRevisionID returns a random 12 character hex id
func NewRevisionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Slug converts a message into a file name fragment
func Slug(message string) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(message), "_"), "_")
	if len(slug) > 40 {
		slug = strings.TrimRight(slug[:40], "_")
	}
	if slug == "" {
		slug = "revision"
	}
	return slug
}

// Create writes a new up/down script pair into dir and returns the up script path.
// The parent is the single graph head unless opts.Head is set.
func Create(dir string, graph *Graph, opts CreateOptions) (string, error) {
	if strings.TrimSpace(opts.Message) == "" {
		return "", fmt.Errorf("revision message is required")
	}

	var parents []string
	switch {
	case opts.Head != "" && opts.Head != "head":
		rev, err := graph.Resolve(opts.Head)
		if err != nil {
			return "", err
		}
		parents = []string{rev.ID}
	default:
		heads := graph.Heads()
		if len(heads) > 1 {
			return "", fmt.Errorf("%w: %s; pass --head to choose the parent", ErrMultipleHeads, strings.Join(heads, ", "))
		}
		parents = heads
	}

	revID := opts.Revision
	if revID == "" {
		revID = NewRevisionID()
	}
	if err := checkRevisionID(revID); err != nil {
		return "", err
	}
	if _, exists := graph.Get(revID); exists {
		return "", fmt.Errorf("duplicate revision %s", revID)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	data := templateData{
		Revision:     revID,
		DownRevision: yamlList(parents),
		BranchLabels: yamlList(nonEmpty(opts.BranchLabel)),
		CreateDate:   now().UTC().Format("2006-01-02 15:04:05.000000"),
		Message:      opts.Message,
	}

	var up, down bytes.Buffer
	if err := upTmpl.Execute(&up, data); err != nil {
		return "", fmt.Errorf("failed to render up script: %w", err)
	}
	if err := downTmpl.Execute(&down, data); err != nil {
		return "", fmt.Errorf("failed to render down script: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	base := revID + "_" + Slug(opts.Message)
	upPath := filepath.Join(dir, base+upSuffix)
	if err := os.WriteFile(upPath, up.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", upPath, err)
	}
	downPath := filepath.Join(dir, base+downSuffix)
	if err := os.WriteFile(downPath, down.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", downPath, err)
	}

	return upPath, nil
}

func yamlList(items []string) string {
	switch len(items) {
	case 0:
		return "null"
	case 1:
		return "'" + items[0] + "'"
	default:
		quoted := make([]string, len(items))
		for i, item := range items {
			quoted[i] = "'" + item + "'"
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	}
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
