package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/toolsascode/restorm/internal/logger"

	"gorm.io/gorm"
)

var (
	// ErrNotUpToDate is returned by Check when revisions are pending
	ErrNotUpToDate = errors.New("database is not up to date")
	// ErrSchemaDrift is returned by Check when models do not match the schema
	ErrSchemaDrift = errors.New("database schema does not match the models")
	// ErrNotApplied is returned when downgrading to a revision that is not applied
	ErrNotApplied = errors.New("revision is not applied")
	// ErrInvalidTarget is returned for malformed or out of range relative targets
	ErrInvalidTarget = errors.New("invalid migration target")
)

// Options configures a Migrator
type Options struct {
	Locker Locker
	// DryRun writes the SQL of each step to Out instead of executing it
	DryRun bool
	Out    io.Writer
	// Models are checked for missing tables and columns by Check
	Models []any
}

// Migrator applies and reverts revisions against a database. It is safe for
// concurrent use; Upgrade and Downgrade serialize through the Locker.
type Migrator struct {
	db     *gorm.DB
	graph  *Graph
	store  *Store
	locker Locker
	dryRun bool
	out    io.Writer
	models []any
}

// Result lists the revisions a run went through
type Result struct {
	Success  bool     `json:"success"`
	Applied  []string `json:"applied"`
	Reverted []string `json:"reverted"`
	Errors   []string `json:"errors"`
	Current  []string `json:"current"`
}

// New creates a Migrator for the revisions in fsys
func New(db *gorm.DB, fsys fs.FS, opts Options) (*Migrator, error) {
	revisions, err := LoadRevisions(fsys)
	if err != nil {
		return nil, err
	}
	graph, err := NewGraph(revisions)
	if err != nil {
		return nil, err
	}

	locker := opts.Locker
	if locker == nil {
		locker = NoopLocker{}
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	return &Migrator{
		db:     db,
		graph:  graph,
		store:  NewStore(db),
		locker: locker,
		dryRun: opts.DryRun,
		out:    out,
		models: opts.Models,
	}, nil
}

// DryRun returns a copy of m that writes the SQL of each step to out instead of executing it
func (m *Migrator) DryRun(out io.Writer) *Migrator {
	dry := *m
	dry.dryRun = true
	dry.out = out
	return &dry
}

// Graph returns the revision graph
func (m *Migrator) Graph() *Graph {
	return m.graph
}

// Store returns the state store
func (m *Migrator) Store() *Store {
	return m.store
}

// Heads returns the head revisions of the graph
func (m *Migrator) Heads() []string {
	return m.graph.Heads()
}

// Current returns the applied head revisions
func (m *Migrator) Current(ctx context.Context) ([]string, error) {
	return m.store.Current(ctx)
}

// HistoryEntry is a revision annotated with its state
type HistoryEntry struct {
	Revision  *Revision
	IsHead    bool
	IsCurrent bool
	IsApplied bool
}

// String formats the entry as "<parents> -> <id> (head) (current), <message>"
func (e HistoryEntry) String() string {
	parents := "<base>"
	if len(e.Revision.DownRevisions) > 0 {
		parents = strings.Join(e.Revision.DownRevisions, ", ")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s", parents, e.Revision.ID)
	if e.IsHead {
		b.WriteString(" (head)")
	}
	if e.IsCurrent {
		b.WriteString(" (current)")
	}
	if e.Revision.Message != "" {
		fmt.Fprintf(&b, ", %s", e.Revision.Message)
	}
	return b.String()
}

// History lists every revision from the heads down to the bases
func (m *Migrator) History(ctx context.Context) ([]HistoryEntry, error) {
	current, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	applied := m.graph.Ancestors(current...)
	isCurrent := toSet(current)
	isHead := toSet(m.graph.Heads())

	ordered := m.graph.TopologicalSort()
	entries := make([]HistoryEntry, 0, len(ordered))
	for i := len(ordered) - 1; i >= 0; i-- {
		rev := ordered[i]
		entries = append(entries, HistoryEntry{
			Revision:  rev,
			IsHead:    isHead[rev.ID],
			IsCurrent: isCurrent[rev.ID],
			IsApplied: applied[rev.ID],
		})
	}
	return entries, nil
}

// Pending returns the revisions not applied yet, parents first
func (m *Migrator) Pending(ctx context.Context) ([]*Revision, error) {
	current, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	applied := m.graph.Ancestors(current...)

	var pending []*Revision
	for _, rev := range m.graph.TopologicalSort() {
		if !applied[rev.ID] {
			pending = append(pending, rev)
		}
	}
	return pending, nil
}

// Upgrade applies revisions up to target: "head", "heads", "+N" or a revision
func (m *Migrator) Upgrade(ctx context.Context, target string) (*Result, error) {
	return m.locked(ctx, func(ctx context.Context) (*Result, error) {
		current, err := m.store.Current(ctx)
		if err != nil {
			return nil, err
		}
		applied := m.graph.Ancestors(current...)

		plan, err := m.upgradePlan(target, applied)
		if err != nil {
			return nil, err
		}

		result := &Result{Applied: []string{}, Reverted: []string{}, Errors: []string{}}
		for _, rev := range plan {
			applied[rev.ID] = true
			heads := m.graph.HeadsOf(applied)
			if err := m.step(ctx, rev, DirectionUp, heads); err != nil {
				result.Errors = append(result.Errors, err.Error())
				result.Current = m.currentOrNil(ctx)
				return result, err
			}
			result.Applied = append(result.Applied, rev.ID)
		}

		if len(plan) == 0 {
			logger.Info("Database is already up to date")
		}
		result.Success = true
		result.Current = m.currentOrNil(ctx)
		return result, nil
	})
}

func (m *Migrator) upgradePlan(target string, applied map[string]bool) ([]*Revision, error) {
	if target == "" {
		target = "head"
	}

	var wanted map[string]bool
	switch {
	case target == "head":
		heads := m.graph.Heads()
		if len(heads) > 1 {
			return nil, fmt.Errorf("%w: %s; use \"heads\" or a specific revision", ErrMultipleHeads, strings.Join(heads, ", "))
		}
		wanted = m.graph.Ancestors(heads...)
	case target == "heads":
		wanted = m.graph.Ancestors(m.graph.Heads()...)
	case strings.HasPrefix(target, "+"):
		n, err := strconv.Atoi(target[1:])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: relative upgrade %q", ErrInvalidTarget, target)
		}
		var plan []*Revision
		for _, rev := range m.graph.TopologicalSort() {
			if len(plan) == n {
				break
			}
			if !applied[rev.ID] {
				plan = append(plan, rev)
			}
		}
		if len(plan) < n {
			return nil, fmt.Errorf("%w: cannot upgrade %d steps, only %d pending", ErrInvalidTarget, n, len(plan))
		}
		return plan, nil
	default:
		rev, err := m.graph.Resolve(target)
		if err != nil {
			return nil, err
		}
		wanted = m.graph.Ancestors(rev.ID)
	}

	var plan []*Revision
	for _, rev := range m.graph.TopologicalSort() {
		if wanted[rev.ID] && !applied[rev.ID] {
			plan = append(plan, rev)
		}
	}
	return plan, nil
}

// Downgrade reverts revisions down to target: "-N", "base" or a revision
func (m *Migrator) Downgrade(ctx context.Context, target string) (*Result, error) {
	return m.locked(ctx, func(ctx context.Context) (*Result, error) {
		current, err := m.store.Current(ctx)
		if err != nil {
			return nil, err
		}
		applied := m.graph.Ancestors(current...)

		plan, err := m.downgradePlan(target, applied)
		if err != nil {
			return nil, err
		}

		result := &Result{Applied: []string{}, Reverted: []string{}, Errors: []string{}}
		for _, rev := range plan {
			delete(applied, rev.ID)
			heads := m.graph.HeadsOf(applied)
			if err := m.step(ctx, rev, DirectionDown, heads); err != nil {
				result.Errors = append(result.Errors, err.Error())
				result.Current = m.currentOrNil(ctx)
				return result, err
			}
			result.Reverted = append(result.Reverted, rev.ID)
		}

		result.Success = true
		result.Current = m.currentOrNil(ctx)
		return result, nil
	})
}

func (m *Migrator) downgradePlan(target string, applied map[string]bool) ([]*Revision, error) {
	if target == "" {
		target = "-1"
	}

	// reverse topological order of the applied set
	ordered := m.graph.TopologicalSort()
	var appliedDesc []*Revision
	for i := len(ordered) - 1; i >= 0; i-- {
		if applied[ordered[i].ID] {
			appliedDesc = append(appliedDesc, ordered[i])
		}
	}

	switch {
	case target == "base":
		return appliedDesc, nil
	case strings.HasPrefix(target, "-"):
		n, err := strconv.Atoi(target[1:])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: relative downgrade %q", ErrInvalidTarget, target)
		}
		if n > len(appliedDesc) {
			return nil, fmt.Errorf("%w: cannot downgrade %d steps, only %d applied", ErrInvalidTarget, n, len(appliedDesc))
		}
		return appliedDesc[:n], nil
	default:
		rev, err := m.graph.Resolve(target)
		if err != nil {
			return nil, err
		}
		if !applied[rev.ID] {
			return nil, fmt.Errorf("%w: %s", ErrNotApplied, rev.ID)
		}
		keep := m.graph.Ancestors(rev.ID)
		var plan []*Revision
		for _, r := range appliedDesc {
			if !keep[r.ID] {
				plan = append(plan, r)
			}
		}
		return plan, nil
	}
}

// step runs one revision in its own transaction together with the version table update
func (m *Migrator) step(ctx context.Context, rev *Revision, direction string, heads []string) error {
	script := rev.UpSQL
	if direction == DirectionDown {
		script = rev.DownSQL
	}

	if m.dryRun {
		from, to := strings.Join(rev.DownRevisions, ", "), rev.ID
		if direction == DirectionDown {
			from, to = to, from
		}
		fmt.Fprintf(m.out, "-- Running %s %s -> %s\n%s\n\n", direction, orBase(from), orBase(to), script)
		return nil
	}

	executedBy, method, execContext := GetExecutionContext(ctx)
	logger.Infof("Running %s migration %s (%s)", direction, rev.ID, rev.Message)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if strings.TrimSpace(script) != "" {
			if err := tx.Exec(script).Error; err != nil {
				return err
			}
		}
		if err := setHeads(tx, heads); err != nil {
			return err
		}
		return recordHistory(tx, &HistoryRecord{
			Revision:         rev.ID,
			Direction:        direction,
			Status:           StatusSuccess,
			ExecutedBy:       executedBy,
			ExecutionMethod:  method,
			ExecutionContext: execContext,
		})
	})
	if err != nil {
		logger.Errorf("Migration %s %s failed: %v", direction, rev.ID, err)
		if recErr := m.store.Record(ctx, &HistoryRecord{
			Revision:         rev.ID,
			Direction:        direction,
			Status:           StatusFailed,
			ErrorMessage:     err.Error(),
			ExecutedBy:       executedBy,
			ExecutionMethod:  method,
			ExecutionContext: execContext,
		}); recErr != nil {
			logger.Warnf("Failed to record failed migration %s: %v", rev.ID, recErr)
		}
		return fmt.Errorf("migration %s %s failed: %w", direction, rev.ID, err)
	}

	logger.Success("Migrated %s %s", direction, rev.ID)
	return nil
}

// locked runs fn while holding the migration lock. State tables are
// created under the lock and never in dry run.
func (m *Migrator) locked(ctx context.Context, run func(ctx context.Context) (*Result, error)) (*Result, error) {
	unlock, err := m.locker.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Warnf("%v", err)
		}
	}()

	if !m.dryRun {
		if err := m.store.Initialize(ctx); err != nil {
			return nil, err
		}
	}
	return run(ctx)
}

func (m *Migrator) currentOrNil(ctx context.Context) []string {
	current, err := m.store.Current(ctx)
	if err != nil {
		return nil
	}
	return current
}

// CheckResult describes how the database differs from the revisions and models
type CheckResult struct {
	Pending        []string `json:"pending"`
	MissingTables  []string `json:"missing_tables"`
	MissingColumns []string `json:"missing_columns"`
}

// Check reports pending revisions and registered models missing tables or columns
func (m *Migrator) Check(ctx context.Context) (*CheckResult, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{Pending: []string{}, MissingTables: []string{}, MissingColumns: []string{}}
	for _, rev := range pending {
		result.Pending = append(result.Pending, rev.ID)
	}

	migrator := m.db.WithContext(ctx).Migrator()
	for _, model := range m.models {
		stmt := &gorm.Statement{DB: m.db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table
		if !migrator.HasTable(model) {
			result.MissingTables = append(result.MissingTables, table)
			continue
		}
		for _, column := range stmt.Schema.DBNames {
			if !migrator.HasColumn(model, column) {
				result.MissingColumns = append(result.MissingColumns, table+"."+column)
			}
		}
	}

	switch {
	case len(result.Pending) > 0:
		return result, fmt.Errorf("%w: pending %s", ErrNotUpToDate, strings.Join(result.Pending, ", "))
	case len(result.MissingTables) > 0 || len(result.MissingColumns) > 0:
		return result, fmt.Errorf("%w: missing %s", ErrSchemaDrift, strings.Join(append(result.MissingTables, result.MissingColumns...), ", "))
	}
	return result, nil
}

func orBase(id string) string {
	if id == "" {
		return "<base>"
	}
	return id
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
