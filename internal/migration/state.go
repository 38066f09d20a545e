package migration

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	VersionTable = "migration_version"
	HistoryTable = "migration_history"

	DirectionUp   = "up"
	DirectionDown = "down"

	StatusSuccess = "success"
	StatusFailed  = "failed"

	// MaxRevisionLength is the width of the revision columns
	MaxRevisionLength = 32
)

// VersionRow is one currently applied head revision
type VersionRow struct {
	VersionNum string `gorm:"column:version_num;primaryKey;size:32"`
}

// TableName implements gorm's tabler
func (VersionRow) TableName() string {
	return VersionTable
}

// HistoryRecord is one executed migration step
type HistoryRecord struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Revision         string    `gorm:"size:32;not null;index" json:"revision"`
	Direction        string    `gorm:"size:8;not null" json:"direction"`
	Status           string    `gorm:"size:16;not null" json:"status"`
	ErrorMessage     string    `gorm:"type:text" json:"error_message,omitempty"`
	ExecutedBy       string    `gorm:"size:128" json:"executed_by"`
	ExecutionMethod  string    `gorm:"size:32" json:"execution_method"`
	ExecutionContext string    `gorm:"type:text" json:"execution_context,omitempty"`
	AppliedAt        time.Time `gorm:"not null;index" json:"applied_at"`
}

// TableName implements gorm's tabler
func (HistoryRecord) TableName() string {
	return HistoryTable
}

// Store tracks applied revisions in the database
type Store struct {
	db *gorm.DB
}

// NewStore creates a state store on db
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Initialize creates the state tables when missing
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&VersionRow{}, &HistoryRecord{}); err != nil {
		return fmt.Errorf("failed to create migration state tables: %w", err)
	}
	return nil
}

// Current returns the applied head revisions, none when the version table is missing
func (s *Store) Current(ctx context.Context) ([]string, error) {
	if !s.db.WithContext(ctx).Migrator().HasTable(&VersionRow{}) {
		return []string{}, nil
	}
	var rows []VersionRow
	if err := s.db.WithContext(ctx).Order("version_num").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", VersionTable, err)
	}
	heads := make([]string, 0, len(rows))
	for _, row := range rows {
		heads = append(heads, row.VersionNum)
	}
	return heads, nil
}

// setHeads replaces the applied heads inside tx
func setHeads(tx *gorm.DB, heads []string) error {
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&VersionRow{}).Error; err != nil {
		return fmt.Errorf("failed to clear %s: %w", VersionTable, err)
	}
	if len(heads) == 0 {
		return nil
	}
	rows := make([]VersionRow, 0, len(heads))
	for _, head := range heads {
		rows = append(rows, VersionRow{VersionNum: head})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to write %s: %w", VersionTable, err)
	}
	return nil
}

// Record stores a history record
func (s *Store) Record(ctx context.Context, record *HistoryRecord) error {
	return recordHistory(s.db.WithContext(ctx), record)
}

func recordHistory(tx *gorm.DB, record *HistoryRecord) error {
	if record.AppliedAt.IsZero() {
		record.AppliedAt = time.Now().UTC()
	}
	if err := tx.Create(record).Error; err != nil {
		return fmt.Errorf("failed to record migration history: %w", err)
	}
	return nil
}

// HistoryFilters narrows History results
type HistoryFilters struct {
	Revision string
	Status   string
	Limit    int
}

// History returns executed steps, newest first
func (s *Store) History(ctx context.Context, filters HistoryFilters) ([]HistoryRecord, error) {
	if !s.db.WithContext(ctx).Migrator().HasTable(&HistoryRecord{}) {
		return []HistoryRecord{}, nil
	}
	query := s.db.WithContext(ctx).Order("applied_at DESC, id DESC")
	if filters.Revision != "" {
		query = query.Where("revision = ?", filters.Revision)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	var records []HistoryRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", HistoryTable, err)
	}
	return records, nil
}
