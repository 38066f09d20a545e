// Package tablestat keeps per-table insert, delete and row counters.
//
// Unfiltered list endpoints read the total from here instead of running COUNT(*).
package tablestat

import (
	"context"
	"errors"

	"github.com/toolsascode/restorm/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TableName is the name of the counters table
const TableName = "table_stats"

// TableStat is a row of the counters table
type TableStat struct {
	models.Base
	Table       string `gorm:"column:table_name;size:64;not null;uniqueIndex" json:"table_name"`
	InsertCount int64  `gorm:"not null;default:0" json:"insert_count"`
	DeleteCount int64  `gorm:"not null;default:0" json:"delete_count"`
	RowCount    int64  `gorm:"not null;default:0" json:"row_count"`
}

// TableName implements gorm's tabler
func (TableStat) TableName() string {
	return TableName
}

// RecordInsert counts one inserted row of table inside tx
func RecordInsert(tx *gorm.DB, table string) error {
	return bump(tx, table, 1, 0)
}

// RecordDelete counts one deleted row of table inside tx
func RecordDelete(tx *gorm.DB, table string) error {
	return bump(tx, table, 0, 1)
}

func bump(tx *gorm.DB, table string, inserted, deleted int64) error {
	db := tx.Session(&gorm.Session{NewDB: true})
	stat := &TableStat{
		Table:       table,
		InsertCount: inserted,
		DeleteCount: deleted,
		RowCount:    inserted - deleted,
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "table_name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"insert_count": gorm.Expr(TableName+".insert_count + ?", inserted),
			"delete_count": gorm.Expr(TableName+".delete_count + ?", deleted),
			"row_count":    gorm.Expr(TableName+".row_count + ?", inserted-deleted),
			"updated_at":   db.NowFunc(),
		}),
	}).Create(stat).Error
}

// Get returns the counters of table
func Get(ctx context.Context, db *gorm.DB, table string) (*TableStat, error) {
	return models.GetByWhere[TableStat](ctx, db, models.Where{"table_name": table})
}

// GetRowCount returns the row counter of table, zero when it has no counters yet
func GetRowCount(ctx context.Context, db *gorm.DB, table string) (int64, error) {
	stat, err := Get(ctx, db, table)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return stat.RowCount, nil
}
