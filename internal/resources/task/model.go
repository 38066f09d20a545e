// Package task is the example resource of the service: a named task worth a number of points.
package task

import (
	"github.com/toolsascode/restorm/internal/models"
	"github.com/toolsascode/restorm/internal/resources/tablestat"

	"gorm.io/gorm"
)

// TableName of the tasks table
const TableName = "tasks"

// Resource is the name used in events
const Resource = "task"

// Task is a row of the tasks table
type Task struct {
	models.Base
	Name  string `gorm:"size:64;not null" json:"name"`
	Point int    `gorm:"not null" json:"point"`
}

// TableName implements gorm's tabler
func (Task) TableName() string {
	return TableName
}

// AfterCreate counts the new row in table_stats within the same transaction
func (t *Task) AfterCreate(tx *gorm.DB) error {
	return tablestat.RecordInsert(tx, TableName)
}

// AfterDelete counts the removed row in table_stats within the same transaction
func (t *Task) AfterDelete(tx *gorm.DB) error {
	return tablestat.RecordDelete(tx, TableName)
}
