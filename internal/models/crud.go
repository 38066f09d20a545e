package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row matches
	ErrNotFound = errors.New("record not found")
	// ErrEmptyValue is returned when an update has nothing to set
	ErrEmptyValue = errors.New("empty value")
	// ErrNullConstraint is returned on a NOT NULL violation
	ErrNullConstraint = errors.New("null constraint violation")
	// ErrUniqueConstraint is returned on a unique or primary key violation
	ErrUniqueConstraint = errors.New("unique constraint violation")
	// ErrForeignKey is returned on a foreign key violation
	ErrForeignKey = errors.New("foreign key violation")
)

// postgres SQLSTATE codes
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// Where is a set of column = value conditions
type Where map[string]any

// Page describes a slice of an ordered result set
type Page struct {
	Offset int
	Limit  int
	IsDesc bool
}

// TranslateError maps driver errors to the package sentinel errors
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrUniqueConstraint, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrForeignKey, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgNotNullViolation:
			return fmt.Errorf("%w: %s", ErrNullConstraint, pgErr.ColumnName)
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrUniqueConstraint, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrForeignKey, pgErr.ConstraintName)
		}
	}

	// sqlite only reports constraint failures in the message
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return fmt.Errorf("%w: %v", ErrNullConstraint, err)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrUniqueConstraint, err)
	}

	return err
}

// Insert creates a new row from m
func Insert[T any](ctx context.Context, db *gorm.DB, m *T) error {
	return TranslateError(db.WithContext(ctx).Create(m).Error)
}

// GetByID returns the row with the given primary key
func GetByID[T any](ctx context.Context, db *gorm.DB, id string) (*T, error) {
	var m T
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &m, nil
}

// GetByWhere returns the first row matching where
func GetByWhere[T any](ctx context.Context, db *gorm.DB, where Where) (*T, error) {
	var m T
	if err := db.WithContext(ctx).Where(map[string]any(where)).Take(&m).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &m, nil
}

// SelectByWhere returns a page of rows matching where, ordered by creation time
func SelectByWhere[T any](ctx context.Context, db *gorm.DB, where Where, page Page) ([]T, error) {
	query := db.WithContext(ctx)
	if len(where) > 0 {
		query = query.Where(map[string]any(where))
	}

	order := "created_at ASC, id ASC"
	if page.IsDesc {
		order = "created_at DESC, id DESC"
	}
	query = query.Order(order).Offset(page.Offset)
	if page.Limit > 0 {
		query = query.Limit(page.Limit)
	}

	var rows []T
	if err := query.Find(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	return rows, nil
}

// CountByWhere counts rows matching where
func CountByWhere[T any](ctx context.Context, db *gorm.DB, where Where) (int64, error) {
	query := db.WithContext(ctx).Model(new(T))
	if len(where) > 0 {
		query = query.Where(map[string]any(where))
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, TranslateError(err)
	}
	return count, nil
}

// UpdateByID sets values on the row with the given id and returns the updated row
func UpdateByID[T any](ctx context.Context, db *gorm.DB, id string, values map[string]any) (*T, error) {
	if len(values) == 0 {
		return nil, ErrEmptyValue
	}

	var m T
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&m).Error; err != nil {
			return err
		}
		if err := tx.Model(&m).Updates(values).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Take(&m).Error
	})
	if err != nil {
		return nil, TranslateError(err)
	}
	return &m, nil
}

// DeleteByID removes the row with the given id, running the model delete hooks
func DeleteByID[T any](ctx context.Context, db *gorm.DB, id string) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m T
		if err := tx.Where("id = ?", id).Take(&m).Error; err != nil {
			return err
		}
		return tx.Delete(&m).Error
	})
	return TranslateError(err)
}
