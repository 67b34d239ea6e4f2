// Package repository provides a small generic gorm store used by services
// that only need basic row access.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository exposes the row operations shared across domain services.
// First reports a missing row as (nil, nil) so callers can map it to their
// own sentinel.
type Repository[T any] interface {
	Insert(ctx context.Context, row *T) error
	Find(ctx context.Context, order string, conds ...any) ([]T, error)
	First(ctx context.Context, conds ...any) (*T, error)
}

type store[T any] struct {
	db *gorm.DB
}

// ProvideStore builds a Repository bound to the given connection.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) Insert(ctx context.Context, row *T) error {
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *store[T]) Find(ctx context.Context, order string, conds ...any) ([]T, error) {
	query := s.db.WithContext(ctx)
	if order != "" {
		query = query.Order(order)
	}
	var rows []T
	if err := query.Find(&rows, conds...).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *store[T]) First(ctx context.Context, conds ...any) (*T, error) {
	var row T
	err := s.db.WithContext(ctx).First(&row, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
