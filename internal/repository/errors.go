package repository

import "errors"

// Repository errors
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate нарушение уникальности
	ErrDuplicate = errors.New("duplicate record")
)
