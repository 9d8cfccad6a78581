package models

import (
	"fmt"
	"strings"
)

// ValidationError indicates missing or malformed input, rejected before
// any write is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError indicates a referenced record id does not resolve
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Collection, e.ID)
}

// InsufficientStockError indicates an issue request exceeded the
// available quantity. No write is performed.
type InsufficientStockError struct {
	ItemName  string
	Requested float64
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of %s (requested: %.2f, available: %.2f)",
		e.ItemName, e.Requested, e.Available)
}

// InsufficientIngredientsError indicates a recipe deduction cannot be
// satisfied. Missing carries the names of the ingredients that fell
// short. No write is performed.
type InsufficientIngredientsError struct {
	Missing []string
}

func (e *InsufficientIngredientsError) Error() string {
	return fmt.Sprintf("insufficient ingredients: %s", strings.Join(e.Missing, ", "))
}

// PersistenceError indicates the underlying store call failed after
// validation had already passed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
