package dao

import (
	"errors"
	"fmt"

	"daogen/internal/planner"
)

var (
	// ErrNotFound is returned by FindOne when no row matches.
	ErrNotFound = errors.New("no matching row")
	// ErrEmptyCondition is returned by DeleteWhere without a condition.
	ErrEmptyCondition = errors.New("refusing to delete without a condition")
	// ErrWrongRowCount matches every CardinalityError.
	ErrWrongRowCount = errors.New("wrong number of rows affected")

	ErrMissingColumn   = planner.ErrMissingColumn
	ErrNothingToUpdate = planner.ErrNothingToUpdate
	ErrUnidentifiable  = planner.ErrUnidentifiable
)

// CardinalityError reports a mutation that affected a number of rows other
// than the one it targeted.
type CardinalityError struct {
	Table     string
	Operation string
	Expected  int64
	Actual    int64
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("%s %s: expected %d row(s) affected, got %d", e.Operation, e.Table, e.Expected, e.Actual)
}

// Is reports whether target is ErrWrongRowCount.
func (e *CardinalityError) Is(target error) bool {
	return target == ErrWrongRowCount
}
