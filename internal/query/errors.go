package query

import (
	"errors"
	"fmt"

	"github.com/roach88/docq/internal/field"
)

// ErrUnknownProjectionMode is returned for a projection mode other than
// Include or Exclude.
var ErrUnknownProjectionMode = errors.New("unknown projection mode")

// ErrInvalidDirection is returned for a sort direction other than
// field.Ascending or field.Descending.
var ErrInvalidDirection = errors.New("invalid sort direction")

// InvalidOperatorError reports an operator outside the supported set.
type InvalidOperatorError struct {
	Operator Operator
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("unknown filter operator %q", string(e.Operator))
}

// ConflictingOperatorError reports a comparison that cannot be merged into
// the conditions already recorded for a field.
type ConflictingOperatorError struct {
	Field     field.Path
	Existing  Operator
	Requested Operator
}

func (e *ConflictingOperatorError) Error() string {
	if e.Existing == e.Requested {
		return fmt.Sprintf("field %q already has a %s condition", e.Field, e.Existing)
	}
	return fmt.Sprintf("field %q: %s cannot be combined with %s", e.Field, e.Requested, e.Existing)
}

// MixedProjectionError reports an attempt to mix include and exclude
// entries in one projection.
type MixedProjectionError struct {
	Current   ProjectionMode
	Requested ProjectionMode
}

func (e *MixedProjectionError) Error() string {
	return fmt.Sprintf("projection is already %s, cannot add %s fields", e.Current, e.Requested)
}

// DuplicateSortKeyError reports a field sorted twice in one query.
type DuplicateSortKeyError struct {
	Field field.Path
}

func (e *DuplicateSortKeyError) Error() string {
	return fmt.Sprintf("field %q already appears in sort", e.Field)
}

// InvalidPageError reports a negative skip or a non-positive limit.
type InvalidPageError struct {
	Skip  int64
	Limit int64
}

func (e *InvalidPageError) Error() string {
	switch {
	case e.Skip < 0:
		return fmt.Sprintf("invalid page: skip %d is negative", e.Skip)
	default:
		return fmt.Sprintf("invalid page: limit %d must be positive", e.Limit)
	}
}

// DuplicateAssignmentError reports a field set twice in one update.
type DuplicateAssignmentError struct {
	Field field.Path
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("field %q is already assigned", e.Field)
}

// EmptyUpdateError reports an update without assignments.
type EmptyUpdateError struct{}

func (e *EmptyUpdateError) Error() string {
	return "update has no assignments"
}
