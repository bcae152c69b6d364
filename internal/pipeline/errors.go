package pipeline

import "fmt"

// InvalidLimitError reports a Limit stage with n <= 0.
type InvalidLimitError struct {
	N int64
}

func (e *InvalidLimitError) Error() string {
	return fmt.Sprintf("invalid limit %d: must be positive", e.N)
}

// DuplicateAccumulatorError reports two accumulators with the same output
// name in one Group stage.
type DuplicateAccumulatorError struct {
	Name string
}

func (e *DuplicateAccumulatorError) Error() string {
	return fmt.Sprintf("accumulator %q defined twice", e.Name)
}

// InvalidStageError reports a malformed stage argument.
type InvalidStageError struct {
	Stage  string
	Reason string
}

func (e *InvalidStageError) Error() string {
	return fmt.Sprintf("invalid %s stage: %s", e.Stage, e.Reason)
}
