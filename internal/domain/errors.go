// internal/domain/errors.go
package domain

import "errors"

// Error taxonomy for the analytical pipeline. Per-product errors are isolated
// and reported per product; only CycleAborted is fatal to a whole cycle.
var (
	// ErrInsufficientHistory gates the cold-start path; not fatal.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrAdjustmentConflict marks overlapping calendar/region data that the
	// documented precedence could not resolve; the cycle proceeds best-effort.
	ErrAdjustmentConflict = errors.New("adjustment conflict")

	// ErrConstraintViolation suppresses a single product's recommendation.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrModelDegraded means rolling accuracy fell below the floor; the
	// forecast is still served with widened bounds and a warning.
	ErrModelDegraded = errors.New("model degraded")

	// ErrCycleAborted means nothing was published; the prior cycle's output
	// remains the system of record.
	ErrCycleAborted = errors.New("cycle aborted")
)

// IssueCode maps a pipeline error to the code carried in a ProductIssue.
func IssueCode(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, ErrAdjustmentConflict):
		return "adjustment_conflict"
	case errors.Is(err, ErrConstraintViolation):
		return "constraint_violation"
	case errors.Is(err, ErrModelDegraded):
		return "model_degraded"
	case errors.Is(err, ErrCycleAborted):
		return "cycle_aborted"
	default:
		return "internal"
	}
}
