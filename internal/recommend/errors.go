package recommend

import "errors"

var (
	// ErrInvalidInput marks input shape errors: bad top_k, levels outside
	// the supported range, required columns absent.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig marks a penalty weight vector that is empty or
	// contains values outside [0, 1].
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrScoring marks a failure inside the scoring stage itself, as
	// opposed to bad inputs or configuration.
	ErrScoring = errors.New("scoring error")
)
