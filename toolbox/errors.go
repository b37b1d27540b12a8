package toolbox

import "errors"

var (
	// ErrDimensionMismatch is returned when operand lengths or shapes disagree.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidOperation is returned for an unmapped vector operation code.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidConfiguration is returned at construction time for a bad
	// format, table, or layer definition.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
