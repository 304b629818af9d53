package faceindex

import "errors"

// Face index errors.
var (
	// ErrEmptyVector is returned when a record or query carries no vector.
	ErrEmptyVector = errors.New("face vector must not be empty")

	// ErrDimensionMismatch is returned when a vector's length differs
	// from the dimension established by the first inserted record.
	ErrDimensionMismatch = errors.New("face vector dimension does not match index")

	// ErrIndexNotFound is returned when restoring from a missing file.
	ErrIndexNotFound = errors.New("face index file not found")
)
