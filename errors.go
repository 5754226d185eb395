package covmatrix

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is matched by errors returned when a sample does not
// have the dimension established by the first consumed sample.
var ErrDimensionMismatch = errors.New("sample dimension mismatch")

// DimensionMismatchError describes a rejected sample.
type DimensionMismatchError struct {
	Want int // dimension established by the first sample
	Got  int // length of the rejected sample
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%v: expected %d values, got %d", ErrDimensionMismatch,
		e.Want, e.Got)
}

// Is makes errors.Is(err, ErrDimensionMismatch) report true.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
