package covmatrix

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense, square, row-major matrix of scalars of type T. The zero
// value is the empty matrix of dimension zero. Matrix values returned by
// [*CovarianceMatrix.Get] own their storage, so they are not affected by
// later updates to the accumulator.
type Matrix[T constraints.Float] struct {
	n    int
	data []T
}

// NewMatrix returns an n×n zero matrix. If n is not positive, the empty
// matrix is returned.
func NewMatrix[T constraints.Float](n int) Matrix[T] {
	if n <= 0 {
		return Matrix[T]{}
	}
	return Matrix[T]{
		n:    n,
		data: make([]T, n*n),
	}
}

// Dim returns the number of rows (and columns) of the matrix.
func (m Matrix[T]) Dim() int { return m.n }

// At returns the element at row i and column j. It panics if either index is
// out of range.
func (m Matrix[T]) At(i, j int) T {
	m.checkIndex(i, j)
	return m.data[i*m.n+j]
}

func (m Matrix[T]) checkIndex(i, j int) {
	if uint(i) >= uint(m.n) || uint(j) >= uint(m.n) {
		panic(fmt.Sprintf("covmatrix: index (%d, %d) out of range for"+
			" %d×%d matrix", i, j, m.n, m.n))
	}
}

// addAt adds v to the element at row i and column j. Bounds are the caller's
// responsibility.
func (m Matrix[T]) addAt(i, j int, v T) {
	m.data[i*m.n+j] += v
}

// Rows returns a copy of the matrix as a slice of rows. The empty matrix
// yields an empty, non-nil slice.
func (m Matrix[T]) Rows() [][]T {
	ret := make([][]T, m.n)
	for i := range ret {
		ret[i] = make([]T, m.n)
		copy(ret[i], m.data[i*m.n:(i+1)*m.n])
	}
	return ret
}

// Clone returns a deep copy of the matrix.
func (m Matrix[T]) Clone() Matrix[T] {
	if m.n == 0 {
		return Matrix[T]{}
	}
	data := make([]T, len(m.data))
	copy(data, m.data)
	return Matrix[T]{n: m.n, data: data}
}

// Equal reports whether both matrices have the same dimension and exactly the
// same elements.
func (m Matrix[T]) Equal(o Matrix[T]) bool {
	if m.n != o.n {
		return false
	}
	for i := range m.data {
		if m.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// SymDense converts the matrix into a gonum symmetric dense matrix, reading
// the upper triangle. It returns nil for the empty matrix, since gonum does
// not allow zero-sized matrices.
func (m Matrix[T]) SymDense() *mat.SymDense {
	if m.n == 0 {
		return nil
	}
	data := make([]float64, len(m.data))
	for i, v := range m.data {
		data[i] = float64(v)
	}
	return mat.NewSymDense(m.n, data)
}

// String formats the matrix using gonum's formatter.
func (m Matrix[T]) String() string {
	if m.n == 0 {
		return "[]"
	}
	return fmt.Sprintf("%v", mat.Formatted(m.SymDense(), mat.Squeeze()))
}

// MarshalJSON encodes the matrix as an array of rows. NaN and infinite
// elements, which can result from overflow, are encoded as the strings "NaN",
// "+Inf" and "-Inf".
func (m Matrix[T]) MarshalJSON() ([]byte, error) {
	if !slices.ContainsFunc(m.data, notFinite[T]) {
		return json.Marshal(m.Rows())
	}
	rows := make([][]any, m.n)
	for i := range rows {
		rows[i] = make([]any, m.n)
		for j := range rows[i] {
			rows[i][j] = jsonValue(m.data[i*m.n+j])
		}
	}
	return json.Marshal(rows)
}

func notFinite[T constraints.Float](v T) bool {
	f := float64(v)
	return math.IsNaN(f) || math.IsInf(f, 0)
}

func jsonValue[T constraints.Float](v T) any {
	switch f := float64(v); {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return v
}

// MarshalYAML encodes the matrix as a sequence of rows.
func (m Matrix[T]) MarshalYAML() (any, error) {
	return m.Rows(), nil
}
