package covmatrix

import "golang.org/x/exp/constraints"

// subInto stores a - b in dst, component-wise. All slices must have the same
// length.
func subInto[T constraints.Float](dst, a, b []T) {
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
}

// divInPlace divides every component of v by d.
func divInPlace[T constraints.Float](v []T, d T) {
	for i := range v {
		v[i] /= d
	}
}

// addInPlace stores v + w in v, component-wise.
func addInPlace[T constraints.Float](v, w []T) {
	for i := range v {
		v[i] += w[i]
	}
}
