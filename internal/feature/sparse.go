// Package feature turns expense titles into numeric feature rows.
package feature

// SparseVector is a fixed-width row where only non-zero values are stored.
// Indices are strictly ascending.
type SparseVector struct {
	Indices []int
	Values  []float64
	Dim     int
}

// At returns the value stored at column i, or 0.
func (v SparseVector) At(i int) float64 {
	lo, hi := 0, len(v.Indices)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case v.Indices[mid] == i:
			return v.Values[mid]
		case v.Indices[mid] < i:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// Dense expands the vector into a slice of length Dim.
func (v SparseVector) Dense() []float64 {
	out := make([]float64, v.Dim)
	v.DenseInto(out)
	return out
}

// DenseInto writes the vector into dst, which must have length Dim.
func (v SparseVector) DenseInto(dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for k, idx := range v.Indices {
		dst[idx] = v.Values[k]
	}
}

// NNZ reports the number of stored values.
func (v SparseVector) NNZ() int {
	return len(v.Indices)
}
