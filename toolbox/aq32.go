package toolbox

import (
	"fmt"
	"slices"
)

// AQ32 is a dense row-major tensor of raw fixed-point values.  Vectors have
// shape {n}; weight matrices have shape {OutputSize, InputSize}.
//
// Operations in this package never mutate their AQ32 arguments; every result
// is freshly allocated.
type AQ32 struct {
	V     []int32
	Shape []int
}

func MakeAQ32(shape ...int) *AQ32 {
	for _, s := range shape {
		if s < 0 {
			panic(fmt.Sprintf("invalid shape: %v", shape))
		}
	}
	size := 1
	for _, s := range shape {
		size *= s
	}

	return &AQ32{
		V:     make([]int32, size),
		Shape: slices.Clone(shape),
	}
}

// VectorOf wraps raw values in a 1-D tensor.  The slice is copied.
func VectorOf(raw ...int32) *AQ32 {
	return &AQ32{
		V:     slices.Clone(raw),
		Shape: []int{len(raw)},
	}
}

func AQ32Copy(in *AQ32) *AQ32 {
	return &AQ32{
		V:     slices.Clone(in.V),
		Shape: slices.Clone(in.Shape),
	}
}

// AQ32Reshape reshapes the input tensor.  The overall number of elements must
// be the same.  The returned tensor shares storage with the input tensor (no
// data is copied).
func AQ32Reshape(a *AQ32, shape ...int) *AQ32 {
	newSize := 1
	for _, s := range shape {
		if s < 0 {
			panic(fmt.Sprintf("invalid shape: %v", shape))
		}
		newSize *= s
	}

	if newSize != len(a.V) {
		panic("invalid reshape")
	}

	return &AQ32{
		V:     a.V,
		Shape: slices.Clone(shape),
	}
}

// Len is the number of elements.
func (a *AQ32) Len() int {
	return len(a.V)
}

// Row returns row i of a 2-D tensor as a vector sharing storage.
func (a *AQ32) Row(i int) *AQ32 {
	if len(a.Shape) != 2 {
		panic("Row() invalid for len(shape) != 2")
	}
	n := a.Shape[1]
	return &AQ32{
		V:     a.V[i*n : i*n+n : i*n+n],
		Shape: []int{n},
	}
}

func (a *AQ32) At1(idx int) int32 {
	return a.V[idx]
}

func (a *AQ32) At2(idx0, idx1 int) int32 {
	if len(a.Shape) != 2 {
		panic("At2() invalid for len(shape) != 2")
	}
	return a.V[idx0*a.Shape[1]+idx1]
}

func (a *AQ32) Set1(idx int, v int32) {
	a.V[idx] = v
}

func (a *AQ32) Set2(idx0, idx1 int, v int32) {
	if len(a.Shape) != 2 {
		panic("Set2() invalid for len(shape) != 2")
	}
	a.V[idx0*a.Shape[1]+idx1] = v
}

// QuantizeFloat32 converts float values into a tensor of the given shape in
// format f.
func QuantizeFloat32(f Format, v []float32, shape ...int) *AQ32 {
	if len(shape) == 0 {
		shape = []int{len(v)}
	}
	out := MakeAQ32(shape...)
	if len(out.V) != len(v) {
		panic(fmt.Sprintf("shape %v does not hold %d values", shape, len(v)))
	}
	for i, x := range v {
		out.V[i] = f.FromFloat32(x)
	}
	return out
}

func DequantizeFloat32(f Format, a *AQ32) []float32 {
	out := make([]float32, len(a.V))
	for i, raw := range a.V {
		out[i] = f.ToFloat32(raw)
	}
	return out
}

func checkSameLength(op string, a, b *AQ32) error {
	if len(a.V) != len(b.V) {
		return fmt.Errorf("%w: %s: len %d != len %d", ErrDimensionMismatch, op, len(a.V), len(b.V))
	}
	return nil
}
