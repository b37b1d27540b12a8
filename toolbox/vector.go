package toolbox

import (
	"fmt"
	"math/bits"
)

// VectorOpCode selects one of the vector primitives.  The numeric values are
// part of the external interface.
type VectorOpCode int

const (
	OpAdd VectorOpCode = iota
	OpSub
	OpMul
	OpScale
	OpThreshold
	OpDot
	OpReduce
)

func (c VectorOpCode) String() string {
	switch c {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpScale:
		return "scale"
	case OpThreshold:
		return "threshold"
	case OpDot:
		return "dot"
	case OpReduce:
		return "reduce"
	default:
		return fmt.Sprintf("VectorOpCode(%d)", int(c))
	}
}

// VectorResult holds the output of VectorOp.  Vector is set by the
// element-wise operations; Scalar by OpDot (the 2*Width-bit accumulator) and
// OpReduce (the low Width bits of the sum).
type VectorResult struct {
	Vector *AQ32
	Scalar int64
}

// VectorOp dispatches on code.  b is used by add, sub, mul and dot; scalar by
// scale.  Unused operands are ignored and may be nil.
func (e *Engine) VectorOp(code VectorOpCode, a, b *AQ32, scalar int32) (VectorResult, error) {
	var (
		v   *AQ32
		s   int64
		err error
	)
	switch code {
	case OpAdd:
		v, err = e.Add(a, b)
	case OpSub:
		v, err = e.Sub(a, b)
	case OpMul:
		v, err = e.MulElementwise(a, b)
	case OpScale:
		v = e.Scale(a, scalar)
	case OpThreshold:
		v = e.ThresholdVector(a)
	case OpDot:
		s, err = e.Dot(a, b)
	case OpReduce:
		s = int64(e.Reduce(a))
	default:
		return VectorResult{}, fmt.Errorf("%w: code %d", ErrInvalidOperation, int(code))
	}
	if err != nil {
		return VectorResult{}, err
	}
	return VectorResult{Vector: v, Scalar: s}, nil
}

func (e *Engine) binaryOperands(op string, a, b *AQ32) error {
	if a == nil || b == nil {
		return fmt.Errorf("%w: %s needs two operands", ErrDimensionMismatch, op)
	}
	return checkSameLength(op, a, b)
}

// Add is element-wise wrapping addition.
func (e *Engine) Add(a, b *AQ32) (*AQ32, error) {
	if err := e.binaryOperands("add", a, b); err != nil {
		return nil, err
	}
	out := MakeAQ32(len(a.V))
	for i := range out.V {
		out.V[i] = e.Format.Add(a.V[i], b.V[i])
	}
	return out, nil
}

// Sub is a + (-b) element-wise, with two's-complement negation of b.
func (e *Engine) Sub(a, b *AQ32) (*AQ32, error) {
	if err := e.binaryOperands("sub", a, b); err != nil {
		return nil, err
	}
	out := MakeAQ32(len(a.V))
	for i := range out.V {
		out.V[i] = e.Format.Add(a.V[i], e.Format.Negate(b.V[i]))
	}
	return out, nil
}

// MulElementwise multiplies raw values without rescaling.  Each element keeps
// the low Width bits of its product.  Use Format.Mul for a scaled product.
func (e *Engine) MulElementwise(a, b *AQ32) (*AQ32, error) {
	if err := e.binaryOperands("mul", a, b); err != nil {
		return nil, err
	}
	out := MakeAQ32(len(a.V))
	for i := range out.V {
		out.V[i] = e.Format.Wrap(int64(a.V[i]) * int64(b.V[i]))
	}
	return out, nil
}

// Scale multiplies every raw element by a raw scalar, with the same unscaled
// semantics as MulElementwise.
func (e *Engine) Scale(a *AQ32, scalar int32) *AQ32 {
	out := MakeAQ32(len(a.V))
	for i := range out.V {
		out.V[i] = e.Format.Wrap(int64(a.V[i]) * int64(scalar))
	}
	return out
}

// ThresholdVector keeps elements strictly greater than the configured
// threshold and zeroes the rest.
func (e *Engine) ThresholdVector(a *AQ32) *AQ32 {
	out := MakeAQ32(len(a.V))
	for i, v := range a.V {
		if v > e.Threshold {
			out.V[i] = v
		}
	}
	return out
}

// Dot sums raw products into a 2*Width-bit accumulator, wrapping modulo
// 2^(2*Width).  No intermediate rounding or saturation is applied.
func (e *Engine) Dot(a, b *AQ32) (int64, error) {
	if err := e.binaryOperands("dot", a, b); err != nil {
		return 0, err
	}
	return wrapBits(dotWide(a.V, b.V), 2*e.Format.Width), nil
}

// ReduceWide is the exact sum of all elements.  Its accumulator is at least
// ReduceAccumulatorBits(len) wide, so it never overflows.
func (e *Engine) ReduceWide(a *AQ32) int64 {
	var acc int64
	for _, v := range a.V {
		acc += int64(v)
	}
	return acc
}

// Reduce returns the low Width bits of ReduceWide.  Callers that need
// overflow detection inspect ReduceWide instead.
func (e *Engine) Reduce(a *AQ32) int32 {
	return e.Format.Wrap(e.ReduceWide(a))
}

// ReduceAccumulatorBits is the accumulator width needed to sum n elements
// without overflow: Width + ceil(log2(n)) + 1.
func (f Format) ReduceAccumulatorBits(n int) int {
	if n <= 1 {
		return f.Width + 1
	}
	return f.Width + bits.Len(uint(n-1)) + 1
}
