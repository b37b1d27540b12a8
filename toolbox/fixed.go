package toolbox

import (
	"fmt"

	"github.com/chewxy/math32"
)

// MaxWidth is the widest value format supported.  Raw values are stored in
// int32, and wide accumulators (2*Width bits) in int64.
const MaxWidth = 32

// Format describes a signed fixed-point encoding: a Width-bit two's-complement
// integer interpreted as raw / 2^FracBits.
type Format struct {
	Width    int
	FracBits int
}

func NewFormat(width, fracBits int) (Format, error) {
	if width < 2 || width > MaxWidth {
		return Format{}, fmt.Errorf("%w: width %d not in [2, %d]", ErrInvalidConfiguration, width, MaxWidth)
	}
	if fracBits < 0 || fracBits >= width {
		return Format{}, fmt.Errorf("%w: frac bits %d not in [0, %d)", ErrInvalidConfiguration, fracBits, width)
	}
	return Format{Width: width, FracBits: fracBits}, nil
}

func (f Format) String() string {
	return fmt.Sprintf("Q%d.%d", f.Width-f.FracBits, f.FracBits)
}

// Max is the largest representable raw value, 2^(W-1)-1.
func (f Format) Max() int32 {
	return int32(int64(1)<<(f.Width-1) - 1)
}

// Min is the smallest representable raw value, -2^(W-1).
func (f Format) Min() int32 {
	return int32(-(int64(1) << (f.Width - 1)))
}

// One is the raw encoding of 1.0, saturated when FracBits == Width-1.
func (f Format) One() int32 {
	return f.Saturate(int64(1) << f.FracBits)
}

// Wrap reduces v modulo 2^Width into the signed range.
func (f Format) Wrap(v int64) int32 {
	return int32(wrapBits(v, f.Width))
}

// Saturate clamps v into [Min, Max].
func (f Format) Saturate(v int64) int32 {
	if v > int64(f.Max()) {
		return f.Max()
	}
	if v < int64(f.Min()) {
		return f.Min()
	}
	return int32(v)
}

// Add is raw two's-complement addition.  Out-of-range sums wrap; they are
// not saturated.
func (f Format) Add(a, b int32) int32 {
	return f.Wrap(int64(a) + int64(b))
}

// SaturatingAdd is Add with the saturation policy of Mul.
func (f Format) SaturatingAdd(a, b int32) int32 {
	return f.Saturate(int64(a) + int64(b))
}

// Negate is the raw two's-complement negation, wrapping Min onto itself.
func (f Format) Negate(a int32) int32 {
	return f.Wrap(-int64(a))
}

// Mul computes the double-width product, rounds half up at the binary point,
// and saturates.
func (f Format) Mul(a, b int32) int32 {
	return f.Rescale(int64(a) * int64(b))
}

// WrappingMul is Mul with the wrapping policy of Add.
func (f Format) WrappingMul(a, b int32) int32 {
	return f.Wrap(f.shiftRound(int64(a) * int64(b)))
}

// Rescale narrows a wide product or accumulator carrying 2*FracBits
// fractional bits back into the format: arithmetic shift right by FracBits
// with round-half-up, then saturation.
func (f Format) Rescale(wide int64) int32 {
	return f.Saturate(f.shiftRound(wide))
}

// shiftRound is floor((v + 2^(F-1)) / 2^F) computed without overflowing
// int64 near its bounds.
func (f Format) shiftRound(v int64) int64 {
	if f.FracBits == 0 {
		return v
	}
	q := v >> f.FracBits
	if v&(int64(1)<<(f.FracBits-1)) != 0 {
		q++
	}
	return q
}

// FromFloat32 quantizes x, rounding half away from zero and saturating.
func (f Format) FromFloat32(x float32) int32 {
	if math32.IsNaN(x) {
		return 0
	}
	scaled := math32.Round(math32.Ldexp(x, f.FracBits))
	if scaled >= float32(f.Max()) {
		return f.Max()
	}
	if scaled <= float32(f.Min()) {
		return f.Min()
	}
	return int32(scaled)
}

func (f Format) ToFloat32(raw int32) float32 {
	return math32.Ldexp(float32(raw), -f.FracBits)
}

// wrapBits sign-extends the low bits of v.
func wrapBits(v int64, bits int) int64 {
	if bits >= 64 {
		return v
	}
	shift := uint(64 - bits)
	return v << shift >> shift
}
