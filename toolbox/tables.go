package toolbox

import (
	"fmt"
	"slices"

	"github.com/chewxy/math32"
)

// DefaultTableSize is the number of entries in a lookup table addressed by an
// 8-bit index.
const DefaultTableSize = 256

type TableKind int

const (
	TanhTable TableKind = iota
	SigmoidTable
	ExpTable
)

func (k TableKind) String() string {
	switch k {
	case TanhTable:
		return "tanh"
	case SigmoidTable:
		return "sigmoid"
	case ExpTable:
		return "exp"
	default:
		return fmt.Sprintf("TableKind(%d)", int(k))
	}
}

// LookupTable is an immutable piecewise-constant approximation of a monotonic
// function.  Entry i approximates the function at the real input
// (i - Len()/2) / 256.
type LookupTable struct {
	kind   TableKind
	values []int32
}

// NewLookupTable validates and copies values.  The table length must be a
// power of two, the values non-decreasing, and, for ExpTable, non-negative.
func NewLookupTable(kind TableKind, values []int32) (*LookupTable, error) {
	n := len(values)
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: %v table size %d is not a power of two >= 2", ErrInvalidConfiguration, kind, n)
	}
	for i := 1; i < n; i++ {
		if values[i] < values[i-1] {
			return nil, fmt.Errorf("%w: %v table decreases at index %d (%d -> %d)", ErrInvalidConfiguration, kind, i, values[i-1], values[i])
		}
	}
	if kind == ExpTable && values[0] < 0 {
		return nil, fmt.Errorf("%w: exp table has negative entry %d", ErrInvalidConfiguration, values[0])
	}
	return &LookupTable{kind: kind, values: slices.Clone(values)}, nil
}

func (t *LookupTable) Kind() TableKind {
	return t.kind
}

func (t *LookupTable) Len() int {
	return len(t.values)
}

func (t *LookupTable) At(i int) int32 {
	return t.values[i]
}

// Values returns a copy of the entries.
func (t *LookupTable) Values() []int32 {
	return slices.Clone(t.values)
}

// Tables holds the tanh, sigmoid and exponential tables for one format.
// Built once; shared read-only by every table-backed operation.
type Tables struct {
	Format  Format
	Tanh    *LookupTable
	Sigmoid *LookupTable
	Exp     *LookupTable
}

// NewTables builds all three tables with size entries each from float32
// reference values.
func NewTables(f Format, size int) (*Tables, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: table size %d is not a power of two >= 2", ErrInvalidConfiguration, size)
	}
	tanhTable, err := NewLookupTable(TanhTable, generateTable(f, size, math32.Tanh))
	if err != nil {
		return nil, err
	}
	sigmoidTable, err := NewLookupTable(SigmoidTable, generateTable(f, size, sigmoid))
	if err != nil {
		return nil, err
	}
	expTable, err := NewLookupTable(ExpTable, generateTable(f, size, math32.Exp))
	if err != nil {
		return nil, err
	}
	return &Tables{Format: f, Tanh: tanhTable, Sigmoid: sigmoidTable, Exp: expTable}, nil
}

// TablesOf assembles tables supplied by the caller, for example values
// captured from a hardware reference.  All tables must have the same length.
func TablesOf(f Format, tanh, sigmoid, exp *LookupTable) (*Tables, error) {
	if tanh.Kind() != TanhTable || sigmoid.Kind() != SigmoidTable || exp.Kind() != ExpTable {
		return nil, fmt.Errorf("%w: tables supplied in the wrong roles", ErrInvalidConfiguration)
	}
	if tanh.Len() != sigmoid.Len() || tanh.Len() != exp.Len() {
		return nil, fmt.Errorf("%w: table sizes differ (%d, %d, %d)", ErrInvalidConfiguration, tanh.Len(), sigmoid.Len(), exp.Len())
	}
	return &Tables{Format: f, Tanh: tanh, Sigmoid: sigmoid, Exp: exp}, nil
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

func generateTable(f Format, size int, fn func(float32) float32) []int32 {
	values := make([]int32, size)
	for i := range values {
		values[i] = f.FromFloat32(fn(TableInput(i, size)))
	}
	return values
}

// TableInput is the real input that entry i of a size-entry table
// represents.
func TableInput(i, size int) float32 {
	return float32(i-size/2) / 256
}

// TableDomainHalfWidth is the raw clamp bound applied before indexing:
// 2^(F+7), or 2^(W-1) when that shift would not fit the value width.
func (f Format) TableDomainHalfWidth() int64 {
	if f.Width > f.FracBits+7 {
		return int64(1) << (f.FracBits + 7)
	}
	return int64(1) << (f.Width - 1)
}

// TableIndex maps a raw input to a table index: clamp to the domain, shift by
// FracBits-8 (so one step is 2^(F-8) raw units), offset by size/2, and keep
// the result inside the table.
func (f Format) TableIndex(x int64, size int) int {
	half := f.TableDomainHalfWidth()
	x = min(max(x, -half), half)

	var q int64
	if f.FracBits >= 8 {
		q = x >> (f.FracBits - 8)
	} else {
		q = x << (8 - f.FracBits)
	}

	idx := q + int64(size/2)
	return int(min(max(idx, 0), int64(size-1)))
}

func (t *Tables) lookup(tbl *LookupTable, x int64) int32 {
	return tbl.values[t.Format.TableIndex(x, len(tbl.values))]
}

// Tanh approximates tanh of a raw value.
func (e *Engine) Tanh(x int32) int32 {
	return e.Tables.lookup(e.Tables.Tanh, int64(x))
}

// Sigmoid approximates the logistic function of a raw value.
func (e *Engine) Sigmoid(x int32) int32 {
	return e.Tables.lookup(e.Tables.Sigmoid, int64(x))
}

// Exp approximates e^x.  x may lie outside the value format (softmax feeds
// it differences of two values).
func (e *Engine) Exp(x int64) int32 {
	return e.Tables.lookup(e.Tables.Exp, x)
}

func (e *Engine) TanhVector(a *AQ32) *AQ32 {
	out := MakeAQ32(len(a.V))
	for i, v := range a.V {
		out.V[i] = e.Tanh(v)
	}
	return out
}

func (e *Engine) SigmoidVector(a *AQ32) *AQ32 {
	out := MakeAQ32(len(a.V))
	for i, v := range a.V {
		out.V[i] = e.Sigmoid(v)
	}
	return out
}

// Softmax normalizes exp(a[i] - max(a)) by their sum.  Division truncates
// toward zero, so the outputs sum to at most One and at least
// One - len(a).  If every exponential is zero the output is all zeros.
func (e *Engine) Softmax(a *AQ32) *AQ32 {
	out := MakeAQ32(len(a.V))
	if len(a.V) == 0 {
		return out
	}

	maxVal := slices.Max(a.V)

	exps := make([]int64, len(a.V))
	var sumExp int64
	for i, v := range a.V {
		exps[i] = int64(e.Exp(int64(v) - int64(maxVal)))
		sumExp += exps[i]
	}

	if sumExp == 0 {
		return out
	}

	for i := range exps {
		out.V[i] = e.Format.Saturate((exps[i] << e.Format.FracBits) / sumExp)
	}
	return out
}
