package toolbox

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
)

func TestTablesAreMonotonic(t *testing.T) {
	configs := []Config{
		{Width: 8, FracBits: 4},
		{Width: 12, FracBits: 10},
		{Width: 16, FracBits: 8},
		{Width: 32, FracBits: 16},
		{Width: 16, FracBits: 8, TableSize: 4096},
	}
	for _, cfg := range configs {
		e := mustEngine(t, cfg)
		for _, tbl := range []*LookupTable{e.Tables.Tanh, e.Tables.Sigmoid, e.Tables.Exp} {
			for i := 1; i < tbl.Len(); i++ {
				if tbl.At(i) < tbl.At(i-1) {
					t.Fatalf("%v %v table decreases at %d: %d -> %d", e.Format, tbl.Kind(), i, tbl.At(i-1), tbl.At(i))
				}
			}
		}
		for i := 0; i < e.Tables.Exp.Len(); i++ {
			if e.Tables.Exp.At(i) < 0 {
				t.Fatalf("%v exp table negative at %d", e.Format, i)
			}
		}
	}
}

func TestLookupsAreMonotonicInInput(t *testing.T) {
	e := q16(t)
	prevTanh, prevSigmoid := e.Tanh(e.Format.Min()), e.Sigmoid(e.Format.Min())
	for x := int64(e.Format.Min()) + 1; x <= int64(e.Format.Max()); x++ {
		tanh, sig := e.Tanh(int32(x)), e.Sigmoid(int32(x))
		if tanh < prevTanh || sig < prevSigmoid {
			t.Fatalf("lookup decreased at x=%d", x)
		}
		prevTanh, prevSigmoid = tanh, sig
	}
}

func TestNewLookupTableValidation(t *testing.T) {
	cases := []struct {
		desc   string
		kind   TableKind
		values []int32
	}{
		{"not a power of two", SigmoidTable, []int32{0, 1, 2}},
		{"too small", TanhTable, []int32{0}},
		{"decreasing", TanhTable, []int32{0, 2, 1, 3}},
		{"negative exp", ExpTable, []int32{-1, 0, 1, 2}},
	}
	for _, tc := range cases {
		if _, err := NewLookupTable(tc.kind, tc.values); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("%s: error = %v, want ErrInvalidConfiguration", tc.desc, err)
		}
	}

	values := []int32{-3, -1, 1, 3}
	tbl, err := NewLookupTable(TanhTable, values)
	if err != nil {
		t.Fatalf("NewLookupTable: %v", err)
	}
	values[0] = 100
	if tbl.At(0) != -3 {
		t.Errorf("table aliases caller slice")
	}
}

func TestTableIndex(t *testing.T) {
	cases := []struct {
		width, fracBits int
		x               int64
		want            int
	}{
		{16, 8, 0, 128},
		{16, 8, 1, 129},
		{16, 8, -1, 127},
		{16, 8, 127, 255},
		{16, 8, 128, 255},
		{16, 8, -128, 0},
		{16, 8, -129, 0},
		{16, 8, 40000, 255},
		{16, 12, 16, 129},
		{16, 12, 15, 128},
		{16, 12, -16, 127},
		{8, 4, 1, 144},
		{8, 4, -1, 112},
	}
	for _, tc := range cases {
		f := mustFormat(t, tc.width, tc.fracBits)
		if got := f.TableIndex(tc.x, 256); got != tc.want {
			t.Errorf("%v TableIndex(%d) = %d, want %d", f, tc.x, got, tc.want)
		}
	}
}

func TestTableDomainHalfWidth(t *testing.T) {
	if got := mustFormat(t, 32, 16).TableDomainHalfWidth(); got != 1<<23 {
		t.Errorf("Q16.16 half width = %d, want %d", got, 1<<23)
	}
	if got := mustFormat(t, 16, 12).TableDomainHalfWidth(); got != 1<<15 {
		t.Errorf("Q4.12 half width = %d, want %d", got, 1<<15)
	}
}

func TestLookupValues(t *testing.T) {
	e := q16(t)
	if got := e.Sigmoid(0); got != 128 {
		t.Errorf("Sigmoid(0) = %d, want 128", got)
	}
	if got := e.Tanh(0); got != 0 {
		t.Errorf("Tanh(0) = %d, want 0", got)
	}
	if got := e.Exp(0); got != e.Format.One() {
		t.Errorf("Exp(0) = %d, want %d", got, e.Format.One())
	}

	// Within the table's span, the error is bounded by one step of the input
	// times the slope plus the output quantization.
	for x := int32(-128); x < 128; x++ {
		want := sigmoid(e.Format.ToFloat32(x))
		got := e.Format.ToFloat32(e.Sigmoid(x))
		if math32.Abs(got-want) > 0.01 {
			t.Errorf("Sigmoid(%d) = %v, want %v", x, got, want)
		}

		want = math32.Tanh(e.Format.ToFloat32(x))
		got = e.Format.ToFloat32(e.Tanh(x))
		if math32.Abs(got-want) > 0.01 {
			t.Errorf("Tanh(%d) = %v, want %v", x, got, want)
		}
	}
}

func TestSoftmaxUniform(t *testing.T) {
	e := q16(t)
	got := e.Softmax(VectorOf(5, 5, 5, 5))
	if diff := cmp.Diff(got.V, []int32{64, 64, 64, 64}); diff != "" {
		t.Fatalf("Wrong output; diff (-got +want)\n%s", diff)
	}
}

func TestSoftmaxSumsToOneWithinTolerance(t *testing.T) {
	for _, cfg := range []Config{
		{Width: 16, FracBits: 8},
		{Width: 16, FracBits: 8, TableSize: 2048},
		{Width: 32, FracBits: 16},
	} {
		e := mustEngine(t, cfg)
		r := rand.New(rand.NewSource(12345))
		one := int64(e.Format.One())

		for trial := 0; trial < 200; trial++ {
			n := 1 + r.Intn(20)
			a := MakeAQ32(n)
			for i := range a.V {
				a.V[i] = int32(r.Intn(int(4*one))) - int32(2*one)
			}

			out := e.Softmax(a)
			var sum int64
			for i, v := range out.V {
				if v < 0 {
					t.Fatalf("%v: softmax(%v)[%d] = %d is negative", e.Format, a.V, i, v)
				}
				sum += int64(v)
			}
			if sum > one || sum < one-int64(n) {
				t.Fatalf("%v: softmax(%v) sums to %d, want within [%d, %d]", e.Format, a.V, sum, one-int64(n), one)
			}

			if best := Argmax(a.V); out.V[best] != slicesMax(out.V) {
				t.Fatalf("%v: largest input %d did not get the largest output %v", e.Format, best, out.V)
			}
		}
	}
}

func slicesMax(v []int32) int32 {
	m := v[0]
	for _, x := range v {
		m = max(m, x)
	}
	return m
}

func TestSoftmaxZeroFallback(t *testing.T) {
	e := q16(t)
	zeros, err := NewLookupTable(ExpTable, make([]int32, 256))
	if err != nil {
		t.Fatalf("NewLookupTable: %v", err)
	}
	tables, err := TablesOf(e.Format, e.Tables.Tanh, e.Tables.Sigmoid, zeros)
	if err != nil {
		t.Fatalf("TablesOf: %v", err)
	}
	e, err = e.WithTables(tables)
	if err != nil {
		t.Fatalf("WithTables: %v", err)
	}

	got := e.Softmax(VectorOf(1, 2, 3))
	if diff := cmp.Diff(got.V, []int32{0, 0, 0}); diff != "" {
		t.Fatalf("Wrong output; diff (-got +want)\n%s", diff)
	}

	if got := e.Softmax(VectorOf()); len(got.V) != 0 {
		t.Errorf("Softmax(empty) = %v, want empty", got.V)
	}
}

func TestTablesOfValidation(t *testing.T) {
	e := q16(t)
	if _, err := TablesOf(e.Format, e.Tables.Sigmoid, e.Tables.Tanh, e.Tables.Exp); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("swapped roles: error = %v, want ErrInvalidConfiguration", err)
	}

	small, err := NewLookupTable(ExpTable, []int32{0, 1})
	if err != nil {
		t.Fatalf("NewLookupTable: %v", err)
	}
	if _, err := TablesOf(e.Format, e.Tables.Tanh, e.Tables.Sigmoid, small); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("mixed sizes: error = %v, want ErrInvalidConfiguration", err)
	}

	other := mustEngine(t, Config{Width: 16, FracBits: 10})
	if _, err := e.WithTables(other.Tables); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("format mismatch: error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestNewEngineValidation(t *testing.T) {
	cases := []Config{
		{Width: 16, FracBits: 16},
		{Width: 8, FracBits: 4, Threshold: 200},
		{Width: 16, FracBits: 8, TableSize: 100},
		{Width: 16, FracBits: 8, TableSize: -1},
		{Width: 16, FracBits: 8, TableSize: 1},
	}
	for _, cfg := range cases {
		if _, err := NewEngine(cfg); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("NewEngine(%+v) error = %v, want ErrInvalidConfiguration", cfg, err)
		}
	}
}
