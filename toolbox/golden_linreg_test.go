package toolbox

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
)

func TestAgreesWithFloatLinreg(t *testing.T) {
	e := mustEngine(t, Config{Width: 32, FracBits: 16})

	batchSize := 1000
	x := generate2DDataset(batchSize)

	m0, m1, b := float32(10), float32(-3), float32(30)
	w := QuantizeFloat32(e.Format, []float32{m0, m1})
	bias := e.Format.FromFloat32(b)

	for k := 0; k < batchSize; k++ {
		want := m0*x[k][0] + m1*x[k][1] + b

		z, err := e.LinearRegression(w, QuantizeFloat32(e.Format, x[k][:]), bias)
		if err != nil {
			t.Fatalf("LinearRegression: %v", err)
		}
		got := e.Format.ToFloat32(z)

		if math32.Abs(got-want) > 0.001 {
			t.Errorf("Disagreement at sample %d x=%v; got %v, want %v", k, x[k], got, want)
		}
	}
}

func TestAgreesWithFloatSoftmax(t *testing.T) {
	e := mustEngine(t, Config{Width: 32, FracBits: 16, TableSize: 4096})
	r := rand.New(rand.NewSource(12345))

	for trial := 0; trial < 100; trial++ {
		v := make([]float32, 1+r.Intn(10))
		for i := range v {
			v[i] = r.Float32()*6 - 3
		}

		maxv := v[0]
		for _, x := range v {
			maxv = max(maxv, x)
		}
		var sum float32
		for _, x := range v {
			sum += math32.Exp(x - maxv)
		}

		got := DequantizeFloat32(e.Format, e.Softmax(QuantizeFloat32(e.Format, v)))
		for i, x := range v {
			want := math32.Exp(x-maxv) / sum
			if math32.Abs(got[i]-want) > 0.01 {
				t.Errorf("softmax(%v)[%d] = %v, want %v", v, i, got[i], want)
			}
		}
	}
}

// generate2DDataset returns m points uniformly distributed in the unit
// square.
func generate2DDataset(m int) [][2]float32 {
	r := rand.New(rand.NewSource(12345))
	x := make([][2]float32, m)
	for i := range x {
		x[i] = [2]float32{r.Float32(), r.Float32()}
	}
	return x
}
