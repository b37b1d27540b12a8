package toolbox

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLinearRegression(t *testing.T) {
	e := q16(t)

	// 1*1 + 2*0.5 + 1
	got, err := e.LinearRegression(VectorOf(256, 512), VectorOf(256, 128), 256)
	if err != nil {
		t.Fatalf("LinearRegression: %v", err)
	}
	if got != 768 {
		t.Errorf("LinearRegression = %d, want 768", got)
	}

	// A {1, n} weight matrix is accepted too.
	got, err = e.LinearRegression(matrixOf(1, 2, 256, 512), VectorOf(256, 128), 256)
	if err != nil {
		t.Fatalf("LinearRegression: %v", err)
	}
	if got != 768 {
		t.Errorf("LinearRegression = %d, want 768", got)
	}

	if _, err := e.LinearRegression(VectorOf(1, 2, 3), VectorOf(1, 2), 0); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("mismatched lengths: error = %v, want ErrDimensionMismatch", err)
	}
	if _, err := e.LinearRegression(matrixOf(2, 1, 1, 2), VectorOf(1), 0); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("two weight rows: error = %v, want ErrDimensionMismatch", err)
	}
}

func TestLogisticRegression(t *testing.T) {
	e := q16(t)

	got, err := e.LogisticRegression(VectorOf(0, 0), VectorOf(100, -100), 0)
	if err != nil {
		t.Fatalf("LogisticRegression: %v", err)
	}
	if got != 128 {
		t.Errorf("LogisticRegression = %d, want 128", got)
	}

	// sigmoid(0.25) = 0.5622
	got, err = e.LogisticRegression(VectorOf(0, 0), VectorOf(100, -100), 64)
	if err != nil {
		t.Fatalf("LogisticRegression: %v", err)
	}
	if got != 144 {
		t.Errorf("LogisticRegression = %d, want 144", got)
	}
}

func TestBinaryClassifier(t *testing.T) {
	e := q16(t)

	c, err := NewBinaryClassifier(e, VectorOf(256, -256), 0, 0.5)
	if err != nil {
		t.Fatalf("NewBinaryClassifier: %v", err)
	}
	if c.ThresholdRaw != 128 {
		t.Fatalf("ThresholdRaw = %d, want 128", c.ThresholdRaw)
	}

	cases := []struct {
		desc     string
		x        *AQ32
		wantProb int32
		want     bool
	}{
		// The probability equals the threshold exactly: not positive.
		{"on the boundary", VectorOf(32, 32), 128, false},
		{"above", VectorOf(96, 32), 144, true},
		{"below", VectorOf(32, 96), 112, false},
	}
	for _, tc := range cases {
		prob, positive, err := c.Classify(e, tc.x)
		if err != nil {
			t.Fatalf("%s: Classify: %v", tc.desc, err)
		}
		if prob != tc.wantProb || positive != tc.want {
			t.Errorf("%s: Classify = (%d, %v), want (%d, %v)", tc.desc, prob, positive, tc.wantProb, tc.want)
		}
	}

	if _, _, err := c.Classify(e, VectorOf(1)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("short input: error = %v, want ErrDimensionMismatch", err)
	}

	if _, err := NewBinaryClassifier(e, matrixOf(2, 1, 1, 2), 0, 0.5); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("two weight rows: error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestMulticlassClassify(t *testing.T) {
	e := q16(t)
	w := matrixOf(3, 2,
		256, 0,
		0, 256,
		-256, 0,
	)
	b := VectorOf(0, 0, 0)

	probs, class, err := e.MulticlassClassify(w, VectorOf(-32, 64), b)
	if err != nil {
		t.Fatalf("MulticlassClassify: %v", err)
	}
	if class != 1 {
		t.Errorf("class = %d, want 1 (probabilities %v)", class, probs.V)
	}
	for i, p := range probs.V {
		if want := e.Sigmoid(mustRow(t, e, w, i, VectorOf(-32, 64))); p != want {
			t.Errorf("probability %d = %d, want %d", i, p, want)
		}
	}
}

func mustRow(t *testing.T, e *Engine, w *AQ32, i int, x *AQ32) int32 {
	t.Helper()
	z, err := e.LinearRegression(w.Row(i), x, 0)
	if err != nil {
		t.Fatalf("LinearRegression: %v", err)
	}
	return z
}

func TestMulticlassTieGoesToLowestIndex(t *testing.T) {
	e := q16(t)
	w := MakeAQ32(3, 2)
	b := VectorOf(0, 64, 64)

	probs, class, err := e.MulticlassClassify(w, VectorOf(10, 20), b)
	if err != nil {
		t.Fatalf("MulticlassClassify: %v", err)
	}
	if diff := cmp.Diff(probs.V, []int32{128, 144, 144}); diff != "" {
		t.Fatalf("Wrong probabilities; diff (-got +want)\n%s", diff)
	}
	if class != 1 {
		t.Errorf("class = %d, want 1", class)
	}
}

func TestMulticlassErrors(t *testing.T) {
	e := q16(t)
	if _, _, err := e.MulticlassClassify(MakeAQ32(0, 2), VectorOf(1, 2), VectorOf()); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("no classes: error = %v, want ErrInvalidConfiguration", err)
	}
	if _, _, err := e.MulticlassClassify(MakeAQ32(2, 2), VectorOf(1, 2), VectorOf(0)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("short biases: error = %v, want ErrDimensionMismatch", err)
	}
	if _, _, err := e.MulticlassClassify(VectorOf(1, 2), VectorOf(1, 2), VectorOf(0)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("1-D weights: error = %v, want ErrDimensionMismatch", err)
	}
	if _, err := e.FullyConnected(VectorOf(1, 2), VectorOf(1, 2), VectorOf(0)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("FullyConnected 1-D weights: error = %v, want ErrDimensionMismatch", err)
	}
}

func TestArgmax(t *testing.T) {
	cases := []struct {
		v    []int32
		want int
	}{
		{nil, -1},
		{[]int32{7}, 0},
		{[]int32{3, 5, 5, 1}, 1},
		{[]int32{-4, -4, -4}, 0},
		{[]int32{-9, -2, -3}, 1},
	}
	for _, tc := range cases {
		if got := Argmax(tc.v); got != tc.want {
			t.Errorf("Argmax(%v) = %d, want %d", tc.v, got, tc.want)
		}
	}
}
