package toolbox

import "fmt"

// LinearRegression is a single-row fully-connected layer.  w has length
// len(x) (or shape {1, len(x)}).
func (e *Engine) LinearRegression(w, x *AQ32, bias int32) (int32, error) {
	if len(w.Shape) == 2 && w.Shape[0] != 1 {
		return 0, fmt.Errorf("%w: linear regression takes one weight row, got shape %v", ErrDimensionMismatch, w.Shape)
	}
	out, err := e.FullyConnected(AQ32Reshape(w, 1, len(w.V)), x, VectorOf(bias))
	if err != nil {
		return 0, err
	}
	return out.V[0], nil
}

// LogisticRegression passes the linear regression output through the sigmoid
// table.
func (e *Engine) LogisticRegression(w, x *AQ32, bias int32) (int32, error) {
	z, err := e.LinearRegression(w, x, bias)
	if err != nil {
		return 0, err
	}
	return e.Sigmoid(z), nil
}

// BinaryClassify returns the logistic regression probability and whether it
// is strictly greater than thresholdRaw.
func (e *Engine) BinaryClassify(w, x *AQ32, bias, thresholdRaw int32) (int32, bool, error) {
	p, err := e.LogisticRegression(w, x, bias)
	if err != nil {
		return 0, false, err
	}
	return p, p > thresholdRaw, nil
}

// BinaryClassifier is a logistic regression unit with a decision threshold
// quantized once at construction.
type BinaryClassifier struct {
	W    *AQ32
	Bias int32

	// ThresholdRaw is threshold * 2^FracBits.
	ThresholdRaw int32
}

func NewBinaryClassifier(e *Engine, w *AQ32, bias int32, threshold float32) (*BinaryClassifier, error) {
	if len(w.Shape) == 2 && w.Shape[0] != 1 {
		return nil, fmt.Errorf("%w: binary classifier takes one weight row, got shape %v", ErrInvalidConfiguration, w.Shape)
	}
	return &BinaryClassifier{
		W:            w,
		Bias:         bias,
		ThresholdRaw: e.Format.FromFloat32(threshold),
	}, nil
}

func (c *BinaryClassifier) Classify(e *Engine, x *AQ32) (probability int32, positive bool, err error) {
	return e.BinaryClassify(c.W, x, c.Bias, c.ThresholdRaw)
}

// MulticlassClassify evaluates one logistic regression unit per row of w (shape
// (classes, len(x))) against the shared input, and returns every class
// probability together with the index of the largest.
func (e *Engine) MulticlassClassify(w, x, b *AQ32) (*AQ32, int, error) {
	if len(w.Shape) != 2 {
		return nil, -1, fmt.Errorf("%w: multiclass weights must be 2-D, got shape %v", ErrDimensionMismatch, w.Shape)
	}
	if w.Shape[0] == 0 {
		return nil, -1, fmt.Errorf("%w: multiclass weights have no classes", ErrInvalidConfiguration)
	}
	z, err := e.FullyConnected(w, x, b)
	if err != nil {
		return nil, -1, err
	}
	probs := e.SigmoidVector(z)
	return probs, Argmax(probs.V), nil
}

// Argmax returns the index of the largest element, preferring the lowest
// index on ties, or -1 for an empty slice.
func Argmax(v []int32) int {
	best := -1
	for i, x := range v {
		if best < 0 || x > v[best] {
			best = i
		}
	}
	return best
}
