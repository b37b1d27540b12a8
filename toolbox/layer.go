package toolbox

import (
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

type ActivationType int

const (
	ReLU ActivationType = iota
	Linear
	Sigmoid
	Tanh
	Softmax
)

func (a ActivationType) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Linear:
		return "linear"
	case Sigmoid:
		return "sigmoid"
	case Tanh:
		return "tanh"
	case Softmax:
		return "softmax"
	default:
		return fmt.Sprintf("ActivationType(%d)", int(a))
	}
}

// ParseActivation is the inverse of ActivationType.String.
func ParseActivation(s string) (ActivationType, error) {
	for a := ReLU; a <= Softmax; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown activation %q", ErrInvalidConfiguration, s)
}

type Layer struct {
	Activation ActivationType

	W *AQ32 // Shape (OutputSize, InputSize)
	B *AQ32 // Shape (OutputSize)

	InputSize  int
	OutputSize int
}

// MakeDense returns a layer with zero weights and biases.
func MakeDense(activation ActivationType, inputSize, outputSize int) *Layer {
	return &Layer{
		Activation: activation,
		InputSize:  inputSize,
		OutputSize: outputSize,
		W:          MakeAQ32(outputSize, inputSize),
		B:          MakeAQ32(outputSize),
	}
}

// NewLayer builds a layer around existing weights and biases, taking its
// sizes from the weight shape.
func NewLayer(activation ActivationType, w, b *AQ32) (*Layer, error) {
	if len(w.Shape) != 2 {
		return nil, fmt.Errorf("%w: weights must be 2-D, got shape %v", ErrInvalidConfiguration, w.Shape)
	}
	lay := &Layer{
		Activation: activation,
		W:          w,
		B:          b,
		InputSize:  w.Shape[1],
		OutputSize: w.Shape[0],
	}
	if err := lay.Validate(); err != nil {
		return nil, err
	}
	return lay, nil
}

func (lay *Layer) Validate() error {
	if lay.Activation < ReLU || lay.Activation > Softmax {
		return fmt.Errorf("%w: unhandled activation %v", ErrInvalidConfiguration, lay.Activation)
	}
	if !slices.Equal(lay.W.Shape, []int{lay.OutputSize, lay.InputSize}) {
		return fmt.Errorf("%w: weight shape %v != {%d, %d}", ErrDimensionMismatch, lay.W.Shape, lay.OutputSize, lay.InputSize)
	}
	if !slices.Equal(lay.B.Shape, []int{lay.OutputSize}) {
		return fmt.Errorf("%w: bias shape %v != {%d}", ErrDimensionMismatch, lay.B.Shape, lay.OutputSize)
	}
	return nil
}

// Apply runs the layer forward: fully-connected transform followed by the
// activation.
func (lay *Layer) Apply(e *Engine, x *AQ32) (*AQ32, error) {
	if err := lay.Validate(); err != nil {
		return nil, err
	}
	z, err := e.FullyConnected(lay.W, x, lay.B)
	if err != nil {
		return nil, err
	}
	return e.Activate(lay.Activation, z)
}

// FullyConnected computes, for each row o of w,
//
//	Add(Rescale(Dot(w[o], x)), b[o])
//
// w has shape (OutputSize, InputSize), x length InputSize and b length
// OutputSize.  The dot product is rescaled with rounding and saturation;
// the bias add wraps.
func (e *Engine) FullyConnected(w, x, b *AQ32) (*AQ32, error) {
	if len(w.Shape) != 2 {
		return nil, fmt.Errorf("%w: weights must be 2-D, got shape %v", ErrDimensionMismatch, w.Shape)
	}
	outputSize := w.Shape[0]
	inputSize := w.Shape[1]
	if len(x.V) != inputSize {
		return nil, fmt.Errorf("%w: input length %d != weight columns %d", ErrDimensionMismatch, len(x.V), inputSize)
	}
	if len(b.V) != outputSize {
		return nil, fmt.Errorf("%w: bias length %d != weight rows %d", ErrDimensionMismatch, len(b.V), outputSize)
	}

	out := MakeAQ32(outputSize)
	width := 2 * e.Format.Width
	e.forEachRow(outputSize, func(o int) {
		acc := wrapBits(dotWide(w.V[o*inputSize:o*inputSize+inputSize], x.V), width)
		out.V[o] = e.Format.Add(e.Format.Rescale(acc), b.V[o])
	})
	return out, nil
}

// forEachRow calls fn for every i in [0, n).  Calls are independent and each
// writes only its own output element, so they may run concurrently.
func (e *Engine) forEachRow(n int, fn func(i int)) {
	if e.parallelism <= 1 || n < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// Activate applies the activation function element-wise (or, for Softmax,
// across the whole vector).
func (e *Engine) Activate(activation ActivationType, z *AQ32) (*AQ32, error) {
	switch activation {
	case ReLU:
		out := MakeAQ32(len(z.V))
		for i, v := range z.V {
			out.V[i] = max(v, 0)
		}
		return out, nil
	case Linear:
		return AQ32Copy(z), nil
	case Sigmoid:
		return e.SigmoidVector(z), nil
	case Tanh:
		return e.TanhVector(z), nil
	case Softmax:
		return e.Softmax(z), nil
	default:
		return nil, fmt.Errorf("%w: unhandled activation %v", ErrInvalidConfiguration, activation)
	}
}

// Network is a pipeline of layers.  The output size of each layer must equal
// the input size of the next.
type Network struct {
	Layers []*Layer
}

func (net *Network) Validate() error {
	if len(net.Layers) == 0 {
		return fmt.Errorf("%w: network has no layers", ErrInvalidConfiguration)
	}
	for l, lay := range net.Layers {
		if err := lay.Validate(); err != nil {
			return fmt.Errorf("layer %d: %w", l, err)
		}
		if l > 0 && net.Layers[l-1].OutputSize != lay.InputSize {
			return fmt.Errorf("%w: layer %d output size %d != layer %d input size %d",
				ErrDimensionMismatch, l-1, net.Layers[l-1].OutputSize, l, lay.InputSize)
		}
	}
	return nil
}

// InputSize is the input length of the first layer.
func (net *Network) InputSize() int {
	return net.Layers[0].InputSize
}

// Apply runs x through every layer in order.
func (net *Network) Apply(e *Engine, x *AQ32) (*AQ32, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}

	a := x
	for l, lay := range net.Layers {
		next, err := lay.Apply(e, a)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", l, err)
		}

		// This layer's output becomes the input for the next layer.
		a = next
	}

	return a, nil
}
