// Command logistic-regression-simulator compares a fixed-point logistic
// regression classifier against the same model evaluated in float32.
package main

import (
	"flag"
	"log"
	"math/rand"

	"github.com/ahmedtd/fxml/toolbox"
	"github.com/chewxy/math32"
)

var (
	batchSize = flag.Int("samples", 1000, "Number of random points to classify")
	width     = flag.Int("width", 16, "Total bits per fixed-point value")
	fracBits  = flag.Int("frac-bits", 8, "Fractional bits per fixed-point value")
	tableSize = flag.Int("table-size", 2048, "Entries in the sigmoid lookup table")
	noise     = flag.Float64("noise", 0.05, "Standard deviation of the noise added to each point")
)

func main() {
	flag.Parse()

	e, err := toolbox.NewEngine(toolbox.Config{
		Width:     *width,
		FracBits:  *fracBits,
		TableSize: *tableSize,
	})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	x, y := generateDataset(*batchSize, float32(*noise))

	num0s := 0
	num1s := 0
	for k := 0; k < *batchSize; k++ {
		if y[k] {
			num1s++
		} else {
			num0s++
		}
	}
	log.Printf("original data set has %d 1s and %d 0s", num1s, num0s)

	// The "true" decision boundary is x1 = x0.
	m := &Model{W1: -8, W2: 8, B: 0}
	log.Printf("float model W1=%v W2=%v B=%v", m.W1, m.W2, m.B)

	clf, err := toolbox.NewBinaryClassifier(e,
		toolbox.QuantizeFloat32(e.Format, []float32{m.W1, m.W2}),
		e.Format.FromFloat32(m.B),
		0.5)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	log.Printf("fixed-point model %v W=%v B=%d threshold=%d", e.Format, clf.W.V, clf.Bias, clf.ThresholdRaw)

	floatNumMispredictions := 0
	fixedNumMispredictions := 0
	numDisagreements := 0
	maxProbabilityError := float32(0)
	for k := 0; k < *batchSize; k++ {
		floatProb := m.probability(x[k])
		floatPrediction := floatProb > 0.5

		fixedProb, fixedPrediction, err := clf.Classify(e, toolbox.QuantizeFloat32(e.Format, x[k][:]))
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

		if floatPrediction != y[k] {
			floatNumMispredictions++
		}
		if fixedPrediction != y[k] {
			fixedNumMispredictions++
		}
		if fixedPrediction != floatPrediction {
			numDisagreements++
			// log.Printf("disagreement k=%d x0=%v x1=%v float=%v fixed=%v", k, x[k][0], x[k][1], floatProb, e.Format.ToFloat32(fixedProb))
		}

		maxProbabilityError = max(maxProbabilityError, math32.Abs(e.Format.ToFloat32(fixedProb)-floatProb))
	}

	log.Printf("float32 had %d mispredictions (%v%%)", floatNumMispredictions, float32(floatNumMispredictions)/float32(*batchSize)*float32(100))
	log.Printf("fixed-point had %d mispredictions (%v%%)", fixedNumMispredictions, float32(fixedNumMispredictions)/float32(*batchSize)*float32(100))
	log.Printf("fixed-point and float32 disagreed on %d points; max probability error %v", numDisagreements, maxProbabilityError)
}

func generateDataset(m int, noise float32) (x [][2]float32, y []bool) {
	r := rand.New(rand.NewSource(12345))

	x = make([][2]float32, m)
	y = make([]bool, m)

	for i := 0; i < m; i++ {
		// Generate a point and classify it according to the "true"
		// distribution.
		x1 := r.Float32()
		x2 := r.Float32()
		y[i] = x2 > 1.0*x1+0.0

		// Perturb the point a little bit with noise.
		x[i] = [2]float32{
			x1 + noise*float32(r.NormFloat64()),
			x2 + noise*float32(r.NormFloat64()),
		}
	}

	return x, y
}

type Model struct {
	W1, W2 float32
	B      float32
}

func sigmoid(z float32) float32 {
	return float32(1) / (float32(1) + float32(math32.Exp(-z)))
}

func (m *Model) probability(x [2]float32) float32 {
	return sigmoid(m.W1*x[0] + m.W2*x[1] + m.B)
}
