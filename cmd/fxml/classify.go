package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/fxml/toolbox"
	"github.com/google/subcommands"
)

type ClassifyCommand struct {
	engineFlags

	weightsFile string
	inputFile   string
	threshold   float64
}

var _ subcommands.Command = (*ClassifyCommand)(nil)

func (*ClassifyCommand) Name() string {
	return "classify"
}

func (*ClassifyCommand) Synopsis() string {
	return "Classify one input vector with logistic regression units"
}

func (*ClassifyCommand) Usage() string {
	return `A single weight row is a binary classifier; N rows are N independent
classes and the most probable one wins.
`
}

func (c *ClassifyCommand) SetFlags(f *flag.FlagSet) {
	c.engineFlags.SetFlags(f)
	f.StringVar(&c.weightsFile, "weights", "classes.safetensors", "Path to single-layer weights (net.0.weights, net.0.biases)")
	f.StringVar(&c.inputFile, "input", "", "Path to a 1-D float32 .npy input vector")
	f.Float64Var(&c.threshold, "threshold", 0.5, "Probability above which a binary classifier answers true")
}

func (c *ClassifyCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *ClassifyCommand) executeErr(ctx context.Context) error {
	e, err := c.engine()
	if err != nil {
		return err
	}

	net, err := loadNetwork(c.weightsFile, e, []toolbox.ActivationType{toolbox.Sigmoid})
	if err != nil {
		return fmt.Errorf("while loading weights: %w", err)
	}
	lay := net.Layers[0]

	x, err := loadInput(c.inputFile, e)
	if err != nil {
		return fmt.Errorf("while loading input: %w", err)
	}
	if x.Len() != net.InputSize() {
		return fmt.Errorf("input has %d values, network takes %d", x.Len(), net.InputSize())
	}

	if lay.OutputSize == 1 {
		clf, err := toolbox.NewBinaryClassifier(e, lay.W, lay.B.At1(0), float32(c.threshold))
		if err != nil {
			return err
		}
		prob, positive, err := clf.Classify(e, x)
		if err != nil {
			return fmt.Errorf("while classifying: %w", err)
		}
		log.Printf("probability raw=%d value=%v threshold raw=%d", prob, e.Format.ToFloat32(prob), clf.ThresholdRaw)
		log.Printf("Prediction: %v", positive)
		return nil
	}

	probs, class, err := e.MulticlassClassify(lay.W, x, lay.B)
	if err != nil {
		return fmt.Errorf("while classifying: %w", err)
	}
	for i, raw := range probs.V {
		log.Printf("class %d probability raw=%d value=%v", i, raw, e.Format.ToFloat32(raw))
	}
	log.Printf("Prediction: %d", class)
	return nil
}
