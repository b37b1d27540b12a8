package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/fxml/toolbox"
	"github.com/google/subcommands"
)

type InferCommand struct {
	engineFlags

	weightsFile string
	activations string
	inputFile   string
}

var _ subcommands.Command = (*InferCommand)(nil)

func (*InferCommand) Name() string {
	return "infer"
}

func (*InferCommand) Synopsis() string {
	return "Run a fixed-point network over one input vector"
}

func (*InferCommand) Usage() string {
	return ``
}

func (c *InferCommand) SetFlags(f *flag.FlagSet) {
	c.engineFlags.SetFlags(f)
	f.StringVar(&c.weightsFile, "weights", "weights.safetensors", "Path to the weights produced by the quantize command")
	f.StringVar(&c.activations, "activations", "linear", "Comma-separated activation per layer (relu, linear, sigmoid, tanh, softmax)")
	f.StringVar(&c.inputFile, "input", "", "Path to a 1-D float32 .npy input vector")
}

func (c *InferCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *InferCommand) executeErr(ctx context.Context) error {
	e, err := c.engine()
	if err != nil {
		return err
	}

	activations, err := parseActivations(c.activations)
	if err != nil {
		return err
	}

	net, err := loadNetwork(c.weightsFile, e, activations)
	if err != nil {
		return fmt.Errorf("while loading weights: %w", err)
	}

	x, err := loadInput(c.inputFile, e)
	if err != nil {
		return fmt.Errorf("while loading input: %w", err)
	}
	if x.Len() != net.InputSize() {
		return fmt.Errorf("input has %d values, network takes %d", x.Len(), net.InputSize())
	}

	pred, err := net.Apply(e, x)
	if err != nil {
		return fmt.Errorf("while applying network: %w", err)
	}

	for i, raw := range pred.V {
		log.Printf("output[%d] raw=%d value=%v", i, raw, e.Format.ToFloat32(raw))
	}
	log.Printf("Prediction: %d", toolbox.Argmax(pred.V))
	return nil
}
