package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ahmedtd/fxml/toolbox"
	"github.com/google/subcommands"
	"github.com/sbinet/npyio/npz"
)

type QuantizeCommand struct {
	engineFlags

	inFile  string
	outFile string
}

var _ subcommands.Command = (*QuantizeCommand)(nil)

func (*QuantizeCommand) Name() string {
	return "quantize"
}

func (*QuantizeCommand) Synopsis() string {
	return "Quantize float32 weights into fixed-point safetensors"
}

func (*QuantizeCommand) Usage() string {
	return `The input .npz holds float32 arrays named net.<l>.weights with shape
(outputs, inputs) and net.<l>.biases with shape (outputs).
`
}

func (c *QuantizeCommand) SetFlags(f *flag.FlagSet) {
	c.engineFlags.SetFlags(f)
	f.StringVar(&c.inFile, "in", "weights.npz", "Path to float32 weights")
	f.StringVar(&c.outFile, "out", "weights.safetensors", "Path to write fixed-point weights (safetensors format)")
}

func (c *QuantizeCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *QuantizeCommand) executeErr(ctx context.Context) error {
	e, err := c.engine()
	if err != nil {
		return err
	}

	r, err := npz.Open(c.inFile)
	if err != nil {
		return fmt.Errorf("while opening weights file: %w", err)
	}
	defer r.Close()

	tensors := map[string]*toolbox.AQ32{}
	for _, name := range r.Keys() {
		tensor, err := loadQuantized(r, name, e.Format)
		if err != nil {
			return fmt.Errorf("while reading %s: %w", name, err)
		}
		tensors[trimNpy(name)] = tensor
		log.Printf("quantized %s shape=%v", trimNpy(name), tensor.Shape)
	}

	out, err := os.Create(c.outFile)
	if err != nil {
		return fmt.Errorf("while creating output file: %w", err)
	}
	defer out.Close()

	if err := toolbox.WriteSafeTensors(out, e.Format, tensors); err != nil {
		return fmt.Errorf("while writing fixed-point tensors: %w", err)
	}

	return out.Close()
}

func loadQuantized(r *npz.Reader, name string, f toolbox.Format) (*toolbox.AQ32, error) {
	header := r.Header(name)
	if header == nil {
		return nil, fmt.Errorf("missing header")
	}

	var raw []float32
	if err := r.Read(name, &raw); err != nil {
		return nil, fmt.Errorf("while reading float32 array: %w", err)
	}

	return toolbox.QuantizeFloat32(f, raw, header.Descr.Shape...), nil
}

// trimNpy strips the .npy suffix numpy adds to npz member names.
func trimNpy(name string) string {
	const suffix = ".npy"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}
