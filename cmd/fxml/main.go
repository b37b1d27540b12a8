// Command fxml runs fixed-point inference with the toolbox.
//
// To quantize float weights: `go run ./cmd/fxml quantize --in=weights.npz --out=weights.safetensors`
//
// To infer: `go run ./cmd/fxml infer --weights=weights.safetensors --activations=relu,softmax --input=x.npy`
//
// To classify: `go run ./cmd/fxml classify --weights=classes.safetensors --input=x.npy`
//
// To dump lookup tables: `go run ./cmd/fxml tables --out=tables.npz`
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/ahmedtd/fxml/toolbox"
	"github.com/google/subcommands"
	"github.com/sbinet/npyio"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&QuantizeCommand{}, "")
	subcommands.Register(&InferCommand{}, "")
	subcommands.Register(&ClassifyCommand{}, "")
	subcommands.Register(&TablesCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

// engineFlags are the engine configuration flags shared by every command.
type engineFlags struct {
	width       int
	fracBits    int
	tableSize   int
	parallelism int
}

func (ef *engineFlags) SetFlags(f *flag.FlagSet) {
	f.IntVar(&ef.width, "width", 16, "Total bits per fixed-point value, including sign")
	f.IntVar(&ef.fracBits, "frac-bits", 8, "Fractional bits per fixed-point value")
	f.IntVar(&ef.tableSize, "table-size", toolbox.DefaultTableSize, "Entries per tanh/sigmoid/exp lookup table")
	f.IntVar(&ef.parallelism, "parallelism", runtime.NumCPU(), "Goroutines used to evaluate layer rows")
}

func (ef *engineFlags) engine() (*toolbox.Engine, error) {
	e, err := toolbox.NewEngine(toolbox.Config{
		Width:       ef.width,
		FracBits:    ef.fracBits,
		TableSize:   ef.tableSize,
		Parallelism: ef.parallelism,
	})
	if err != nil {
		return nil, fmt.Errorf("while configuring engine: %w", err)
	}
	return e, nil
}

func parseActivations(s string) ([]toolbox.ActivationType, error) {
	var out []toolbox.ActivationType
	for _, name := range strings.Split(s, ",") {
		a, err := toolbox.ParseActivation(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func loadNetwork(path string, e *toolbox.Engine, activations []toolbox.ActivationType) (*toolbox.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening weights file: %w", err)
	}
	defer f.Close()

	return toolbox.ReadNetwork(f, e, activations)
}

// loadInput reads a 1-D float32 .npy file and quantizes it.
func loadInput(path string, e *toolbox.Engine) (*toolbox.AQ32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening input file: %w", err)
	}
	defer f.Close()

	var raw []float32
	if err := npyio.Read(f, &raw); err != nil {
		return nil, fmt.Errorf("while reading float32 array: %w", err)
	}

	return toolbox.QuantizeFloat32(e.Format, raw), nil
}
