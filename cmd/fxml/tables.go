package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/fxml/toolbox"
	"github.com/google/subcommands"
	"github.com/sbinet/npyio/npz"
)

type TablesCommand struct {
	engineFlags

	outFile string
}

var _ subcommands.Command = (*TablesCommand)(nil)

func (*TablesCommand) Name() string {
	return "tables"
}

func (*TablesCommand) Synopsis() string {
	return "Write the tanh, sigmoid and exp lookup tables"
}

func (*TablesCommand) Usage() string {
	return ``
}

func (c *TablesCommand) SetFlags(f *flag.FlagSet) {
	c.engineFlags.SetFlags(f)
	f.StringVar(&c.outFile, "out", "tables.npz", "Path to write the tables (npz format)")
}

func (c *TablesCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *TablesCommand) executeErr(ctx context.Context) error {
	e, err := c.engine()
	if err != nil {
		return err
	}

	w, err := npz.Create(c.outFile)
	if err != nil {
		return fmt.Errorf("while creating tables file: %w", err)
	}
	defer w.Close()

	size := e.Tables.Tanh.Len()
	inputs := make([]float32, size)
	for i := range inputs {
		inputs[i] = toolbox.TableInput(i, size)
	}
	if err := w.Write("input.npy", inputs); err != nil {
		return fmt.Errorf("while writing table inputs: %w", err)
	}

	for _, tbl := range []*toolbox.LookupTable{e.Tables.Tanh, e.Tables.Sigmoid, e.Tables.Exp} {
		if err := w.Write(tbl.Kind().String()+".npy", tbl.Values()); err != nil {
			return fmt.Errorf("while writing %v table: %w", tbl.Kind(), err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("while closing tables file: %w", err)
	}

	log.Printf("wrote %d-entry tables for %v to %s", size, e.Format, c.outFile)
	return nil
}
