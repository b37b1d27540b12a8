package toolbox

import "fmt"

// Config holds the construction-time parameters of an Engine.
type Config struct {
	// Width is the total number of bits in a value, including sign.
	Width int
	// FracBits is the number of fractional bits.  0 <= FracBits < Width.
	FracBits int

	// Threshold is the raw threshold used by OpThreshold.
	Threshold int32

	// TableSize is the number of entries per lookup table.  Defaults to
	// DefaultTableSize.
	TableSize int

	// Parallelism bounds the number of goroutines evaluating independent
	// output rows.  Values <= 1 evaluate sequentially.
	Parallelism int
}

// Engine is the immutable configuration shared by every operation: the value
// format, the static threshold, and the lookup tables.  It carries no mutable
// state and is safe for concurrent use.
type Engine struct {
	Format    Format
	Threshold int32
	Tables    *Tables

	parallelism int
}

func NewEngine(cfg Config) (*Engine, error) {
	f, err := NewFormat(cfg.Width, cfg.FracBits)
	if err != nil {
		return nil, err
	}

	if cfg.Threshold < f.Min() || cfg.Threshold > f.Max() {
		return nil, fmt.Errorf("%w: threshold %d not representable in %v", ErrInvalidConfiguration, cfg.Threshold, f)
	}

	size := cfg.TableSize
	if size == 0 {
		size = DefaultTableSize
	}
	tables, err := NewTables(f, size)
	if err != nil {
		return nil, fmt.Errorf("while building lookup tables: %w", err)
	}

	return &Engine{
		Format:      f,
		Threshold:   cfg.Threshold,
		Tables:      tables,
		parallelism: cfg.Parallelism,
	}, nil
}

// WithTables returns a copy of e that uses the supplied tables.
func (e *Engine) WithTables(t *Tables) (*Engine, error) {
	if t.Format != e.Format {
		return nil, fmt.Errorf("%w: tables built for %v, engine uses %v", ErrInvalidConfiguration, t.Format, e.Format)
	}
	cp := *e
	cp.Tables = t
	return &cp, nil
}
