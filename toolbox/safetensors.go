package toolbox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
)

const (
	metadataKey      = "__metadata__"
	metaWidthKey     = "fxml.width"
	metaFracBitsKey  = "fxml.frac_bits"
	safeTensorsDType = "I32"

	// maxHeaderLen matches the 100 MB header cap of the safetensors format.
	maxHeaderLen = 100_000_000
)

type SafeTensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets []int  `json:"data_offsets"`
}

// WriteSafeTensors writes raw fixed-point tensors in the safetensors format
// with dtype I32.  The format is recorded in the header metadata.
func WriteSafeTensors(w io.Writer, f Format, tensors map[string]*AQ32) error {
	header := map[string]any{
		metadataKey: map[string]string{
			metaWidthKey:    strconv.Itoa(f.Width),
			metaFracBitsKey: strconv.Itoa(f.FracBits),
		},
	}
	dataOffset := 0

	keys := []string{}
	for k := range tensors {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		begin := dataOffset
		dataOffset += len(tensors[k].V) * 4
		end := dataOffset

		header[k] = SafeTensorInfo{
			DType:       safeTensorsDType,
			Shape:       tensors[k].Shape,
			DataOffsets: []int{begin, end},
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	for _, k := range keys {
		if err := binary.Write(w, binary.LittleEndian, tensors[k].V); err != nil {
			return fmt.Errorf("while writing %s values: %w", k, err)
		}
	}

	return nil
}

// ReadSafeTensors reads tensors written by WriteSafeTensors, returning them
// together with the format recorded in the metadata.
func ReadSafeTensors(r io.Reader) (map[string]*AQ32, Format, error) {
	var headerLen uint64
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, Format{}, fmt.Errorf("while reading header length: %w", err)
	}

	if headerLen > maxHeaderLen {
		return nil, Format{}, fmt.Errorf("header length %d exceeds %d bytes", headerLen, maxHeaderLen)
	}

	headerBytes := make([]byte, int(headerLen))
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, Format{}, fmt.Errorf("while reading header: %w", err)
	}

	header := map[string]json.RawMessage{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, Format{}, fmt.Errorf("while parsing header: %w", err)
	}

	f, err := parseFormatMetadata(header[metadataKey])
	if err != nil {
		return nil, Format{}, err
	}
	delete(header, metadataKey)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Format{}, fmt.Errorf("while reading tensor data: %w", err)
	}

	tensors := map[string]*AQ32{}
	for k, raw := range header {
		var hdr SafeTensorInfo
		if err := json.Unmarshal(raw, &hdr); err != nil {
			return nil, Format{}, fmt.Errorf("while parsing header entry %s: %w", k, err)
		}
		if hdr.DType != safeTensorsDType {
			return nil, Format{}, fmt.Errorf("unsupported dtype %s for %s", hdr.DType, k)
		}

		size := 1
		for _, s := range hdr.Shape {
			if s < 0 {
				return nil, Format{}, fmt.Errorf("bad shape %v for %s", hdr.Shape, k)
			}
			size *= s
		}

		if len(hdr.DataOffsets) != 2 {
			return nil, Format{}, fmt.Errorf("bad data offsets %v for %s", hdr.DataOffsets, k)
		}
		begin, end := hdr.DataOffsets[0], hdr.DataOffsets[1]
		if begin < 0 || end > len(data) || end-begin != size*4 {
			return nil, Format{}, fmt.Errorf("data offsets %v do not hold shape %v for %s", hdr.DataOffsets, hdr.Shape, k)
		}

		tensor := MakeAQ32(hdr.Shape...)
		for i := range tensor.V {
			tensor.V[i] = int32(binary.LittleEndian.Uint32(data[begin+4*i:]))
		}
		tensors[k] = tensor
	}

	return tensors, f, nil
}

func parseFormatMetadata(raw json.RawMessage) (Format, error) {
	if raw == nil {
		return Format{}, fmt.Errorf("%w: missing %s", ErrInvalidConfiguration, metadataKey)
	}
	meta := map[string]string{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Format{}, fmt.Errorf("while parsing metadata: %w", err)
	}
	width, err := strconv.Atoi(meta[metaWidthKey])
	if err != nil {
		return Format{}, fmt.Errorf("%w: bad %s: %v", ErrInvalidConfiguration, metaWidthKey, err)
	}
	fracBits, err := strconv.Atoi(meta[metaFracBitsKey])
	if err != nil {
		return Format{}, fmt.Errorf("%w: bad %s: %v", ErrInvalidConfiguration, metaFracBitsKey, err)
	}
	return NewFormat(width, fracBits)
}

// LoadTensors installs weights and biases named net.<l>.weights and
// net.<l>.biases into the existing layers.  Shapes must match.
func (net *Network) LoadTensors(tensors map[string]*AQ32) error {
	for l := 0; l < len(net.Layers); l++ {
		weightKey := fmt.Sprintf("net.%d.weights", l)
		weightTensor, ok := tensors[weightKey]
		if !ok {
			return fmt.Errorf("no entry for %s", weightKey)
		}
		wantWeightShape := []int{net.Layers[l].OutputSize, net.Layers[l].InputSize}
		if !slices.Equal(weightTensor.Shape, wantWeightShape) {
			return fmt.Errorf("%w: %s has shape %v, want %v", ErrDimensionMismatch, weightKey, weightTensor.Shape, wantWeightShape)
		}
		net.Layers[l].W = weightTensor

		biasKey := fmt.Sprintf("net.%d.biases", l)
		biasTensor, ok := tensors[biasKey]
		if !ok {
			return fmt.Errorf("no entry for %s", biasKey)
		}
		wantBiasShape := []int{net.Layers[l].OutputSize}
		if !slices.Equal(biasTensor.Shape, wantBiasShape) {
			return fmt.Errorf("%w: %s has shape %v, want %v", ErrDimensionMismatch, biasKey, biasTensor.Shape, wantBiasShape)
		}
		net.Layers[l].B = biasTensor
	}

	return nil
}

func (net *Network) DumpTensors(tensors map[string]*AQ32) {
	for l := 0; l < len(net.Layers); l++ {
		tensors[fmt.Sprintf("net.%d.weights", l)] = net.Layers[l].W
		tensors[fmt.Sprintf("net.%d.biases", l)] = net.Layers[l].B
	}
}

// LoadNetwork reads a safetensors stream into net.  The stream must have been
// quantized in the engine's format.
func LoadNetwork(r io.Reader, e *Engine, net *Network) error {
	tensors, f, err := ReadSafeTensors(r)
	if err != nil {
		return fmt.Errorf("while reading weight tensors: %w", err)
	}
	if f != e.Format {
		return fmt.Errorf("%w: weights quantized as %v, engine uses %v", ErrInvalidConfiguration, f, e.Format)
	}
	if err := net.LoadTensors(tensors); err != nil {
		return fmt.Errorf("while restoring network: %w", err)
	}
	return nil
}

// ReadNetwork builds a network from a safetensors stream, one layer per
// activation, taking layer sizes from the stored weight shapes.
func ReadNetwork(r io.Reader, e *Engine, activations []ActivationType) (*Network, error) {
	tensors, f, err := ReadSafeTensors(r)
	if err != nil {
		return nil, fmt.Errorf("while reading weight tensors: %w", err)
	}
	if f != e.Format {
		return nil, fmt.Errorf("%w: weights quantized as %v, engine uses %v", ErrInvalidConfiguration, f, e.Format)
	}

	net := &Network{}
	for l, activation := range activations {
		w, ok := tensors[fmt.Sprintf("net.%d.weights", l)]
		if !ok {
			return nil, fmt.Errorf("no entry for net.%d.weights", l)
		}
		b, ok := tensors[fmt.Sprintf("net.%d.biases", l)]
		if !ok {
			return nil, fmt.Errorf("no entry for net.%d.biases", l)
		}
		lay, err := NewLayer(activation, w, b)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", l, err)
		}
		net.Layers = append(net.Layers, lay)
	}

	if err := net.Validate(); err != nil {
		return nil, err
	}
	return net, nil
}

func SaveNetwork(w io.Writer, e *Engine, net *Network) error {
	tensors := map[string]*AQ32{}
	net.DumpTensors(tensors)
	if err := WriteSafeTensors(w, e.Format, tensors); err != nil {
		return fmt.Errorf("while writing weight tensors: %w", err)
	}
	return nil
}
