package nn

import (
	"errors"
	"fmt"
)

var (
	ErrShapeMismatch       = errors.New("network shape mismatch")
	ErrWeightCountMismatch = errors.New("weight count mismatch")
	ErrInputSizeMismatch   = errors.New("input size mismatch")
)

// Spec describes a fully connected feed-forward stack: ordered layer sizes
// plus one activation per weighted layer.
type Spec struct {
	LayerSizes  []int
	Activations []Activation
}

func (s Spec) Validate() error {
	if len(s.LayerSizes) < 2 {
		return fmt.Errorf("%w: need at least 2 layers, got %d", ErrShapeMismatch, len(s.LayerSizes))
	}
	for i, size := range s.LayerSizes {
		if size < 1 {
			return fmt.Errorf("%w: layer %d has size %d", ErrShapeMismatch, i, size)
		}
	}
	if len(s.Activations) != len(s.LayerSizes)-1 {
		return fmt.Errorf("%w: %d activations for %d layers", ErrShapeMismatch, len(s.Activations), len(s.LayerSizes))
	}
	return nil
}

// WeightCount returns the flat buffer length the spec requires: the sum of
// sizes[i]*sizes[i+1] over all weighted layers. There are no bias terms.
func (s Spec) WeightCount() int {
	total := 0
	for i := 0; i+1 < len(s.LayerSizes); i++ {
		total += s.LayerSizes[i] * s.LayerSizes[i+1]
	}
	return total
}

func (s Spec) InputSize() int {
	if len(s.LayerSizes) == 0 {
		return 0
	}
	return s.LayerSizes[0]
}

func (s Spec) OutputSize() int {
	if len(s.LayerSizes) == 0 {
		return 0
	}
	return s.LayerSizes[len(s.LayerSizes)-1]
}

func (s Spec) Clone() Spec {
	return Spec{
		LayerSizes:  append([]int(nil), s.LayerSizes...),
		Activations: append([]Activation(nil), s.Activations...),
	}
}

// Network is a feed-forward net over one flat weight buffer, interpreted as
// consecutive row-major chunks: within a layer, one row per output neuron,
// row length equal to the previous layer size.
//
// A Network reuses internal scratch buffers across Infer calls and is not
// safe for concurrent use.
type Network struct {
	spec    Spec
	weights []float64

	front []float64
	back  []float64
}

// New builds a network with a zeroed weight buffer of the required length.
func New(spec Spec) (*Network, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	widest := 0
	for _, size := range spec.LayerSizes {
		if size > widest {
			widest = size
		}
	}
	return &Network{
		spec:    spec.Clone(),
		weights: make([]float64, spec.WeightCount()),
		front:   make([]float64, widest),
		back:    make([]float64, widest),
	}, nil
}

// NewWithWeights builds a network and copies the supplied flat weights into it.
func NewWithWeights(weights []float64, spec Spec) (*Network, error) {
	n, err := New(spec)
	if err != nil {
		return nil, err
	}
	if err := n.UpdateWeights(weights); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateWeights replaces the buffer contents in place after re-validating the
// length, so replaying many weight vectors needs no reallocation.
func (n *Network) UpdateWeights(weights []float64) error {
	if len(weights) != len(n.weights) {
		return fmt.Errorf("%w: got %d, want %d", ErrWeightCountMismatch, len(weights), len(n.weights))
	}
	copy(n.weights, weights)
	return nil
}

// Infer runs a forward pass and returns a fresh output vector of the declared
// last-layer length.
func (n *Network) Infer(input []float64) ([]float64, error) {
	if len(input) != n.spec.InputSize() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInputSizeMismatch, len(input), n.spec.InputSize())
	}

	cur := n.front[:len(input)]
	copy(cur, input)
	next := n.back

	offset := 0
	for layer := 0; layer+1 < len(n.spec.LayerSizes); layer++ {
		inSize := n.spec.LayerSizes[layer]
		outSize := n.spec.LayerSizes[layer+1]
		out := next[:outSize]
		for j := 0; j < outSize; j++ {
			row := n.weights[offset : offset+inSize]
			sum := 0.0
			for i, x := range cur {
				sum += x * row[i]
			}
			out[j] = sum
			offset += inSize
		}
		n.spec.Activations[layer].Apply(out)
		cur, next = out, cur[:cap(cur)]
	}

	result := make([]float64, len(cur))
	copy(result, cur)
	return result, nil
}

// Spec returns a copy of the network's shape description.
func (n *Network) Spec() Spec {
	return n.spec.Clone()
}
