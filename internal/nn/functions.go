package nn

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnknownActivation = errors.New("unknown activation")

// Activation selects a layer activation from a closed set. A closed set keeps
// configuration parsing exhaustive and lets layers apply activations without
// boxed function values.
type Activation int

const (
	Identity Activation = iota
	ReLU
	Softmax
)

func (a Activation) String() string {
	switch a {
	case Identity:
		return "identity"
	case ReLU:
		return "relu"
	case Softmax:
		return "softmax"
	default:
		return fmt.Sprintf("activation(%d)", int(a))
	}
}

// ParseActivation maps a configuration name onto its Activation.
func ParseActivation(name string) (Activation, error) {
	switch name {
	case "identity":
		return Identity, nil
	case "relu":
		return ReLU, nil
	case "softmax":
		return Softmax, nil
	default:
		return 0, fmt.Errorf("%w: %q (want identity, relu or softmax)", ErrUnknownActivation, name)
	}
}

// Apply transforms the vector in place.
//
// Softmax exponentiates the raw pre-activations with no max-subtraction;
// large inputs can overflow. That matches the historical behavior this
// trainer reproduces and is covered by the tolerance of its tests.
func (a Activation) Apply(v []float64) {
	switch a {
	case Identity:
	case ReLU:
		for i, x := range v {
			if x < 0 {
				v[i] = 0
			}
		}
	case Softmax:
		sum := 0.0
		for i, x := range v {
			e := math.Exp(x)
			v[i] = e
			sum += e
		}
		for i := range v {
			v[i] /= sum
		}
	}
}
