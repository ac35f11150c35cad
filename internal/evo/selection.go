package evo

import (
	"fmt"
	"math/rand"
)

// Selector chooses n parent slots from the scored population.
type Selector interface {
	Name() string
	Select(rng *rand.Rand, pop []Individual, n int) ([]int, error)
}

func validateSelection(rng *rand.Rand, pop []Individual, n int) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if len(pop) == 0 {
		return fmt.Errorf("population is empty")
	}
	if n < 0 {
		return fmt.Errorf("selection count must be >= 0, got %d", n)
	}
	return nil
}

// RouletteSelector implements fitness-proportionate selection: each draw in
// [0,1) lands in the first cumulative-probability bucket exceeding it. A
// fitness sum that is zero or negative leaves the probabilities undefined,
// so those populations fall back to uniform draws instead of emitting NaN.
type RouletteSelector struct{}

func (RouletteSelector) Name() string { return "roulette" }

func (RouletteSelector) Select(rng *rand.Rand, pop []Individual, n int) ([]int, error) {
	if err := validateSelection(rng, pop, n); err != nil {
		return nil, err
	}

	total := 0.0
	for _, ind := range pop {
		total += ind.Fitness
	}
	if total <= 0 {
		return UniformSelector{}.Select(rng, pop, n)
	}

	cumulative := make([]float64, len(pop))
	acc := 0.0
	for i, ind := range pop {
		acc += ind.Fitness / total
		cumulative[i] = acc
	}
	// Rounding can leave the final edge a hair under 1; every draw in [0,1)
	// must land somewhere.
	cumulative[len(cumulative)-1] = 1

	picks := make([]int, n)
	for i := range picks {
		draw := rng.Float64()
		for j, edge := range cumulative {
			if draw < edge {
				picks[i] = j
				break
			}
		}
	}
	return picks, nil
}

// UniformSelector draws parents uniformly. It is the documented fallback
// for degenerate fitness sums and usable as a selector in its own right.
type UniformSelector struct{}

func (UniformSelector) Name() string { return "uniform" }

func (UniformSelector) Select(rng *rand.Rand, pop []Individual, n int) ([]int, error) {
	if err := validateSelection(rng, pop, n); err != nil {
		return nil, err
	}
	picks := make([]int, n)
	for i := range picks {
		picks[i] = rng.Intn(len(pop))
	}
	return picks, nil
}
