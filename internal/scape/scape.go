// Package scape hosts the simulated environments that score chromosomes.
package scape

import (
	"context"
	"fmt"
	"math/rand"

	"ophion/internal/scapeid"
	"ophion/internal/snake"
)

type Fitness float64

type Trace map[string]any

// Scape scores one chromosome by driving a full simulated episode with it.
// Every stochastic choice of the episode is drawn from rng, so equal seeds
// reproduce equal scores.
type Scape interface {
	Name() string
	Evaluate(ctx context.Context, genes []float64, rng *rand.Rand) (Fitness, Trace, error)
}

// Frame is the visible state after one tick, handed to observers. Body
// aliases the live snake storage and is only valid for the duration of the
// callback.
type Frame struct {
	Step    int
	Eaten   int
	Head    snake.Position
	Body    []snake.Segment
	Food    snake.Position
	Outcome snake.Outcome
}

// Observer receives every tick of an episode.
type Observer func(Frame)

// ObservedScape optionally exposes per-tick frames for replay and
// visualization flows.
type ObservedScape interface {
	Scape
	EvaluateObserved(ctx context.Context, genes []float64, rng *rand.Rand, obs Observer) (Fitness, Trace, error)
}

// New builds a scape by name. Aliases are normalized first, and the empty
// name selects the snake scape.
func New(name string, cfg Config) (Scape, error) {
	switch scapeid.Normalize(name) {
	case "", SnakeScapeName:
		return NewSnakeScape(cfg)
	default:
		return nil, fmt.Errorf("unknown scape %q (available: %s)", name, SnakeScapeName)
	}
}
