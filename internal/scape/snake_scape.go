package scape

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"ophion/internal/nn"
	"ophion/internal/sense"
	"ophion/internal/snake"
)

const SnakeScapeName = "snake"

// DefaultStallCap is how many consecutive foodless steps end an episode.
const DefaultStallCap = 150

// spawnMargin keeps the snake's starting head away from every wall.
const spawnMargin = 2

// RewardConfig holds the reward-shaping coefficients. The formula is
// configuration, not contract:
//
//	score = StepReward*steps + AppleBase^eaten + AppleBonus*eaten^AppleBonusExp
//	      - eaten^PenaltyAppleExp * (steps*PenaltyStepScale)^PenaltyStepExp
//
// floored at zero.
type RewardConfig struct {
	StepReward       float64
	AppleBase        float64
	AppleBonus       float64
	AppleBonusExp    float64
	PenaltyAppleExp  float64
	PenaltyStepScale float64
	PenaltyStepExp   float64
}

func DefaultReward() RewardConfig {
	return RewardConfig{
		StepReward:       1,
		AppleBase:        2,
		AppleBonus:       500,
		AppleBonusExp:    2.1,
		PenaltyAppleExp:  1.2,
		PenaltyStepScale: 0.25,
		PenaltyStepExp:   1.3,
	}
}

// Score reduces one finished episode to a scalar fitness.
func (r RewardConfig) Score(steps, eaten int) float64 {
	s := float64(steps)
	e := float64(eaten)
	score := r.StepReward*s +
		math.Pow(r.AppleBase, e) +
		r.AppleBonus*math.Pow(e, r.AppleBonusExp) -
		math.Pow(e, r.PenaltyAppleExp)*math.Pow(s*r.PenaltyStepScale, r.PenaltyStepExp)
	if score < 0 {
		return 0
	}
	return score
}

// Config describes one snake evaluation environment. Zero values for
// StallCap and Reward take the package defaults.
type Config struct {
	Bounds   snake.Bounds
	StallCap int
	MaxSteps int // 0 = unbounded
	Net      nn.Spec
	Reward   RewardConfig
}

// SnakeScape runs full games of grid snake and scores the outcome. Safe for
// concurrent Evaluate calls: every episode builds its own network, encoder
// and simulation state.
type SnakeScape struct {
	cfg Config
}

func NewSnakeScape(cfg Config) (*SnakeScape, error) {
	if cfg.StallCap == 0 {
		cfg.StallCap = DefaultStallCap
	}
	if cfg.Reward == (RewardConfig{}) {
		cfg.Reward = DefaultReward()
	}
	minSide := 2*spawnMargin + 1
	if cfg.Bounds.Width < minSide || cfg.Bounds.Height < minSide {
		return nil, fmt.Errorf("grid %dx%d too small, need at least %dx%d for the spawn margin",
			cfg.Bounds.Width, cfg.Bounds.Height, minSide, minSide)
	}
	if cfg.StallCap < 1 {
		return nil, fmt.Errorf("stall cap must be positive, got %d", cfg.StallCap)
	}
	if cfg.MaxSteps < 0 {
		return nil, fmt.Errorf("max steps must not be negative, got %d", cfg.MaxSteps)
	}
	if err := cfg.Net.Validate(); err != nil {
		return nil, err
	}
	if got := cfg.Net.InputSize(); got != sense.FeatureCount {
		return nil, fmt.Errorf("network input size %d does not match the %d sensor features", got, sense.FeatureCount)
	}
	if got := cfg.Net.OutputSize(); got != 4 {
		return nil, fmt.Errorf("network output size %d does not match the 4 movement directions", got)
	}
	return &SnakeScape{cfg: cfg}, nil
}

func (s *SnakeScape) Name() string { return SnakeScapeName }

func (s *SnakeScape) Evaluate(ctx context.Context, genes []float64, rng *rand.Rand) (Fitness, Trace, error) {
	return s.EvaluateObserved(ctx, genes, rng, nil)
}

// EvaluateObserved runs one episode and reports every tick to obs when it
// is non-nil.
func (s *SnakeScape) EvaluateObserved(ctx context.Context, genes []float64, rng *rand.Rand, obs Observer) (Fitness, Trace, error) {
	net, err := nn.NewWithWeights(genes, s.cfg.Net)
	if err != nil {
		return 0, nil, err
	}
	return s.PlayEpisode(ctx, net, rng, obs)
}

// PlayEpisode drives one full game with an already-built network. It is the
// single episode loop behind both training evaluation and champion replay;
// replay flows reuse one network across champions by swapping weights.
func (s *SnakeScape) PlayEpisode(ctx context.Context, net *nn.Network, rng *rand.Rand, obs Observer) (Fitness, Trace, error) {
	if rng == nil {
		return 0, nil, errors.New("random source is required")
	}
	if net == nil {
		return 0, nil, errors.New("network is required")
	}
	enc, err := sense.New(s.cfg.Bounds)
	if err != nil {
		return 0, nil, err
	}

	sn := snake.New(spawnHead(rng, s.cfg.Bounds))
	food, ok := spawnFood(rng, s.cfg.Bounds, sn)
	if !ok {
		return 0, nil, fmt.Errorf("no free cell to place food on %dx%d grid", s.cfg.Bounds.Width, s.cfg.Bounds.Height)
	}

	var steps, eaten, sinceFood int
	reason := ""
	for reason == "" {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		out, err := net.Infer(enc.Encode(sn, food))
		if err != nil {
			return 0, nil, err
		}
		sn.Steer(chooseDirection(out))
		outcome := sn.Advance(food, s.cfg.Bounds)
		steps++
		sinceFood++

		switch outcome {
		case snake.AteFood:
			eaten++
			sinceFood = 0
			if food, ok = spawnFood(rng, s.cfg.Bounds, sn); !ok {
				reason = "board-full"
			}
		case snake.HitBorder, snake.HitSelf:
			reason = outcome.String()
		}
		if obs != nil {
			obs(Frame{Step: steps, Eaten: eaten, Head: sn.Head(), Body: sn.Body(), Food: food, Outcome: outcome})
		}
		if reason == "" && sinceFood > s.cfg.StallCap {
			reason = "stalled"
		}
		if reason == "" && s.cfg.MaxSteps > 0 && steps >= s.cfg.MaxSteps {
			reason = "step-budget"
		}
	}

	score := s.cfg.Reward.Score(steps, eaten)
	return Fitness(score), Trace{
		"steps":   steps,
		"eaten":   eaten,
		"outcome": reason,
	}, nil
}

// spawnHead picks a start cell uniformly, at least spawnMargin cells from
// every wall.
func spawnHead(rng *rand.Rand, b snake.Bounds) snake.Position {
	return snake.Position{
		X: rng.Intn(b.Width-2*spawnMargin) + spawnMargin,
		Y: rng.Intn(b.Height-2*spawnMargin) + spawnMargin,
	}
}

// spawnFood picks a cell uniformly among those the snake does not occupy.
func spawnFood(rng *rand.Rand, b snake.Bounds, s *snake.Snake) (snake.Position, bool) {
	free := make([]snake.Position, 0, b.Width*b.Height-s.Len())
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			p := snake.Position{X: x, Y: y}
			if !s.Occupies(p) {
				free = append(free, p)
			}
		}
	}
	if len(free) == 0 {
		return snake.Position{}, false
	}
	return free[rng.Intn(len(free))], true
}

// chooseDirection reads the output activations as headings in declaration
// order and picks the strongest, first index winning ties.
func chooseDirection(out []float64) snake.Direction {
	best := 0
	for i := 1; i < len(out); i++ {
		if out[i] > out[best] {
			best = i
		}
	}
	return snake.Direction(best)
}
