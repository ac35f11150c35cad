package scape

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"ophion/internal/nn"
	"ophion/internal/sense"
	"ophion/internal/snake"
)

func testSpec() nn.Spec {
	return nn.Spec{
		LayerSizes:  []int{sense.FeatureCount, 4},
		Activations: []nn.Activation{nn.Softmax},
	}
}

func randomGenes(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	g := make([]float64, n)
	for i := range g {
		g[i] = rng.Float64()*2 - 1
	}
	return g
}

func TestRewardScore(t *testing.T) {
	r := DefaultReward()
	tests := []struct {
		name  string
		steps int
		eaten int
		want  float64
	}{
		// With nothing eaten the defaults collapse to steps + 1.
		{name: "no steps", steps: 0, eaten: 0, want: 1},
		{name: "ten steps", steps: 10, eaten: 0, want: 11},
		{name: "stall cap survivor", steps: 151, eaten: 0, want: 152},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Score(tc.steps, tc.eaten); got != tc.want {
				t.Fatalf("score: got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestRewardScoreEatingPays(t *testing.T) {
	r := DefaultReward()
	if ate, starved := r.Score(50, 1), r.Score(50, 0); ate <= starved {
		t.Fatalf("eating lowered the score: ate=%v starved=%v", ate, starved)
	}
	if more, less := r.Score(80, 3), r.Score(80, 2); more <= less {
		t.Fatalf("third apple lowered the score: got=%v prev=%v", more, less)
	}
}

func TestRewardScoreFloorsAtZero(t *testing.T) {
	r := RewardConfig{PenaltyAppleExp: 1, PenaltyStepScale: 1, PenaltyStepExp: 1}
	if got := r.Score(10, 2); got != 0 {
		t.Fatalf("score: got=%v want=0", got)
	}
}

func TestNewSnakeScapeValidation(t *testing.T) {
	base := func() Config {
		return Config{Bounds: snake.Bounds{Width: 10, Height: 10}, Net: testSpec()}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		hasErr bool
	}{
		{name: "defaults fill in", mutate: func(*Config) {}, hasErr: false},
		{name: "narrow grid", mutate: func(c *Config) { c.Bounds.Width = 4 }, hasErr: true},
		{name: "short grid", mutate: func(c *Config) { c.Bounds.Height = 3 }, hasErr: true},
		{name: "negative stall cap", mutate: func(c *Config) { c.StallCap = -1 }, hasErr: true},
		{name: "negative step budget", mutate: func(c *Config) { c.MaxSteps = -5 }, hasErr: true},
		{name: "wrong input width", mutate: func(c *Config) { c.Net.LayerSizes[0] = 16 }, hasErr: true},
		{name: "wrong output width", mutate: func(c *Config) { c.Net.LayerSizes[1] = 3 }, hasErr: true},
		{name: "invalid network spec", mutate: func(c *Config) { c.Net.Activations = nil }, hasErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			_, err := NewSnakeScape(cfg)
			if hasErr := err != nil; hasErr != tc.hasErr {
				t.Fatalf("error: got=%v wantErr=%v", err, tc.hasErr)
			}
		})
	}
}

func TestNewSnakeScapeBadSpecError(t *testing.T) {
	cfg := Config{Bounds: snake.Bounds{Width: 10, Height: 10}, Net: testSpec()}
	cfg.Net.Activations = nil
	if _, err := NewSnakeScape(cfg); !errors.Is(err, nn.ErrShapeMismatch) {
		t.Fatalf("error: got=%v want=%v", err, nn.ErrShapeMismatch)
	}
}

func TestEvaluateDeterministicPerSeed(t *testing.T) {
	s, err := NewSnakeScape(Config{Bounds: snake.Bounds{Width: 10, Height: 10}, Net: testSpec()})
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}
	genes := randomGenes(3, testSpec().WeightCount())

	first, traceA, err := s.Evaluate(context.Background(), genes, rand.New(rand.NewSource(21)))
	if err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	second, traceB, err := s.Evaluate(context.Background(), genes, rand.New(rand.NewSource(21)))
	if err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	if first != second {
		t.Fatalf("fitness diverged across equal seeds: got=%v want=%v", second, first)
	}
	for _, key := range []string{"steps", "eaten", "outcome"} {
		if traceA[key] != traceB[key] {
			t.Fatalf("trace %q diverged: got=%v want=%v", key, traceB[key], traceA[key])
		}
	}
}

func TestEvaluateStallCapBoundsEpisode(t *testing.T) {
	stall := 10
	s, err := NewSnakeScape(Config{
		Bounds:   snake.Bounds{Width: 12, Height: 12},
		StallCap: stall,
		Net:      testSpec(),
	})
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}
	for seed := int64(1); seed <= 5; seed++ {
		genes := randomGenes(seed, testSpec().WeightCount())
		_, trace, err := s.Evaluate(context.Background(), genes, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		steps := trace["steps"].(int)
		eaten := trace["eaten"].(int)
		// Every foodless stretch is at most stall+1 ticks.
		if limit := (eaten + 1) * (stall + 1); steps > limit {
			t.Fatalf("seed %d: steps=%d exceeds stall limit %d (eaten=%d)", seed, steps, limit, eaten)
		}
		switch trace["outcome"] {
		case "hit-border", "hit-self", "stalled":
		default:
			t.Fatalf("seed %d: unexpected outcome %v", seed, trace["outcome"])
		}
	}
}

func TestEvaluateStepBudget(t *testing.T) {
	s, err := NewSnakeScape(Config{
		Bounds:   snake.Bounds{Width: 10, Height: 10},
		MaxSteps: 2,
		Net:      testSpec(),
	})
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}
	// Spawning two cells clear of every wall, no policy can die in two ticks.
	for seed := int64(1); seed <= 5; seed++ {
		genes := randomGenes(seed, testSpec().WeightCount())
		_, trace, err := s.Evaluate(context.Background(), genes, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if got := trace["steps"].(int); got != 2 {
			t.Fatalf("seed %d steps: got=%d want=2", seed, got)
		}
		if got := trace["outcome"]; got != "step-budget" {
			t.Fatalf("seed %d outcome: got=%v want=step-budget", seed, got)
		}
	}
}

func TestEvaluateObserverSeesEveryTick(t *testing.T) {
	s, err := NewSnakeScape(Config{
		Bounds:   snake.Bounds{Width: 10, Height: 10},
		MaxSteps: 6,
		Net:      testSpec(),
	})
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}
	genes := randomGenes(9, testSpec().WeightCount())

	blind, _, err := s.Evaluate(context.Background(), genes, rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatalf("blind evaluate: %v", err)
	}

	var frames []Frame
	bounds := snake.Bounds{Width: 10, Height: 10}
	watched, trace, err := s.EvaluateObserved(context.Background(), genes, rand.New(rand.NewSource(4)), func(f Frame) {
		if len(f.Body) == 0 {
			t.Fatalf("frame %d has empty body", f.Step)
		}
		if f.Outcome == snake.Running && !bounds.Contains(f.Head) {
			t.Fatalf("frame %d head %v out of bounds while running", f.Step, f.Head)
		}
		frames = append(frames, Frame{Step: f.Step, Eaten: f.Eaten, Head: f.Head, Food: f.Food, Outcome: f.Outcome})
	})
	if err != nil {
		t.Fatalf("observed evaluate: %v", err)
	}
	if watched != blind {
		t.Fatalf("observer changed the score: got=%v want=%v", watched, blind)
	}
	if got := trace["steps"].(int); got != len(frames) {
		t.Fatalf("frame count: got=%d want=%d", len(frames), got)
	}
	for i, f := range frames {
		if f.Step != i+1 {
			t.Fatalf("frame %d step: got=%d want=%d", i, f.Step, i+1)
		}
	}
}

func TestEvaluateRejectsNilRand(t *testing.T) {
	s, err := NewSnakeScape(Config{Bounds: snake.Bounds{Width: 10, Height: 10}, Net: testSpec()})
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}
	if _, _, err := s.Evaluate(context.Background(), randomGenes(1, testSpec().WeightCount()), nil); err == nil {
		t.Fatalf("expected error for nil random source")
	}
}

func TestEvaluateRejectsWrongGeneCount(t *testing.T) {
	s, err := NewSnakeScape(Config{Bounds: snake.Bounds{Width: 10, Height: 10}, Net: testSpec()})
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}
	_, _, err = s.Evaluate(context.Background(), make([]float64, 7), rand.New(rand.NewSource(1)))
	if !errors.Is(err, nn.ErrWeightCountMismatch) {
		t.Fatalf("error: got=%v want=%v", err, nn.ErrWeightCountMismatch)
	}
}

func TestEvaluateHonorsCancellation(t *testing.T) {
	s, err := NewSnakeScape(Config{Bounds: snake.Bounds{Width: 10, Height: 10}, Net: testSpec()})
	if err != nil {
		t.Fatalf("new scape: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = s.Evaluate(ctx, randomGenes(1, testSpec().WeightCount()), rand.New(rand.NewSource(1)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error: got=%v want=%v", err, context.Canceled)
	}
}

func TestChooseDirection(t *testing.T) {
	tests := []struct {
		name string
		out  []float64
		want snake.Direction
	}{
		{name: "up", out: []float64{1, 0, 0, 0}, want: snake.Up},
		{name: "right", out: []float64{0.1, 0.9, 0.2, 0.3}, want: snake.Right},
		{name: "down", out: []float64{0, 0.2, 0.5, 0.3}, want: snake.Down},
		{name: "left", out: []float64{0, 0.2, 0.1, 0.7}, want: snake.Left},
		{name: "tie picks first", out: []float64{0.5, 0.5, 0.5, 0.5}, want: snake.Up},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := chooseDirection(tc.out); got != tc.want {
				t.Fatalf("direction: got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestSpawnHeadRespectsMargin(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	b := snake.Bounds{Width: 9, Height: 6}
	for i := 0; i < 200; i++ {
		p := spawnHead(rng, b)
		if p.X < spawnMargin || p.X > b.Width-1-spawnMargin || p.Y < spawnMargin || p.Y > b.Height-1-spawnMargin {
			t.Fatalf("spawn %d outside margin: %v", i, p)
		}
	}
}

func TestSpawnFoodAvoidsSnake(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	b := snake.Bounds{Width: 6, Height: 6}
	s := snake.New(snake.Position{X: 3, Y: 3})
	for i := 0; i < 200; i++ {
		p, ok := spawnFood(rng, b, s)
		if !ok {
			t.Fatalf("spawn %d found no free cell", i)
		}
		if s.Occupies(p) {
			t.Fatalf("spawn %d landed on the snake: %v", i, p)
		}
		if !b.Contains(p) {
			t.Fatalf("spawn %d out of bounds: %v", i, p)
		}
	}
}

func TestScapeFactory(t *testing.T) {
	cfg := Config{Bounds: snake.Bounds{Width: 10, Height: 10}, Net: testSpec()}
	tests := []struct {
		name    string
		request string
		hasErr  bool
	}{
		{name: "snake by name", request: "snake", hasErr: false},
		{name: "default", request: "", hasErr: false},
		{name: "unknown", request: "xor", hasErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(tc.request, cfg)
			if hasErr := err != nil; hasErr != tc.hasErr {
				t.Fatalf("error: got=%v wantErr=%v", err, tc.hasErr)
			}
			if err == nil && s.Name() != SnakeScapeName {
				t.Fatalf("name: got=%q want=%q", s.Name(), SnakeScapeName)
			}
		})
	}
}
