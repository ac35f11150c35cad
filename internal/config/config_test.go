package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ophion/internal/nn"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Run.Generations != 2000 {
		t.Fatalf("generations: got=%d want=2000", cfg.Run.Generations)
	}
	if cfg.Grid.Width != 10 || cfg.Grid.Height != 10 {
		t.Fatalf("grid: got=%dx%d want=10x10", cfg.Grid.Width, cfg.Grid.Height)
	}
	if cfg.Evolution.Population != 500 {
		t.Fatalf("population: got=%d want=500", cfg.Evolution.Population)
	}
	if !reflect.DeepEqual(cfg.Network.LayerSizes, []int{32, 20, 12, 4}) {
		t.Fatalf("layer sizes: got=%v", cfg.Network.LayerSizes)
	}
	if cfg.Episode.StallCap != 150 {
		t.Fatalf("stall cap: got=%d want=150", cfg.Episode.StallCap)
	}
	if cfg.Reward.AppleBonus != 500 {
		t.Fatalf("apple bonus: got=%v want=500", cfg.Reward.AppleBonus)
	}
}

func TestLoadOverlaysUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	overlay := "run:\n  generations: 25\n  seed: 9\nevolution:\n  population: 40\n"
	if err := os.WriteFile(path, []byte(overlay), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Run.Generations != 25 || cfg.Run.Seed != 9 {
		t.Fatalf("run overlay not applied: %+v", cfg.Run)
	}
	if cfg.Evolution.Population != 40 {
		t.Fatalf("population overlay not applied: %d", cfg.Evolution.Population)
	}
	// Untouched sections keep defaults.
	if cfg.Evolution.CrossingProb != 0.9 {
		t.Fatalf("crossing prob changed: %v", cfg.Evolution.CrossingProb)
	}
	if cfg.Grid.Width != 10 {
		t.Fatalf("grid width changed: %d", cfg.Grid.Width)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing config file accepted")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero generations", func(c *Config) { c.Run.Generations = 0 }},
		{"zero workers", func(c *Config) { c.Run.Workers = 0 }},
		{"zero grid", func(c *Config) { c.Grid.Width = 0 }},
		{"zero population", func(c *Config) { c.Evolution.Population = 0 }},
		{"crossing above one", func(c *Config) { c.Evolution.CrossingProb = 1.5 }},
		{"negative mutation", func(c *Config) { c.Evolution.MutationProb = -0.1 }},
		{"negative mutation range", func(c *Config) { c.Evolution.MutationRange = -1 }},
		{"empty gene range", func(c *Config) { c.Evolution.GeneMin, c.Evolution.GeneMax = 1, 1 }},
		{"zero stall cap", func(c *Config) { c.Episode.StallCap = 0 }},
		{"negative max steps", func(c *Config) { c.Episode.MaxSteps = -1 }},
		{"unknown activation", func(c *Config) { c.Network.Activations[0] = "tanh" }},
		{"activation count mismatch", func(c *Config) { c.Network.Activations = c.Network.Activations[:1] }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("load defaults: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("invalid config accepted")
			}
		})
	}
}

func TestBuildNetworkSpec(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	spec, err := cfg.BuildNetworkSpec()
	if err != nil {
		t.Fatalf("build spec: %v", err)
	}
	if spec.WeightCount() != 928 {
		t.Fatalf("weight count: got=%d want=928", spec.WeightCount())
	}
	want := []nn.Activation{nn.ReLU, nn.ReLU, nn.Softmax}
	if !reflect.DeepEqual(spec.Activations, want) {
		t.Fatalf("activations: got=%v want=%v", spec.Activations, want)
	}
}

func TestBuildScapeConfig(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	sc, err := cfg.BuildScapeConfig()
	if err != nil {
		t.Fatalf("build scape config: %v", err)
	}
	if sc.Bounds.Width != 10 || sc.Bounds.Height != 10 {
		t.Fatalf("bounds: got=%+v", sc.Bounds)
	}
	if sc.StallCap != 150 {
		t.Fatalf("stall cap: got=%d want=150", sc.StallCap)
	}
	if sc.Reward.AppleBonusExp != 2.1 {
		t.Fatalf("reward: got=%+v", sc.Reward)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ophion.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("write default: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load written default: %v", err)
	}
	if cfg.Evolution.Population != 500 {
		t.Fatalf("population: got=%d want=500", cfg.Evolution.Population)
	}
	if err := WriteDefault(path); err == nil {
		t.Fatal("overwrite of existing file accepted")
	}
}
