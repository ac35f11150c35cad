// Package config loads training configuration: embedded YAML defaults with an
// optional user file overlaid, plus named hyperparameter profiles from INI.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ophion/internal/nn"
	"ophion/internal/scape"
	"ophion/internal/snake"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Run       RunConfig       `yaml:"run"`
	Grid      GridConfig      `yaml:"grid"`
	Network   NetworkConfig   `yaml:"network"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Episode   EpisodeConfig   `yaml:"episode"`
	Reward    RewardConfig    `yaml:"reward"`
}

type RunConfig struct {
	Seed         int64  `yaml:"seed"`
	Generations  int    `yaml:"generations"`
	Workers      int    `yaml:"workers"`
	Store        string `yaml:"store"`
	DBPath       string `yaml:"db_path"`
	ArtifactsDir string `yaml:"artifacts_dir"`
}

type GridConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type NetworkConfig struct {
	LayerSizes  []int    `yaml:"layer_sizes"`
	Activations []string `yaml:"activations"`
}

type EvolutionConfig struct {
	Population    int     `yaml:"population"`
	CrossingProb  float64 `yaml:"crossing_prob"`
	MutationProb  float64 `yaml:"mutation_prob"`
	MutationRange float64 `yaml:"mutation_range"`
	GeneMin       float64 `yaml:"gene_min"`
	GeneMax       float64 `yaml:"gene_max"`
}

type EpisodeConfig struct {
	StallCap int `yaml:"stall_cap"`
	MaxSteps int `yaml:"max_steps"`
}

type RewardConfig struct {
	StepReward       float64 `yaml:"step_reward"`
	AppleBase        float64 `yaml:"apple_base"`
	AppleBonus       float64 `yaml:"apple_bonus"`
	AppleBonusExp    float64 `yaml:"apple_bonus_exp"`
	PenaltyAppleExp  float64 `yaml:"penalty_apple_exp"`
	PenaltyStepScale float64 `yaml:"penalty_step_scale"`
	PenaltyStepExp   float64 `yaml:"penalty_step_exp"`
}

// Load parses the embedded defaults, then overlays the optional user file on
// top, then validates. An empty path loads pure defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Run.Generations <= 0 {
		return fmt.Errorf("run.generations must be > 0, got %d", c.Run.Generations)
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("run.workers must be > 0, got %d", c.Run.Workers)
	}
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("grid %dx%d is invalid", c.Grid.Width, c.Grid.Height)
	}
	if c.Evolution.Population <= 0 {
		return fmt.Errorf("evolution.population must be > 0, got %d", c.Evolution.Population)
	}
	if c.Evolution.CrossingProb < 0 || c.Evolution.CrossingProb > 1 {
		return fmt.Errorf("evolution.crossing_prob must be in [0, 1], got %v", c.Evolution.CrossingProb)
	}
	if c.Evolution.MutationProb < 0 || c.Evolution.MutationProb > 1 {
		return fmt.Errorf("evolution.mutation_prob must be in [0, 1], got %v", c.Evolution.MutationProb)
	}
	if c.Evolution.MutationRange < 0 {
		return fmt.Errorf("evolution.mutation_range must be >= 0, got %v", c.Evolution.MutationRange)
	}
	if c.Evolution.GeneMax <= c.Evolution.GeneMin {
		return fmt.Errorf("evolution gene range [%v, %v) is empty", c.Evolution.GeneMin, c.Evolution.GeneMax)
	}
	if c.Episode.StallCap <= 0 {
		return fmt.Errorf("episode.stall_cap must be > 0, got %d", c.Episode.StallCap)
	}
	if c.Episode.MaxSteps < 0 {
		return fmt.Errorf("episode.max_steps must be >= 0, got %d", c.Episode.MaxSteps)
	}
	if _, err := c.BuildNetworkSpec(); err != nil {
		return err
	}
	return nil
}

// BuildNetworkSpec maps the network section onto an nn.Spec, parsing the
// activation names through the closed variant.
func (c *Config) BuildNetworkSpec() (nn.Spec, error) {
	activations := make([]nn.Activation, 0, len(c.Network.Activations))
	for _, name := range c.Network.Activations {
		a, err := nn.ParseActivation(name)
		if err != nil {
			return nn.Spec{}, err
		}
		activations = append(activations, a)
	}
	spec := nn.Spec{
		LayerSizes:  append([]int(nil), c.Network.LayerSizes...),
		Activations: activations,
	}
	if err := spec.Validate(); err != nil {
		return nn.Spec{}, err
	}
	return spec, nil
}

// BuildScapeConfig assembles the evaluation environment description.
func (c *Config) BuildScapeConfig() (scape.Config, error) {
	spec, err := c.BuildNetworkSpec()
	if err != nil {
		return scape.Config{}, err
	}
	return scape.Config{
		Bounds:   snake.Bounds{Width: c.Grid.Width, Height: c.Grid.Height},
		StallCap: c.Episode.StallCap,
		MaxSteps: c.Episode.MaxSteps,
		Net:      spec,
		Reward: scape.RewardConfig{
			StepReward:       c.Reward.StepReward,
			AppleBase:        c.Reward.AppleBase,
			AppleBonus:       c.Reward.AppleBonus,
			AppleBonusExp:    c.Reward.AppleBonusExp,
			PenaltyAppleExp:  c.Reward.PenaltyAppleExp,
			PenaltyStepScale: c.Reward.PenaltyStepScale,
			PenaltyStepExp:   c.Reward.PenaltyStepExp,
		},
	}, nil
}

// WriteDefault emits the embedded defaults file for editing. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, defaultsYAML, 0o644)
}
