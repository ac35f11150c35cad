// Package platform orchestrates full training runs: the evolution loop, the
// champion reel, run bookkeeping in the store, and artifact/telemetry output.
package platform

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"ophion/internal/config"
	"ophion/internal/evo"
	"ophion/internal/model"
	"ophion/internal/replay"
	"ophion/internal/scape"
	"ophion/internal/stats"
	"ophion/internal/storage"
)

// Update is handed to the progress callback after every completed generation.
type Update struct {
	Generation  int
	Generations int
	Diagnostics model.GenerationDiagnostics
}

type Options struct {
	Store        storage.Store
	Config       *config.Config
	ArtifactsDir string // defaults to the config's artifacts dir
	RunID        string // defaults to a fresh UUID
	Profile      string // recorded in the run artifacts only
	OnGeneration func(Update)
}

// Result is one finished training run. The reel is the in-memory output
// surface for the replay collaborator; it is never persisted.
type Result struct {
	RunID            string
	BestByGeneration []float64
	Diagnostics      []model.GenerationDiagnostics
	FinalBest        float64
	Reel             replay.Reel
}

// Trainer drives one training run to completion.
type Trainer struct {
	opts  Options
	sc    *scape.SnakeScape
	runID string
}

func NewTrainer(opts Options) (*Trainer, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	scapeCfg, err := opts.Config.BuildScapeConfig()
	if err != nil {
		return nil, err
	}
	sc, err := scape.NewSnakeScape(scapeCfg)
	if err != nil {
		return nil, err
	}
	if opts.ArtifactsDir == "" {
		opts.ArtifactsDir = opts.Config.Run.ArtifactsDir
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Trainer{opts: opts, sc: sc, runID: runID}, nil
}

func (t *Trainer) RunID() string { return t.runID }

// Run executes the configured number of generations and persists the run's
// bookkeeping. Champion chromosomes go only into the returned reel.
func (t *Trainer) Run(ctx context.Context) (Result, error) {
	cfg := t.opts.Config
	spec, err := cfg.BuildNetworkSpec()
	if err != nil {
		return Result{}, err
	}

	fitness := func(ctx context.Context, genes []float64, rng *rand.Rand) (float64, error) {
		score, _, err := t.sc.Evaluate(ctx, genes, rng)
		return float64(score), err
	}
	engine, err := evo.NewEngine(evo.Config{
		PopulationSize: cfg.Evolution.Population,
		GenomeLength:   spec.WeightCount(),
		GeneMin:        cfg.Evolution.GeneMin,
		GeneMax:        cfg.Evolution.GeneMax,
		CrossingProb:   cfg.Evolution.CrossingProb,
		MutationProb:   cfg.Evolution.MutationProb,
		MutationRange:  cfg.Evolution.MutationRange,
		Workers:        cfg.Run.Workers,
		Seed:           cfg.Run.Seed,
	}, fitness)
	if err != nil {
		return Result{}, err
	}

	if err := t.opts.Store.Init(ctx); err != nil {
		return Result{}, err
	}
	telemetry, err := stats.NewTelemetryWriter(t.opts.ArtifactsDir, t.runID)
	if err != nil {
		return Result{}, err
	}
	defer telemetry.Close()

	if err := engine.Init(ctx); err != nil {
		return Result{}, fmt.Errorf("initializing population: %w", err)
	}

	result := Result{
		RunID:            t.runID,
		BestByGeneration: make([]float64, 0, cfg.Run.Generations),
		Diagnostics:      make([]model.GenerationDiagnostics, 0, cfg.Run.Generations),
		Reel:             replay.Reel{Spec: spec},
	}
	for gen := 1; gen <= cfg.Run.Generations; gen++ {
		if err := engine.AdvanceGeneration(ctx); err != nil {
			return Result{}, fmt.Errorf("advancing generation %d: %w", gen, err)
		}

		slot, best := engine.Best()
		result.BestByGeneration = append(result.BestByGeneration, best.Fitness)
		result.Reel.Append(replay.Champion{
			Generation: gen,
			Score:      best.Fitness,
			Seed:       engine.EvalSeed(slot),
			Genes:      best.Genes,
		})

		diag := stats.Diagnostics(gen, engine.Fitnesses())
		result.Diagnostics = append(result.Diagnostics, diag)
		if err := telemetry.Append(diag); err != nil {
			return Result{}, err
		}
		if t.opts.OnGeneration != nil {
			t.opts.OnGeneration(Update{
				Generation:  gen,
				Generations: cfg.Run.Generations,
				Diagnostics: diag,
			})
		}
	}
	result.FinalBest = engine.BestScore()

	if err := t.persist(ctx, result); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (t *Trainer) persist(ctx context.Context, result Result) error {
	cfg := t.opts.Config
	spec, err := cfg.BuildNetworkSpec()
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	run := model.RunRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:            t.runID,
		CreatedAtUTC:  now.Format(time.RFC3339Nano),
		Scape:         t.sc.Name(),
		Seed:          cfg.Run.Seed,
		Population:    cfg.Evolution.Population,
		Generations:   cfg.Run.Generations,
		GenomeLength:  spec.WeightCount(),
		GridWidth:     cfg.Grid.Width,
		GridHeight:    cfg.Grid.Height,
		CrossingProb:  cfg.Evolution.CrossingProb,
		MutationProb:  cfg.Evolution.MutationProb,
		MutationRange: cfg.Evolution.MutationRange,
		FinalBest:     result.FinalBest,
	}
	if err := t.opts.Store.SaveRun(ctx, run); err != nil {
		return err
	}
	if err := t.opts.Store.SaveFitnessHistory(ctx, t.runID, result.BestByGeneration); err != nil {
		return err
	}
	if err := t.opts.Store.SaveGenerationDiagnostics(ctx, t.runID, result.Diagnostics); err != nil {
		return err
	}
	if err := t.updateScapeSummary(ctx, result.FinalBest); err != nil {
		return err
	}

	activations := make([]string, 0, len(spec.Activations))
	for _, a := range spec.Activations {
		activations = append(activations, a.String())
	}
	if _, err := stats.WriteRunArtifacts(t.opts.ArtifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:          t.runID,
			Scape:          t.sc.Name(),
			Seed:           cfg.Run.Seed,
			Workers:        cfg.Run.Workers,
			PopulationSize: cfg.Evolution.Population,
			Generations:    cfg.Run.Generations,
			GenomeLength:   spec.WeightCount(),
			GridWidth:      cfg.Grid.Width,
			GridHeight:     cfg.Grid.Height,
			LayerSizes:     append([]int(nil), spec.LayerSizes...),
			Activations:    activations,
			GeneMin:        cfg.Evolution.GeneMin,
			GeneMax:        cfg.Evolution.GeneMax,
			CrossingProb:   cfg.Evolution.CrossingProb,
			MutationProb:   cfg.Evolution.MutationProb,
			MutationRange:  cfg.Evolution.MutationRange,
			StallCap:       cfg.Episode.StallCap,
			MaxSteps:       cfg.Episode.MaxSteps,
			Reward: []float64{
				cfg.Reward.StepReward,
				cfg.Reward.AppleBase,
				cfg.Reward.AppleBonus,
				cfg.Reward.AppleBonusExp,
				cfg.Reward.PenaltyAppleExp,
				cfg.Reward.PenaltyStepScale,
				cfg.Reward.PenaltyStepExp,
			},
			Profile: t.opts.Profile,
		},
		BestByGeneration:      result.BestByGeneration,
		GenerationDiagnostics: result.Diagnostics,
		FinalBestFitness:      result.FinalBest,
	}); err != nil {
		return err
	}
	return stats.AppendRunIndex(t.opts.ArtifactsDir, stats.RunIndexEntry{
		RunID:            t.runID,
		Scape:            t.sc.Name(),
		PopulationSize:   cfg.Evolution.Population,
		Generations:      cfg.Run.Generations,
		Seed:             cfg.Run.Seed,
		Workers:          cfg.Run.Workers,
		FinalBestFitness: result.FinalBest,
		CreatedAtUTC:     now.Format(time.RFC3339Nano),
	})
}

func (t *Trainer) updateScapeSummary(ctx context.Context, fitness float64) error {
	summary, ok, err := t.opts.Store.GetScapeSummary(ctx, t.sc.Name())
	if err != nil {
		return err
	}
	if !ok {
		summary = model.ScapeSummary{
			VersionedRecord: model.VersionedRecord{
				SchemaVersion: storage.CurrentSchemaVersion,
				CodecVersion:  storage.CurrentCodecVersion,
			},
			Name:        t.sc.Name(),
			Description: "grid snake steered by an evolved feed-forward network",
		}
	}
	if fitness > summary.BestFitness {
		summary.BestFitness = fitness
	}
	return t.opts.Store.SaveScapeSummary(ctx, summary)
}

// Scape exposes the trainer's evaluation environment so replay players can
// reuse the exact episode loop training scored with.
func (t *Trainer) Scape() *scape.SnakeScape { return t.sc }
