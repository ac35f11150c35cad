package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ophion/internal/config"
	"ophion/internal/replay"
	"ophion/internal/stats"
	"ophion/internal/storage"
)

func testTrainingConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	cfg.Run.Generations = 2
	cfg.Run.Workers = 2
	cfg.Run.Seed = 7
	cfg.Evolution.Population = 6
	cfg.Network.LayerSizes = []int{32, 6, 4}
	cfg.Network.Activations = []string{"relu", "softmax"}
	cfg.Episode.StallCap = 20
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return cfg
}

func TestNewTrainerValidation(t *testing.T) {
	cfg := testTrainingConfig(t)
	if _, err := NewTrainer(Options{Config: cfg}); err == nil {
		t.Fatal("nil store accepted")
	}
	if _, err := NewTrainer(Options{Store: storage.NewMemoryStore()}); err == nil {
		t.Fatal("nil config accepted")
	}

	bad := testTrainingConfig(t)
	bad.Network.LayerSizes = []int{16, 6, 4}
	if _, err := NewTrainer(Options{Store: storage.NewMemoryStore(), Config: bad}); err == nil {
		t.Fatal("network with wrong input size accepted")
	}
}

func TestTrainerRunProducesReelAndBookkeeping(t *testing.T) {
	cfg := testTrainingConfig(t)
	store := storage.NewMemoryStore()
	artifacts := t.TempDir()

	var updates []Update
	trainer, err := NewTrainer(Options{
		Store:        store,
		Config:       cfg,
		ArtifactsDir: artifacts,
		OnGeneration: func(u Update) { updates = append(updates, u) },
	})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}

	ctx := context.Background()
	result, err := trainer.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.RunID == "" {
		t.Fatal("empty run id")
	}
	if got := result.Reel.Len(); got != 2 {
		t.Fatalf("reel length: got=%d want=2", got)
	}
	if len(result.BestByGeneration) != 2 || len(result.Diagnostics) != 2 {
		t.Fatalf("history lengths: best=%d diag=%d want=2", len(result.BestByGeneration), len(result.Diagnostics))
	}
	for i, c := range result.Reel.Champions {
		if c.Generation != i+1 {
			t.Fatalf("champion %d generation: got=%d want=%d", i, c.Generation, i+1)
		}
		if c.Score != result.BestByGeneration[i] {
			t.Fatalf("champion %d score: got=%v want=%v", i, c.Score, result.BestByGeneration[i])
		}
		if len(c.Genes) != result.Reel.Spec.WeightCount() {
			t.Fatalf("champion %d gene count: got=%d want=%d", i, len(c.Genes), result.Reel.Spec.WeightCount())
		}
	}
	if result.FinalBest != result.BestByGeneration[1] {
		t.Fatalf("final best: got=%v want=%v", result.FinalBest, result.BestByGeneration[1])
	}
	if len(updates) != 2 || updates[1].Generation != 2 || updates[1].Generations != 2 {
		t.Fatalf("progress updates: %+v", updates)
	}

	run, ok, err := store.GetRun(ctx, result.RunID)
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if run.Scape != "snake" || run.Generations != 2 || run.GenomeLength != 216 {
		t.Fatalf("unexpected run record: %+v", run)
	}
	history, ok, err := store.GetFitnessHistory(ctx, result.RunID)
	if err != nil || !ok {
		t.Fatalf("get history: ok=%v err=%v", ok, err)
	}
	if len(history) != 2 {
		t.Fatalf("stored history length: got=%d want=2", len(history))
	}
	diags, ok, err := store.GetGenerationDiagnostics(ctx, result.RunID)
	if err != nil || !ok {
		t.Fatalf("get diagnostics: ok=%v err=%v", ok, err)
	}
	if len(diags) != 2 || diags[0].Generation != 1 {
		t.Fatalf("stored diagnostics: %+v", diags)
	}
	summary, ok, err := store.GetScapeSummary(ctx, "snake")
	if err != nil || !ok {
		t.Fatalf("get scape summary: ok=%v err=%v", ok, err)
	}
	if summary.BestFitness != result.FinalBest {
		t.Fatalf("scape summary best: got=%v want=%v", summary.BestFitness, result.FinalBest)
	}

	for _, file := range []string{"config.json", "fitness_history.json", "generation_diagnostics.json", "telemetry.csv"} {
		if _, err := os.Stat(filepath.Join(artifacts, result.RunID, file)); err != nil {
			t.Fatalf("artifact %s: %v", file, err)
		}
	}
	index, err := stats.ListRunIndex(artifacts)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(index) != 1 || index[0].RunID != result.RunID {
		t.Fatalf("run index: %+v", index)
	}

	runCfg, ok, err := stats.ReadRunConfig(artifacts, result.RunID)
	if err != nil || !ok {
		t.Fatalf("read run config: ok=%v err=%v", ok, err)
	}
	wantReward := []float64{1, 2, 500, 2.1, 1.2, 0.25, 1.3}
	if !reflect.DeepEqual(runCfg.Reward, wantReward) {
		t.Fatalf("reward coefficients in config snapshot: got=%v want=%v", runCfg.Reward, wantReward)
	}
	if runCfg.StallCap != 20 {
		t.Fatalf("stall cap in config snapshot: got=%d want=20", runCfg.StallCap)
	}
}

func TestTrainerReplayReproducesScores(t *testing.T) {
	cfg := testTrainingConfig(t)
	trainer, err := NewTrainer(Options{
		Store:        storage.NewMemoryStore(),
		Config:       cfg,
		ArtifactsDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	result, err := trainer.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	player, err := replay.NewPlayer(result.Reel, trainer.Scape())
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	replayed, err := player.PlayAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("play all: %v", err)
	}
	for _, res := range replayed {
		if !res.Matches() {
			t.Fatalf("generation %d replay diverged: trained=%v replayed=%v", res.Generation, res.Trained, res.Replayed)
		}
	}
}

func TestTrainerDeterministicAcrossRuns(t *testing.T) {
	run := func() Result {
		trainer, err := NewTrainer(Options{
			Store:        storage.NewMemoryStore(),
			Config:       testTrainingConfig(t),
			ArtifactsDir: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("new trainer: %v", err)
		}
		result, err := trainer.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return result
	}

	a, b := run(), run()
	for i := range a.BestByGeneration {
		if a.BestByGeneration[i] != b.BestByGeneration[i] {
			t.Fatalf("generation %d diverged across equal seeds: %v vs %v", i+1, a.BestByGeneration[i], b.BestByGeneration[i])
		}
	}
}

func TestTrainerCancellation(t *testing.T) {
	trainer, err := NewTrainer(Options{
		Store:        storage.NewMemoryStore(),
		Config:       testTrainingConfig(t),
		ArtifactsDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := trainer.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("error: got=%v want=%v", err, context.Canceled)
	}
}

func TestTrainerHonorsExplicitRunID(t *testing.T) {
	trainer, err := NewTrainer(Options{
		Store:        storage.NewMemoryStore(),
		Config:       testTrainingConfig(t),
		ArtifactsDir: t.TempDir(),
		RunID:        "run-explicit",
	})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	if trainer.RunID() != "run-explicit" {
		t.Fatalf("run id: got=%s want=run-explicit", trainer.RunID())
	}
}
