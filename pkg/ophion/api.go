// Package ophion is the embedding surface for the trainer: it wires config,
// storage, and the evolution platform behind one client so callers and the
// CLI share the same code paths.
package ophion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"ophion/internal/config"
	"ophion/internal/model"
	"ophion/internal/platform"
	"ophion/internal/replay"
	"ophion/internal/scapeid"
	"ophion/internal/stats"
	"ophion/internal/storage"
)

const (
	defaultArtifactsDir = "benchmarks"
	defaultExportsDir   = "exports"
	defaultDBPath       = "ophion.db"
)

type Options struct {
	StoreKind    string // "memory" (default) or "sqlite"
	DBPath       string
	ArtifactsDir string
	ConfigPath   string // optional YAML overlay on the built-in defaults
	Profile      string // optional default profile for runs
}

type Client struct {
	store       storage.Store
	initialized bool

	artifactsDir string
	configPath   string
	profile      string
}

// RunRequest overrides the loaded configuration for one training run.
// Zero-valued fields keep the configured value.
type RunRequest struct {
	Scape        string
	Seed         int64
	SeedSet      bool // distinguishes an explicit seed 0 from "keep configured"
	Population   int
	Generations  int
	Workers      int
	Profile      string
	VerifyReplay bool
	OnGeneration func(RunProgress)
}

// RunProgress mirrors the per-generation trainer callback.
type RunProgress struct {
	Generation  int
	Generations int
	Diagnostics model.GenerationDiagnostics
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	Scape            string
	BestByGeneration []float64
	FinalBestFitness float64
	ReplayVerified   bool
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Scape            string
	Seed             int64
	Population       int
	Generations      int
	Workers          int
	FinalBestFitness float64
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type ScapeSummaryItem struct {
	Name        string
	Description string
	BestFitness float64
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		configPath:   opts.ConfigPath,
		profile:      opts.Profile,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureInit(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if name := scapeid.Normalize(req.Scape); name != "" && name != "snake" {
		return RunSummary{}, fmt.Errorf("unknown scape %q (available: snake)", req.Scape)
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return RunSummary{}, err
	}
	profile := req.Profile
	if profile == "" {
		profile = c.profile
	}
	if profile != "" {
		profiles, err := config.LoadProfiles("")
		if err != nil {
			return RunSummary{}, err
		}
		if err := cfg.ApplyProfile(profile, profiles); err != nil {
			return RunSummary{}, err
		}
	}
	if req.SeedSet {
		cfg.Run.Seed = req.Seed
	}
	if req.Population > 0 {
		cfg.Evolution.Population = req.Population
	}
	if req.Generations > 0 {
		cfg.Run.Generations = req.Generations
	}
	if req.Workers > 0 {
		cfg.Run.Workers = req.Workers
	}
	if err := cfg.Validate(); err != nil {
		return RunSummary{}, err
	}

	var onGeneration func(platform.Update)
	if req.OnGeneration != nil {
		onGeneration = func(u platform.Update) {
			req.OnGeneration(RunProgress{
				Generation:  u.Generation,
				Generations: u.Generations,
				Diagnostics: u.Diagnostics,
			})
		}
	}
	trainer, err := platform.NewTrainer(platform.Options{
		Store:        c.store,
		Config:       cfg,
		ArtifactsDir: c.artifactsDir,
		Profile:      profile,
		OnGeneration: onGeneration,
	})
	if err != nil {
		return RunSummary{}, err
	}
	result, err := trainer.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	c.initialized = true

	summary := RunSummary{
		RunID:            result.RunID,
		ArtifactsDir:     filepath.Join(filepath.Clean(c.artifactsDir), result.RunID),
		Scape:            trainer.Scape().Name(),
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestFitness: result.FinalBest,
	}
	if req.VerifyReplay {
		player, err := replay.NewPlayer(result.Reel, trainer.Scape())
		if err != nil {
			return RunSummary{}, err
		}
		replayed, err := player.PlayAll(ctx, nil)
		if err != nil {
			return RunSummary{}, err
		}
		for _, r := range replayed {
			if !r.Matches() {
				return RunSummary{}, fmt.Errorf("replay diverged at generation %d: trained=%v replayed=%v", r.Generation, r.Trained, r.Replayed)
			}
		}
		summary.ReplayVerified = true
	}
	return summary, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Scape:            e.Scape,
			Seed:             e.Seed,
			Population:       e.PopulationSize,
			Generations:      e.Generations,
			Workers:          e.Workers,
			FinalBestFitness: e.FinalBestFitness,
		})
	}
	return out, nil
}

// Export copies a run's artifacts (config, fitness history, diagnostics,
// telemetry) into the output directory.
func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, 0, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = defaultExportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, req.Limit, "fitness history")
	if err != nil {
		return nil, err
	}
	if err := c.ensureInit(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A fresh memory store knows nothing about earlier processes; the
		// run's artifacts on disk still do.
		history, ok, err = stats.ReadFitnessHistory(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, req.Limit, "diagnostics")
	if err != nil {
		return nil, err
	}
	if err := c.ensureInit(ctx); err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		diagnostics, ok, err = diagnosticsFromTelemetry(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

func (c *Client) ScapeSummary(ctx context.Context, scapeName string) (ScapeSummaryItem, error) {
	if scapeName == "" {
		return ScapeSummaryItem{}, errors.New("scape name is required")
	}
	if err := c.ensureInit(ctx); err != nil {
		return ScapeSummaryItem{}, err
	}
	summary, ok, err := c.store.GetScapeSummary(ctx, scapeid.Normalize(scapeName))
	if err != nil {
		return ScapeSummaryItem{}, err
	}
	if !ok {
		return ScapeSummaryItem{}, fmt.Errorf("scape summary not found: %s", scapeName)
	}
	return ScapeSummaryItem{
		Name:        summary.Name,
		Description: summary.Description,
		BestFitness: summary.BestFitness,
	}, nil
}

// Profiles lists the available hyperparameter profiles by name.
func (c *Client) Profiles() (map[string]config.Profile, error) {
	return config.LoadProfiles("")
}

// diagnosticsFromTelemetry rebuilds per-generation diagnostics from the
// run's telemetry CSV when the store has no record of the run.
func diagnosticsFromTelemetry(artifactsDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	rows, ok, err := stats.ReadTelemetry(artifactsDir, runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	out := make([]model.GenerationDiagnostics, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.GenerationDiagnostics{
			Generation: row.Generation,
			Best:       row.Best,
			Mean:       row.Mean,
			Std:        row.Std,
			Median:     row.Median,
			Worst:      row.Worst,
		})
	}
	return out, true, nil
}

func (c *Client) resolveRunID(runID string, latest bool, limit int, what string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if limit < 0 {
		return "", errors.New("limit must be >= 0")
	}
	if latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		return entries[0].RunID, nil
	}
	if runID == "" {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	return runID, nil
}

func (c *Client) ensureInit(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}
