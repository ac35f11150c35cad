package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"ophion/internal/config"
	"ophion/pkg/ophion"
)

const defaultArtifactsDir = "benchmarks"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "diag":
		return runDiag(ctx, args[1:])
	case "scape-summary":
		return runScapeSummary(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "profiles":
		return runProfiles(ctx, args[1:])
	case "init-config":
		return runInitConfig(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: ophionctl <train|runs|history|diag|export|scape-summary|profiles|init-config> [flags]", msg)
}

func newClient(storeKind, dbPath, artifactsDir, configPath, profile string) (*ophion.Client, error) {
	return ophion.New(ophion.Options{
		StoreKind:    storeKind,
		DBPath:       dbPath,
		ArtifactsDir: artifactsDir,
		ConfigPath:   configPath,
		Profile:      profile,
	})
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional config YAML overlaying the built-in defaults")
	profile := fs.String("profile", "", "hyperparameter profile name")
	scapeName := fs.String("scape", "", "scape name (default snake)")
	seed := fs.Int64("seed", 0, "rng seed (overrides config when set)")
	population := fs.Int("pop", 0, "population size (overrides config when > 0)")
	generations := fs.Int("gens", 0, "generation count (overrides config when > 0)")
	workers := fs.Int("workers", 0, "evaluation worker count (overrides config when > 0)")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "ophion.db", "sqlite database path")
	artifactsDir := fs.String("artifacts-dir", defaultArtifactsDir, "run artifacts directory")
	verifyReplay := fs.Bool("verify-replay", false, "replay every champion after training and fail on divergence")
	progress := fs.Bool("progress", false, "force per-generation progress output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	seedSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})

	client, err := newClient(*storeKind, *dbPath, *artifactsDir, *configPath, "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	showProgress := *progress || isatty.IsTerminal(os.Stderr.Fd())
	var onGeneration func(ophion.RunProgress)
	if showProgress {
		onGeneration = func(p ophion.RunProgress) {
			fmt.Fprintf(os.Stderr, "generation %s/%s best=%.2f mean=%.2f\n",
				humanize.Comma(int64(p.Generation)),
				humanize.Comma(int64(p.Generations)),
				p.Diagnostics.Best,
				p.Diagnostics.Mean,
			)
		}
	}

	summary, err := client.Run(ctx, ophion.RunRequest{
		Scape:        *scapeName,
		Seed:         *seed,
		SeedSet:      seedSet,
		Population:   *population,
		Generations:  *generations,
		Workers:      *workers,
		Profile:      *profile,
		VerifyReplay: *verifyReplay,
		OnGeneration: onGeneration,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s scape=%s gens=%s\n",
		summary.RunID, summary.Scape, humanize.Comma(int64(len(summary.BestByGeneration))))
	fmt.Printf("final_best_fitness=%.6f\n", summary.FinalBestFitness)
	if summary.ReplayVerified {
		fmt.Println("replay_verified=true")
	}
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	artifactsDir := fs.String("artifacts-dir", defaultArtifactsDir, "run artifacts directory")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient("memory", "", *artifactsDir, "", "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, ophion.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, r := range runs {
		fmt.Printf("run_id=%s created=%s scape=%s seed=%d pop=%s gens=%s final_best_fitness=%.6f\n",
			r.RunID,
			relativeTime(r.CreatedAtUTC),
			r.Scape,
			r.Seed,
			humanize.Comma(int64(r.Population)),
			humanize.Comma(int64(r.Generations)),
			r.FinalBestFitness,
		)
	}
	return nil
}

// relativeTime renders stored RFC 3339 timestamps as "3 days ago"; records
// that fail to parse fall back to the raw string.
func relativeTime(createdAtUTC string) string {
	created, err := time.Parse(time.RFC3339Nano, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return humanize.Time(created)
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "ophion.db", "sqlite database path")
	artifactsDir := fs.String("artifacts-dir", defaultArtifactsDir, "run artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, *artifactsDir, "", "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, ophion.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  max(*limit, 0),
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i+1, best)
	}
	return nil
}

func runDiag(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diag", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "ophion.db", "sqlite database path")
	artifactsDir := fs.String("artifacts-dir", defaultArtifactsDir, "run artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, *artifactsDir, "", "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, ophion.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  max(*limit, 0),
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.6f mean=%.6f std=%.6f median=%.6f worst=%.6f\n",
			d.Generation, d.Best, d.Mean, d.Std, d.Median, d.Worst)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "exports", "destination directory")
	artifactsDir := fs.String("artifacts-dir", defaultArtifactsDir, "run artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient("memory", "", *artifactsDir, "", "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, ophion.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func runScapeSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scape-summary", flag.ContinueOnError)
	name := fs.String("name", "snake", "scape name")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "ophion.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, defaultArtifactsDir, "", "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.ScapeSummary(ctx, *name)
	if err != nil {
		return err
	}
	fmt.Printf("scape=%s best_fitness=%.6f description=%q\n", summary.Name, summary.BestFitness, summary.Description)
	return nil
}

func runProfiles(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("profiles", flag.ContinueOnError)
	profilesPath := fs.String("profiles", "", "optional user profiles INI merged over the built-ins")
	if err := fs.Parse(args); err != nil {
		return err
	}

	profiles, err := config.LoadProfiles(*profilesPath)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := profiles[name]
		fmt.Printf("profile=%s pop=%s crossing_prob=%.2f mutation_prob=%.2f mutation_range=%.2f\n",
			name, humanize.Comma(int64(p.Population)), p.CrossingProb, p.MutationProb, p.MutationRange)
	}
	return nil
}

func runInitConfig(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	path := fs.String("path", "ophion.yaml", "destination for the default config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := config.WriteDefault(*path); err != nil {
		return err
	}
	fmt.Printf("wrote default config to %s\n", *path)
	return nil
}
