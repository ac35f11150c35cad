package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord describes one completed training run. It carries configuration
// and outcome only; chromosome contents are never persisted.
type RunRecord struct {
	VersionedRecord
	ID            string  `json:"id"`
	CreatedAtUTC  string  `json:"created_at_utc"`
	Scape         string  `json:"scape"`
	Seed          int64   `json:"seed"`
	Population    int     `json:"population"`
	Generations   int     `json:"generations"`
	GenomeLength  int     `json:"genome_length"`
	GridWidth     int     `json:"grid_width"`
	GridHeight    int     `json:"grid_height"`
	CrossingProb  float64 `json:"crossing_prob"`
	MutationProb  float64 `json:"mutation_prob"`
	MutationRange float64 `json:"mutation_range"`
	FinalBest     float64 `json:"final_best"`
}

// GenerationDiagnostics summarizes the fitness distribution of one generation.
type GenerationDiagnostics struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Median     float64 `json:"median"`
	Worst      float64 `json:"worst"`
}

type ScapeSummary struct {
	VersionedRecord
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BestFitness float64 `json:"best_fitness"`
}
