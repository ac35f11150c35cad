// Package stats reduces generation fitness data to diagnostics, appends CSV
// telemetry, and writes per-run artifact files. Chromosome contents never
// pass through this package.
package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"ophion/internal/model"
)

// Diagnostics summarizes one generation's fitness distribution. The standard
// deviation is the population form, since the slice is the whole generation
// rather than a sample of it.
func Diagnostics(generation int, fitnesses []float64) model.GenerationDiagnostics {
	d := model.GenerationDiagnostics{Generation: generation}
	if len(fitnesses) == 0 {
		return d
	}

	sorted := append([]float64(nil), fitnesses...)
	sort.Float64s(sorted)

	d.Best = sorted[len(sorted)-1]
	d.Worst = sorted[0]
	d.Mean = stat.Mean(sorted, nil)
	d.Std = stat.PopStdDev(sorted, nil)
	d.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return d
}
