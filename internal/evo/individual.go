// Package evo implements the generational genetic algorithm over flat
// weight chromosomes: fitness-proportionate selection, single-point
// crossover, per-gene mutation, and full-population replacement.
package evo

// Individual pairs one chromosome with its most recent evaluation. The gene
// buffer is owned exclusively by its Individual; genetic operators work on
// fresh copies.
type Individual struct {
	Genes   []float64
	Fitness float64
}

// Clone returns an Individual with its own gene buffer.
func (ind Individual) Clone() Individual {
	return Individual{
		Genes:   append([]float64(nil), ind.Genes...),
		Fitness: ind.Fitness,
	}
}
