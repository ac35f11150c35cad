package evo

import "math/rand"

// minCrossoverLength is the shortest chromosome with an interior cut point.
const minCrossoverLength = 3

// drawCut picks a crossover cut uniformly from [1, length-1), so both
// children always carry genes from both parents.
func drawCut(rng *rand.Rand, length int) int {
	return rng.Intn(length-2) + 1
}

// crossover swaps the gene tails of a and b from cut onward in place,
// turning the two parent copies into the two single-point children.
func crossover(a, b []float64, cut int) {
	for i := cut; i < len(a); i++ {
		a[i], b[i] = b[i], a[i]
	}
}

// mutate perturbs each gene independently with probability prob by a
// uniform draw in [-magnitude, +magnitude], in place.
func mutate(rng *rand.Rand, genes []float64, prob, magnitude float64) {
	for i := range genes {
		if rng.Float64() < prob {
			genes[i] += rng.Float64()*2*magnitude - magnitude
		}
	}
}
