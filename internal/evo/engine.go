package evo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

// FitnessFunc scores one chromosome. The rng drives every stochastic choice
// of the evaluation episode; implementations must not touch any other
// randomness source.
type FitnessFunc func(ctx context.Context, genes []float64, rng *rand.Rand) (float64, error)

type Config struct {
	PopulationSize int
	GenomeLength   int
	GeneMin        float64
	GeneMax        float64
	CrossingProb   float64
	MutationProb   float64
	MutationRange  float64
	Selector       Selector
	Workers        int
	Seed           int64
}

// Engine owns one evolving population. Genetic operators run sequentially
// on the engine's seeded generator; only fitness evaluation is concurrent,
// with every slot's episode generator derived from (seed, generation, slot)
// so worker scheduling cannot change results.
type Engine struct {
	cfg        Config
	fitness    FitnessFunc
	rng        *rand.Rand
	pop        []Individual
	generation int
}

func NewEngine(cfg Config, fitness FitnessFunc) (*Engine, error) {
	if fitness == nil {
		return nil, fmt.Errorf("fitness function is required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0, got %d", cfg.PopulationSize)
	}
	if cfg.GenomeLength <= 0 {
		return nil, fmt.Errorf("genome length must be > 0, got %d", cfg.GenomeLength)
	}
	if cfg.GeneMax <= cfg.GeneMin {
		return nil, fmt.Errorf("gene range [%v, %v) is empty", cfg.GeneMin, cfg.GeneMax)
	}
	if cfg.CrossingProb < 0 || cfg.CrossingProb > 1 {
		return nil, fmt.Errorf("crossing probability must be in [0, 1], got %v", cfg.CrossingProb)
	}
	if cfg.MutationProb < 0 || cfg.MutationProb > 1 {
		return nil, fmt.Errorf("mutation probability must be in [0, 1], got %v", cfg.MutationProb)
	}
	if cfg.MutationRange < 0 {
		return nil, fmt.Errorf("mutation range must be >= 0, got %v", cfg.MutationRange)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Selector == nil {
		cfg.Selector = RouletteSelector{}
	}

	return &Engine{
		cfg:     cfg,
		fitness: fitness,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Init creates the founding population with genes drawn uniformly from
// [GeneMin, GeneMax) and evaluates every individual.
func (e *Engine) Init(ctx context.Context) error {
	pop := make([]Individual, e.cfg.PopulationSize)
	span := e.cfg.GeneMax - e.cfg.GeneMin
	for i := range pop {
		genes := make([]float64, e.cfg.GenomeLength)
		for j := range genes {
			genes[j] = e.cfg.GeneMin + e.rng.Float64()*span
		}
		pop[i] = Individual{Genes: genes}
	}
	if err := e.evaluatePopulation(ctx, pop, 0); err != nil {
		return err
	}
	e.pop = pop
	e.generation = 0
	return nil
}

// AdvanceGeneration runs one full selection, crossover, mutation and
// re-evaluation cycle, replacing the population wholesale. On error the
// previous generation stays installed.
func (e *Engine) AdvanceGeneration(ctx context.Context) error {
	if len(e.pop) == 0 {
		return fmt.Errorf("engine is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	picks, err := e.cfg.Selector.Select(e.rng, e.pop, e.cfg.PopulationSize)
	if err != nil {
		return err
	}

	next := make([]Individual, 0, e.cfg.PopulationSize)
	var crossers []int
	for _, pick := range picks {
		if e.rng.Float64() < e.cfg.CrossingProb {
			crossers = append(crossers, len(next))
		}
		next = append(next, e.pop[pick].Clone())
	}

	// Pair the to-cross subset sequentially; an odd leftover passes through
	// uncrossed, as does everything too short for an interior cut.
	for i := 0; i+1 < len(crossers); i += 2 {
		a := next[crossers[i]].Genes
		b := next[crossers[i+1]].Genes
		if len(a) < minCrossoverLength {
			continue
		}
		crossover(a, b, drawCut(e.rng, len(a)))
	}

	for i := range next {
		mutate(e.rng, next[i].Genes, e.cfg.MutationProb, e.cfg.MutationRange)
	}

	if err := e.evaluatePopulation(ctx, next, e.generation+1); err != nil {
		return err
	}
	e.pop = next
	e.generation++
	return nil
}

func (e *Engine) evaluatePopulation(ctx context.Context, pop []Individual, generation int) error {
	type job struct {
		idx int
		rng *rand.Rand
	}
	type result struct {
		idx     int
		fitness float64
		err     error
	}

	jobs := make(chan job)
	results := make(chan result, len(pop))

	workerCount := e.cfg.Workers
	if workerCount > len(pop) {
		workerCount = len(pop)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				fitness, err := e.fitness(ctx, pop[j.idx].Genes, j.rng)
				if err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				results <- result{idx: j.idx, fitness: fitness}
			}
		}()
	}

	for i := range pop {
		jobs <- job{idx: i, rng: rand.New(rand.NewSource(evalSeed(e.cfg.Seed, generation, i)))}
	}
	close(jobs)

	wg.Wait()
	close(results)

	for res := range results {
		if res.err != nil {
			return res.err
		}
		pop[res.idx].Fitness = res.fitness
	}
	return nil
}

// evalSeed derives one slot's episode seed. Generations are spaced wider
// than any plausible population so (generation, slot) pairs never collide.
func evalSeed(seed int64, generation, slot int) int64 {
	return seed + int64(generation)*1_000_003 + int64(slot)
}

// EvalSeed reports the episode seed slot was evaluated with in the current
// generation, letting callers replay that exact episode.
func (e *Engine) EvalSeed(slot int) int64 {
	return evalSeed(e.cfg.Seed, e.generation, slot)
}

// Generation is the number of completed AdvanceGeneration calls.
func (e *Engine) Generation() int { return e.generation }

// Best returns the slot and a copy of the highest-fitness individual, ties
// broken by the last maximal slot.
func (e *Engine) Best() (int, Individual) {
	if len(e.pop) == 0 {
		return -1, Individual{}
	}
	best := 0
	for i, ind := range e.pop {
		if ind.Fitness >= e.pop[best].Fitness {
			best = i
		}
	}
	return best, e.pop[best].Clone()
}

// BestScore is the highest fitness in the current population.
func (e *Engine) BestScore() float64 {
	_, best := e.Best()
	return best.Fitness
}

// Fitnesses returns the current population's scores, slot-ordered.
func (e *Engine) Fitnesses() []float64 {
	out := make([]float64, len(e.pop))
	for i, ind := range e.pop {
		out[i] = ind.Fitness
	}
	return out
}

// Population returns a deep copy of the current population.
func (e *Engine) Population() []Individual {
	out := make([]Individual, len(e.pop))
	for i, ind := range e.pop {
		out[i] = ind.Clone()
	}
	return out
}
