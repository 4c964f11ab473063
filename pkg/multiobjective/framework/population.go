package framework

import (
	"fmt"
	"math/rand/v2"
)

// Population is an ordered collection of individuals. Insertion order is
// preserved and the same individual may appear more than once.
type Population struct {
	individuals []*Individual
}

func NewPopulation(individuals ...*Individual) *Population {
	return &Population{individuals: append([]*Individual(nil), individuals...)}
}

// NewRandomPopulation creates size unevaluated individuals with random
// variable values.
func NewRandomPopulation(problem *Problem, size int, rng *rand.Rand) *Population {
	p := &Population{individuals: make([]*Individual, size)}
	for i := range p.individuals {
		p.individuals[i] = NewIndividual(problem, rng)
	}
	return p
}

func (p *Population) Len() int {
	if p == nil {
		return 0
	}
	return len(p.individuals)
}

// At returns the i-th individual.
func (p *Population) At(i int) *Individual {
	return p.individuals[i]
}

// Individuals returns the backing slice. Callers may modify the individuals
// but must not append to the slice.
func (p *Population) Individuals() []*Individual {
	return p.individuals
}

// Add appends individuals at the end of the population.
func (p *Population) Add(individuals ...*Individual) {
	p.individuals = append(p.individuals, individuals...)
}

// Drain removes the individuals in [start, end) and returns them.
func (p *Population) Drain(start, end int) ([]*Individual, error) {
	if start < 0 || end > len(p.individuals) || start > end {
		return nil, fmt.Errorf("cannot drain range [%d, %d) from a population of %d individuals", start, end, len(p.individuals))
	}
	drained := append([]*Individual(nil), p.individuals[start:end]...)
	n := len(p.individuals)
	p.individuals = append(p.individuals[:start], p.individuals[end:]...)
	clear(p.individuals[len(p.individuals):n])
	return drained, nil
}

// Truncate keeps the first n individuals. A negative n empties the
// population.
func (p *Population) Truncate(n int) {
	n = max(n, 0)
	if n < len(p.individuals) {
		clear(p.individuals[n:])
		p.individuals = p.individuals[:n]
	}
}

// Clone deep copies every individual.
func (p *Population) Clone() *Population {
	c := &Population{individuals: make([]*Individual, len(p.individuals))}
	for i, ind := range p.individuals {
		c.individuals[i] = ind.Clone()
	}
	return c
}

// Unevaluated returns the individuals that still need an evaluation.
func (p *Population) Unevaluated() []*Individual {
	var out []*Individual
	for _, ind := range p.individuals {
		if !ind.IsEvaluated() {
			out = append(out, ind)
		}
	}
	return out
}
