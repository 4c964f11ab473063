package placement

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

// CachingEvaluator memoises the results of another evaluator by assignment.
// Offspring often repeat placements already seen in earlier generations.
type CachingEvaluator struct {
	evaluator framework.Evaluator
	cache     *cache.Cache

	hits   atomic.Int64
	misses atomic.Int64
}

var _ framework.Evaluator = &CachingEvaluator{}

// NewCachingEvaluator caches results for ttl. A zero ttl never expires them.
func NewCachingEvaluator(evaluator framework.Evaluator, ttl time.Duration) *CachingEvaluator {
	expiration, cleanup := cache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiration, cleanup = ttl, 2*ttl
	}
	return &CachingEvaluator{
		evaluator: evaluator,
		cache:     cache.New(expiration, cleanup),
	}
}

// Evaluate returns the cached result of the assignment, if any. Results are
// shared between individuals and must be treated as read-only.
func (c *CachingEvaluator) Evaluate(ctx context.Context, ind *framework.Individual) (*framework.EvaluationResult, error) {
	key := assignmentKey(ind)
	if v, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return v.(*framework.EvaluationResult), nil
	}
	c.misses.Add(1)
	result, err := c.evaluator.Evaluate(ctx, ind)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

// Hits returns the number of evaluations answered from the cache.
func (c *CachingEvaluator) Hits() int64 {
	return c.hits.Load()
}

// Misses returns the number of evaluations passed to the wrapped evaluator.
func (c *CachingEvaluator) Misses() int64 {
	return c.misses.Load()
}

func assignmentKey(ind *framework.Individual) string {
	var b strings.Builder
	for i, v := range ind.Variables() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(v.String())
	}
	return b.String()
}
