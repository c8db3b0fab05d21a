package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/crimescope/engine"
)

type countingObserver struct {
	hits, misses atomic.Int64
}

func (o *countingObserver) CacheHit()  { o.hits.Add(1) }
func (o *countingObserver) CacheMiss() { o.misses.Add(1) }

func reportFor(sel engine.Selection) ComputeFunc {
	return func(context.Context) (*engine.Report, error) {
		return &engine.Report{Selection: sel}, nil
	}
}

func TestGetOrComputeCachesBySelectionAndGeneration(t *testing.T) {
	c := New()
	ctx := context.Background()
	sel := engine.Selection{PrimaryType: engine.String("THEFT")}

	first, err := c.GetOrCompute(ctx, sel, 1, reportFor(sel))
	require.NoError(t, err)
	second, err := c.GetOrCompute(ctx, sel, 1, reportFor(sel))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)

	// A new generation is a different key.
	third, err := c.GetOrCompute(ctx, sel, 2, reportFor(sel))
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Computes)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 2, stats.Entries)
}

func TestCachedReportIsolatedFromCallers(t *testing.T) {
	c := New()
	ctx := context.Background()
	sel := engine.Selection{Year: engine.Int(2020)}
	compute := func(context.Context) (*engine.Report, error) {
		return &engine.Report{
			Selection:         sel,
			CategoryBreakdown: map[string]float64{"THEFT": 50, engine.OtherCategory: 50},
			TopCategories:     []engine.CategoryCount{{Category: "THEFT", Count: 1}},
		}, nil
	}

	first, err := c.GetOrCompute(ctx, sel, 1, compute)
	require.NoError(t, err)
	first.CategoryBreakdown["THEFT"] = 0
	first.TopCategories[0].Count = 99
	*first.Selection.Year = 1999

	second, ok := c.Get(sel, 1)
	require.True(t, ok)
	assert.Equal(t, 50.0, second.CategoryBreakdown["THEFT"])
	assert.Equal(t, 1, second.TopCategories[0].Count)
	assert.Equal(t, 2020, *second.Selection.Year)
}

func TestKeyDistinguishesSelections(t *testing.T) {
	a := Key(engine.Selection{Block: engine.String("X")}, 1)
	b := Key(engine.Selection{PrimaryType: engine.String("X")}, 1)
	c := Key(engine.Selection{}, 1)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, Key(engine.Selection{Block: engine.String("X")}, 1))
}

func TestErrorsAreNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	calls := 0
	compute := func(context.Context) (*engine.Report, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return &engine.Report{}, nil
	}

	_, err := c.GetOrCompute(context.Background(), engine.Selection{}, 1, compute)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	r, err := c.GetOrCompute(context.Background(), engine.Selection{}, 1, compute)
	require.NoError(t, err)
	assert.NotNil(t, r)
	assert.Equal(t, int64(1), c.Stats().Errors)
}

func TestLRUEviction(t *testing.T) {
	c := New(WithMaxEntries(2))
	ctx := context.Background()
	a := engine.Selection{Block: engine.String("A")}
	b := engine.Selection{Block: engine.String("B")}
	d := engine.Selection{Block: engine.String("D")}

	_, _ = c.GetOrCompute(ctx, a, 1, reportFor(a))
	_, _ = c.GetOrCompute(ctx, b, 1, reportFor(b))
	_, ok := c.Get(a, 1) // a is now most recent
	require.True(t, ok)
	_, _ = c.GetOrCompute(ctx, d, 1, reportFor(d))

	_, ok = c.Get(b, 1)
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get(a, 1)
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestInvalidate(t *testing.T) {
	c := New()
	ctx := context.Background()
	sel := engine.Selection{}
	_, _ = c.GetOrCompute(ctx, sel, 1, reportFor(sel))
	_, _ = c.GetOrCompute(ctx, sel, 2, reportFor(sel))

	assert.Equal(t, 1, c.InvalidateBefore(2))
	assert.Equal(t, 1, c.Len())

	c.Invalidate()
	assert.Equal(t, 0, c.Len())
}

func TestObserverAndConcurrentMisses(t *testing.T) {
	obs := &countingObserver{}
	c := New(WithObserver(obs))
	sel := engine.Selection{Year: engine.Int(2020)}

	var computes atomic.Int64
	release := make(chan struct{})
	compute := func(context.Context) (*engine.Report, error) {
		computes.Add(1)
		<-release
		return &engine.Report{Selection: sel}, nil
	}

	var wg sync.WaitGroup
	results := make([]*engine.Report, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.GetOrCompute(context.Background(), sel, 7, compute)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, computes.Load(), int64(8))
	assert.GreaterOrEqual(t, computes.Load(), int64(1))
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, sel.Key(), r.Selection.Key())
	}
	assert.Equal(t, int64(8), obs.hits.Load()+obs.misses.Load())

	_, ok := c.Get(sel, 7)
	assert.True(t, ok)
}
