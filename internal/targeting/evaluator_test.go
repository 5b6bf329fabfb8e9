package targeting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openadstack/adselect/internal/models"
)

type stubPredicate struct {
	name   string
	result models.TargetingPredicateResult
	err    error
	// sleep ignores ctx on purpose, to simulate a hung predicate
	sleep time.Duration
}

func (p stubPredicate) Name() string { return p.name }

func (p stubPredicate) Evaluate(_ context.Context, _ models.RequestContext) (models.TargetingPredicateResult, error) {
	if p.sleep > 0 {
		time.Sleep(p.sleep)
	}
	return p.result, p.err
}

func newTestEvaluator(t *testing.T, timeout time.Duration) *Evaluator {
	t.Helper()
	pool := NewPool(4)
	t.Cleanup(pool.Close)
	rc := models.RequestContext{CustomerID: "cust-1", MarketplaceID: "M1"}
	return NewEvaluator(rc, pool, timeout)
}

func group(preds ...models.TargetingPredicate) models.TargetingGroup {
	return models.TargetingGroup{TargetingGroupID: "tg-1", ContentID: "c-1", Predicates: preds}
}

func TestEvaluateEmptyGroupIsTrue(t *testing.T) {
	e := newTestEvaluator(t, time.Second)

	res, err := e.Evaluate(context.Background(), group())
	require.NoError(t, err)
	assert.Equal(t, models.TargetingTrue, res)
}

func TestEvaluateAggregatesWithAnd(t *testing.T) {
	tests := []struct {
		name     string
		preds    []models.TargetingPredicateResult
		expected models.TargetingPredicateResult
	}{
		{"all true", []models.TargetingPredicateResult{models.TargetingTrue, models.TargetingTrue, models.TargetingTrue}, models.TargetingTrue},
		{"one false", []models.TargetingPredicateResult{models.TargetingTrue, models.TargetingFalse, models.TargetingTrue}, models.TargetingFalse},
		{"false first", []models.TargetingPredicateResult{models.TargetingFalse, models.TargetingTrue}, models.TargetingFalse},
		{"false last", []models.TargetingPredicateResult{models.TargetingTrue, models.TargetingFalse}, models.TargetingFalse},
		{"indeterminate counts as non-match", []models.TargetingPredicateResult{models.TargetingTrue, models.TargetingIndeterminate}, models.TargetingFalse},
		{"single true", []models.TargetingPredicateResult{models.TargetingTrue}, models.TargetingTrue},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEvaluator(t, time.Second)
			preds := make([]models.TargetingPredicate, len(tc.preds))
			for i, r := range tc.preds {
				preds[i] = stubPredicate{name: "stub", result: r}
			}

			res, err := e.Evaluate(context.Background(), group(preds...))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, res)
		})
	}
}

func TestEvaluateNeverReturnsIndeterminate(t *testing.T) {
	e := newTestEvaluator(t, time.Second)

	res, err := e.Evaluate(context.Background(), group(
		stubPredicate{name: "unknown", result: models.TargetingIndeterminate},
	))
	require.NoError(t, err)
	assert.Equal(t, models.TargetingFalse, res)
}

func TestEvaluatePredicateErrorFailsGroup(t *testing.T) {
	e := newTestEvaluator(t, time.Second)
	boom := errors.New("profile store down")

	_, err := e.Evaluate(context.Background(), group(
		stubPredicate{name: "ok", result: models.TargetingTrue},
		stubPredicate{name: "broken", result: models.TargetingIndeterminate, err: boom},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
}

func TestEvaluateTimesOutOnHungPredicate(t *testing.T) {
	e := newTestEvaluator(t, 20*time.Millisecond)

	start := time.Now()
	_, err := e.Evaluate(context.Background(), group(
		stubPredicate{name: "hung", result: models.TargetingTrue, sleep: 500 * time.Millisecond},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestEvaluateManyPredicatesOnSmallPool(t *testing.T) {
	// More predicates than workers must not deadlock.
	pool := NewPool(2)
	t.Cleanup(pool.Close)
	e := NewEvaluator(models.RequestContext{MarketplaceID: "M1"}, pool, time.Second)

	preds := make([]models.TargetingPredicate, 32)
	for i := range preds {
		preds[i] = stubPredicate{name: "stub", result: models.TargetingTrue}
	}

	res, err := e.Evaluate(context.Background(), group(preds...))
	require.NoError(t, err)
	assert.Equal(t, models.TargetingTrue, res)
}

func TestPoolSubmitHonorsContext(t *testing.T) {
	pool := NewPool(1)
	t.Cleanup(pool.Close)

	// Occupy the only worker.
	block := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
}
