package targeting

import (
	"context"
	"fmt"
	"time"

	"github.com/openadstack/adselect/internal/models"
)

// Evaluator computes the aggregated verdict of targeting groups for one
// request. It is bound to a single RequestContext and dispatches predicate
// evaluations onto a shared worker pool.
type Evaluator struct {
	requestCtx models.RequestContext
	pool       *Pool
	timeout    time.Duration
}

// NewEvaluator binds an evaluator to a request context. The pool is shared
// across requests; timeout bounds the evaluation of a single targeting
// group (zero means no bound).
func NewEvaluator(rc models.RequestContext, pool *Pool, timeout time.Duration) *Evaluator {
	return &Evaluator{requestCtx: rc, pool: pool, timeout: timeout}
}

type predicateOutcome struct {
	name    string
	matched bool
	err     error
}

// Evaluate runs every predicate in the group concurrently, waits for all of
// them and aggregates with logical AND. The result is TRUE or FALSE, never
// INDETERMINATE: individual indeterminate predicates count as non-matches.
// A group with no predicates is vacuously TRUE.
//
// Any predicate error (including a timeout) fails the whole group with an
// error rather than a silent FALSE, so callers can tell "targeting excluded
// this ad" apart from "targeting evaluation broke".
func (e *Evaluator) Evaluate(ctx context.Context, group models.TargetingGroup) (models.TargetingPredicateResult, error) {
	if len(group.Predicates) == 0 {
		return models.TargetingTrue, nil
	}

	evalCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// Buffered to len(predicates) so workers never block on send even if
	// we bail out early on a timeout.
	results := make(chan predicateOutcome, len(group.Predicates))
	for _, pred := range group.Predicates {
		pred := pred
		if err := e.pool.Submit(evalCtx, func() {
			res, err := pred.Evaluate(evalCtx, e.requestCtx)
			results <- predicateOutcome{name: pred.Name(), matched: res.IsTrue(), err: err}
		}); err != nil {
			return models.TargetingFalse, fmt.Errorf("targeting group %s: dispatch %s: %w", group.TargetingGroupID, pred.Name(), err)
		}
	}

	verdict := models.TargetingTrue
	var firstErr error
	for i := 0; i < len(group.Predicates); i++ {
		select {
		case out := <-results:
			if out.err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("predicate %s: %w", out.name, out.err)
				}
				continue
			}
			if !out.matched {
				verdict = models.TargetingFalse
			}
		case <-evalCtx.Done():
			return models.TargetingFalse, fmt.Errorf("targeting group %s: %w", group.TargetingGroupID, evalCtx.Err())
		}
	}
	if firstErr != nil {
		return models.TargetingFalse, fmt.Errorf("targeting group %s: %w", group.TargetingGroupID, firstErr)
	}
	return verdict, nil
}
