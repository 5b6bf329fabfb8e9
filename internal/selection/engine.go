// Package selection implements the advertisement selection pipeline:
// retrieve candidate content for a marketplace, evaluate each content item's
// targeting groups against the request context, and pick uniformly at
// random among the eligible items.
package selection

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/openadstack/adselect/internal/models"
	"github.com/openadstack/adselect/internal/observability"
	"github.com/openadstack/adselect/internal/targeting"
)

// ContentLookup retrieves the advertisement content available in a
// marketplace. An unknown marketplace yields an empty list; an error means
// the lookup itself failed and the selection must abort.
type ContentLookup interface {
	GetContent(ctx context.Context, marketplaceID string) ([]models.AdvertisementContent, error)
}

// TargetingGroupLookup retrieves the targeting groups attached to a content
// item. Content without groups yields an empty list.
type TargetingGroupLookup interface {
	GetTargetingGroups(ctx context.Context, contentID string) ([]models.TargetingGroup, error)
}

// Rand is the injectable random source used for the final uniform pick, so
// selection is deterministic under test.
type Rand interface {
	Intn(n int) int
}

// systemRand delegates to the shared math/rand source, which is safe for
// concurrent use.
type systemRand struct{}

func (systemRand) Intn(n int) int { return rand.Intn(n) }

// Engine orchestrates one selection pass per request. It owns no per-request
// state; the targeting evaluator it constructs is scoped to a single call.
type Engine struct {
	content ContentLookup
	groups  TargetingGroupLookup
	pool    *targeting.Pool
	timeout time.Duration
	rng     Rand
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewEngine constructs an Engine. The worker pool is shared across requests
// and must outlive the engine; timeout bounds the evaluation of one
// targeting group.
func NewEngine(content ContentLookup, groups TargetingGroupLookup, pool *targeting.Pool, timeout time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Engine{
		content: content,
		groups:  groups,
		pool:    pool,
		timeout: timeout,
		rng:     systemRand{},
		logger:  logger,
		metrics: metrics,
	}
}

// SetRand replaces the random source used for the final pick. Call before
// serving traffic; the engine does not synchronize around it.
func (e *Engine) SetRand(r Rand) {
	if r != nil {
		e.rng = r
	}
}

// SelectAdvertisement picks the advertisement to render for a customer in a
// marketplace. It returns the empty advertisement when the marketplace has
// no content or nothing passes targeting; an error is returned only when a
// lookup collaborator fails.
func (e *Engine) SelectAdvertisement(ctx context.Context, customerID, marketplaceID string) (models.GeneratedAdvertisement, error) {
	rc := models.RequestContext{CustomerID: customerID, MarketplaceID: marketplaceID}
	return e.SelectForContext(ctx, rc)
}

// SelectForContext runs the selection pipeline against a fully resolved
// RequestContext. The HTTP layer uses this entry point after enriching the
// context with device and geo data.
func (e *Engine) SelectForContext(ctx context.Context, rc models.RequestContext) (models.GeneratedAdvertisement, error) {
	evaluator := targeting.NewEvaluator(rc, e.pool, e.timeout)

	contents, err := e.content.GetContent(ctx, rc.MarketplaceID)
	if err != nil {
		return models.GeneratedAdvertisement{}, fmt.Errorf("content lookup for marketplace %s: %w", rc.MarketplaceID, err)
	}
	if len(contents) == 0 {
		e.logger.Info("no advertisements available",
			zap.String("marketplace_id", rc.MarketplaceID))
		e.metrics.IncrementEmptyAds("no_content")
		return models.EmptyAdvertisement(), nil
	}

	seen := make(map[string]struct{}, len(contents))
	var eligible []models.AdvertisementContent

contentLoop:
	for _, content := range contents {
		if _, dup := seen[content.ContentID]; dup {
			continue
		}
		seen[content.ContentID] = struct{}{}

		groups, err := e.groups.GetTargetingGroups(ctx, content.ContentID)
		if err != nil {
			return models.GeneratedAdvertisement{}, fmt.Errorf("targeting group lookup for content %s: %w", content.ContentID, err)
		}

		// Higher-performing groups are tried first. This only affects
		// which group admits the content, never whether it is eligible.
		sorted := make([]models.TargetingGroup, len(groups))
		copy(sorted, groups)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].ClickThroughRate > sorted[j].ClickThroughRate
		})

		for _, group := range sorted {
			start := time.Now()
			verdict, err := evaluator.Evaluate(ctx, group)
			e.metrics.RecordTargetingEvalLatency(time.Since(start))
			if err != nil {
				// A broken group makes this content ineligible but never
				// takes down the whole selection.
				e.metrics.IncrementPredicateFailures(rc.MarketplaceID)
				e.logger.Warn("targeting evaluation failed, skipping content",
					zap.String("content_id", content.ContentID),
					zap.String("targeting_group_id", group.TargetingGroupID),
					zap.Error(err))
				continue contentLoop
			}
			if verdict.IsTrue() {
				eligible = append(eligible, content)
				continue contentLoop
			}
		}
	}

	e.metrics.RecordEligibleContent(len(eligible))
	if len(eligible) == 0 {
		e.logger.Info("no eligible advertisements",
			zap.String("customer_id", rc.CustomerID),
			zap.String("marketplace_id", rc.MarketplaceID))
		e.metrics.IncrementEmptyAds("no_eligible_content")
		return models.EmptyAdvertisement(), nil
	}

	pick := eligible[e.rng.Intn(len(eligible))]
	return models.NewGeneratedAdvertisement(pick), nil
}
