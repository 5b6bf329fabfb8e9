package predicates

import (
	"context"

	"github.com/openadstack/adselect/internal/models"
)

// CategorySpendPredicate compares a customer's lifetime spend in a purchase
// category (in cents) against a threshold. Customers with no recorded spend
// count as zero; anonymous requests are INDETERMINATE.
type CategorySpendPredicate struct {
	Profiles   ProfileStore
	Category   string
	Comparison string
	Cents      int64
	Negate     bool
}

func (p CategorySpendPredicate) Name() string { return TypeCategorySpend }

func (p CategorySpendPredicate) Evaluate(ctx context.Context, rc models.RequestContext) (models.TargetingPredicateResult, error) {
	if !rc.Recognized() {
		return models.TargetingIndeterminate, nil
	}
	spend, err := p.Profiles.GetCategorySpend(ctx, rc.CustomerID, p.Category)
	if err != nil {
		return models.TargetingIndeterminate, err
	}
	var matched bool
	switch p.Comparison {
	case "<":
		matched = spend < p.Cents
	case "<=":
		matched = spend <= p.Cents
	case "==":
		matched = spend == p.Cents
	case ">=":
		matched = spend >= p.Cents
	case ">":
		matched = spend > p.Cents
	}
	return negate(fromBool(matched), p.Negate), nil
}
