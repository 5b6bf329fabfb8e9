package predicates

import (
	"context"

	"github.com/openadstack/adselect/internal/models"
)

// AgeRangePredicate matches customers whose profile falls in the targeted
// age bucket. Unknown customers and profiles without age data are
// INDETERMINATE.
type AgeRangePredicate struct {
	Profiles ProfileStore
	AgeRange string
	Negate   bool
}

func (p AgeRangePredicate) Name() string { return TypeAgeRange }

func (p AgeRangePredicate) Evaluate(ctx context.Context, rc models.RequestContext) (models.TargetingPredicateResult, error) {
	if !rc.Recognized() {
		return models.TargetingIndeterminate, nil
	}
	profile, err := p.Profiles.GetProfile(ctx, rc.CustomerID)
	if err != nil {
		return models.TargetingIndeterminate, err
	}
	if profile == nil || profile.AgeRange == "" {
		return models.TargetingIndeterminate, nil
	}
	return negate(fromBool(profile.AgeRange == p.AgeRange), p.Negate), nil
}
