package predicates

import (
	"context"

	"github.com/openadstack/adselect/internal/models"
)

// ParentPredicate matches customers whose profile marks a household with
// children. Unknown customers are INDETERMINATE.
type ParentPredicate struct {
	Profiles ProfileStore
	Negate   bool
}

func (p ParentPredicate) Name() string { return TypeParent }

func (p ParentPredicate) Evaluate(ctx context.Context, rc models.RequestContext) (models.TargetingPredicateResult, error) {
	if !rc.Recognized() {
		return models.TargetingIndeterminate, nil
	}
	profile, err := p.Profiles.GetProfile(ctx, rc.CustomerID)
	if err != nil {
		return models.TargetingIndeterminate, err
	}
	if profile == nil {
		return models.TargetingIndeterminate, nil
	}
	return negate(fromBool(profile.Parent), p.Negate), nil
}
