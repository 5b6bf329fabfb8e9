package predicates

import (
	"context"

	"github.com/openadstack/adselect/internal/models"
)

// RecognizedPredicate matches customers the service knows: the request
// carries a customer ID and a profile exists for it. Anonymous requests are
// FALSE, not indeterminate, since recognition is exactly what is being
// tested.
type RecognizedPredicate struct {
	Profiles ProfileStore
	Negate   bool
}

func (p RecognizedPredicate) Name() string { return TypeRecognized }

func (p RecognizedPredicate) Evaluate(ctx context.Context, rc models.RequestContext) (models.TargetingPredicateResult, error) {
	if !rc.Recognized() {
		return negate(models.TargetingFalse, p.Negate), nil
	}
	profile, err := p.Profiles.GetProfile(ctx, rc.CustomerID)
	if err != nil {
		return models.TargetingIndeterminate, err
	}
	return negate(fromBool(profile != nil), p.Negate), nil
}
