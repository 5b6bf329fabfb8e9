package predicates

import (
	"context"
	"strings"

	"github.com/openadstack/adselect/internal/models"
)

// CountryPredicate matches the country resolved from the request's client
// IP. Requests without geo data are INDETERMINATE.
type CountryPredicate struct {
	Country string
	Negate  bool
}

func (p CountryPredicate) Name() string { return TypeCountry }

func (p CountryPredicate) Evaluate(_ context.Context, rc models.RequestContext) (models.TargetingPredicateResult, error) {
	if rc.Country == "" {
		return models.TargetingIndeterminate, nil
	}
	return negate(fromBool(strings.EqualFold(rc.Country, p.Country)), p.Negate), nil
}
