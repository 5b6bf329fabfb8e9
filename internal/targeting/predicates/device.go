package predicates

import (
	"context"
	"strings"

	"github.com/openadstack/adselect/internal/models"
)

// DeviceTypePredicate matches the device type resolved from the request's
// User-Agent. Requests without a resolved device are INDETERMINATE.
type DeviceTypePredicate struct {
	DeviceType string
	Negate     bool
}

func (p DeviceTypePredicate) Name() string { return TypeDeviceType }

func (p DeviceTypePredicate) Evaluate(_ context.Context, rc models.RequestContext) (models.TargetingPredicateResult, error) {
	if rc.DeviceType == "" {
		return models.TargetingIndeterminate, nil
	}
	return negate(fromBool(strings.EqualFold(rc.DeviceType, p.DeviceType)), p.Negate), nil
}
