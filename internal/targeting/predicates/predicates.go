// Package predicates contains the concrete targeting rules evaluable
// against a request context, plus the registry that hydrates persisted
// predicate specs into evaluable values.
//
// Contextual predicates (device type, country) are pure functions of the
// RequestContext. Profile-driven predicates (recognized, age range, parent,
// category spend) consult the customer profile store and report
// INDETERMINATE when the data they need is absent.
package predicates

import (
	"context"
	"fmt"
	"strconv"

	"github.com/openadstack/adselect/internal/models"
)

// Predicate type names as persisted in targeting group specs.
const (
	TypeRecognized    = "recognized"
	TypeAgeRange      = "ageRange"
	TypeParent        = "parent"
	TypeCategorySpend = "categorySpend"
	TypeDeviceType    = "deviceType"
	TypeCountry       = "country"
)

// ProfileStore supplies customer profile data to the predicates that need
// it. Implemented by db.RedisStore.
type ProfileStore interface {
	GetProfile(ctx context.Context, customerID string) (*models.CustomerProfile, error)
	GetCategorySpend(ctx context.Context, customerID, category string) (int64, error)
}

// Registry builds predicates from their persisted specs, injecting the
// profile store into the predicates that read customer data.
type Registry struct {
	profiles ProfileStore
}

// NewRegistry returns a Registry backed by the given profile store.
func NewRegistry(profiles ProfileStore) *Registry {
	return &Registry{profiles: profiles}
}

// Hydrate turns one persisted spec into an evaluable predicate. Unknown
// types and missing required attributes are configuration errors.
func (r *Registry) Hydrate(spec models.TargetingPredicateSpec) (models.TargetingPredicate, error) {
	switch spec.Type {
	case TypeRecognized:
		return RecognizedPredicate{Profiles: r.profiles, Negate: spec.Negate}, nil

	case TypeAgeRange:
		ageRange := spec.Attributes["ageRange"]
		if ageRange == "" {
			return nil, fmt.Errorf("predicate %s: missing ageRange attribute", spec.Type)
		}
		return AgeRangePredicate{Profiles: r.profiles, AgeRange: ageRange, Negate: spec.Negate}, nil

	case TypeParent:
		return ParentPredicate{Profiles: r.profiles, Negate: spec.Negate}, nil

	case TypeCategorySpend:
		category := spec.Attributes["category"]
		if category == "" {
			return nil, fmt.Errorf("predicate %s: missing category attribute", spec.Type)
		}
		comparison := spec.Attributes["comparison"]
		if !validComparison(comparison) {
			return nil, fmt.Errorf("predicate %s: invalid comparison %q", spec.Type, comparison)
		}
		cents, err := strconv.ParseInt(spec.Attributes["value"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("predicate %s: invalid value %q", spec.Type, spec.Attributes["value"])
		}
		return CategorySpendPredicate{
			Profiles:   r.profiles,
			Category:   category,
			Comparison: comparison,
			Cents:      cents,
			Negate:     spec.Negate,
		}, nil

	case TypeDeviceType:
		deviceType := spec.Attributes["deviceType"]
		if deviceType == "" {
			return nil, fmt.Errorf("predicate %s: missing deviceType attribute", spec.Type)
		}
		return DeviceTypePredicate{DeviceType: deviceType, Negate: spec.Negate}, nil

	case TypeCountry:
		country := spec.Attributes["country"]
		if country == "" {
			return nil, fmt.Errorf("predicate %s: missing country attribute", spec.Type)
		}
		return CountryPredicate{Country: country, Negate: spec.Negate}, nil
	}
	return nil, fmt.Errorf("unknown predicate type %q", spec.Type)
}

// negate applies a spec's negate flag. INDETERMINATE is preserved under
// negation.
func negate(res models.TargetingPredicateResult, negated bool) models.TargetingPredicateResult {
	if !negated {
		return res
	}
	switch res {
	case models.TargetingTrue:
		return models.TargetingFalse
	case models.TargetingFalse:
		return models.TargetingTrue
	default:
		return models.TargetingIndeterminate
	}
}

func fromBool(b bool) models.TargetingPredicateResult {
	if b {
		return models.TargetingTrue
	}
	return models.TargetingFalse
}

func validComparison(op string) bool {
	switch op {
	case "<", "<=", "==", ">=", ">":
		return true
	}
	return false
}
