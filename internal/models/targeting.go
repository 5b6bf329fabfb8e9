package models

import "context"

// TargetingPredicateResult is the ternary outcome of evaluating a single
// targeting predicate. INDETERMINATE means the predicate could not decide,
// typically because the data it needs (e.g. a customer profile) is absent.
type TargetingPredicateResult int

const (
	TargetingIndeterminate TargetingPredicateResult = iota
	TargetingTrue
	TargetingFalse
)

// IsTrue collapses the ternary result to a boolean: only an explicit TRUE
// counts. INDETERMINATE and FALSE are both non-matches, but the distinction
// is kept for diagnostics.
func (r TargetingPredicateResult) IsTrue() bool {
	return r == TargetingTrue
}

// String returns the result name for logging.
func (r TargetingPredicateResult) String() string {
	switch r {
	case TargetingTrue:
		return "TRUE"
	case TargetingFalse:
		return "FALSE"
	default:
		return "INDETERMINATE"
	}
}

// TargetingPredicate is one business rule evaluated against a
// RequestContext. Implementations must be stateless with respect to a single
// evaluation call and safe for concurrent use; the same predicate value may
// be evaluated from several goroutines at once.
//
// An error return means the evaluation itself broke (storage failure,
// timeout), never that the rule simply did not match.
type TargetingPredicate interface {
	Name() string
	Evaluate(ctx context.Context, rc RequestContext) (TargetingPredicateResult, error)
}

// TargetingPredicateSpec is the declarative form a predicate is persisted
// in: a type name plus string attributes. Specs are hydrated into
// TargetingPredicate values when targeting groups are loaded.
type TargetingPredicateSpec struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	// Negate inverts the predicate outcome. INDETERMINATE stays
	// INDETERMINATE under negation.
	Negate bool `json:"negate,omitempty"`
}

// TargetingGroup is a bundle of predicates attached to one piece of
// advertisement content. A content item is eligible when at least one of
// its groups evaluates TRUE, and a group evaluates TRUE only when all of
// its predicates do. A group with no predicates matches everyone.
type TargetingGroup struct {
	TargetingGroupID string  `json:"targeting_group_id"`
	ContentID        string  `json:"content_id"`
	ClickThroughRate float64 `json:"click_through_rate"`
	// PredicateSpecs is the persisted form of the group's rules.
	PredicateSpecs []TargetingPredicateSpec `json:"predicates"`
	// Predicates is the hydrated, evaluable form, populated at load time
	// and never serialized.
	Predicates []TargetingPredicate `json:"-"`
}
