package models

// CustomerProfile holds the per-customer attributes that profile-driven
// targeting predicates evaluate against. Profiles live in Redis and are
// written by upstream systems; this service only reads them.
type CustomerProfile struct {
	CustomerID string
	// AgeRange is a coarse bucket such as "18-21" or "35-44". Empty when
	// the customer's age is unknown.
	AgeRange string
	// Parent indicates the customer has a household with children.
	Parent bool
}
