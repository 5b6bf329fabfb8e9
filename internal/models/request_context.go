package models

// RequestContext holds everything known about a single ad request: who is
// asking and where the advertisement will be rendered. The customer and
// marketplace identifiers come straight from the caller; the contextual
// fields (device, OS, browser, country) are derived by the HTTP layer from
// the User-Agent string and client IP so that contextual predicates can be
// evaluated without re-parsing on every rule.
//
// A RequestContext is immutable for the lifetime of one selection call and
// is shared read-only by all predicate evaluations.
type RequestContext struct {
	CustomerID    string // Identifier of the requesting customer. Empty for anonymous traffic.
	MarketplaceID string // Marketplace the advertisement will be rendered on.
	DeviceType    string // Device type (e.g. "mobile", "desktop", "tablet"). Derived from User-Agent.
	OS            string // Operating system name and version. Derived from User-Agent.
	Browser       string // Browser name and version. Derived from User-Agent.
	Country       string // ISO 3166-1 alpha-2 country code derived from the request's IP address.
}

// Recognized reports whether the request carries a customer identity.
// Anonymous requests have an empty customer ID.
func (rc RequestContext) Recognized() bool {
	return rc.CustomerID != ""
}
