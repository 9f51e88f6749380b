package pricing

import "context"

// LookupPort abstracts the price list lookup for the resolver.
type LookupPort interface {
	Lookup(ctx context.Context, tenantID, productID int64, tier string) (float64, error)
}

// Resolver returns the authoritative unit price for a (product, tier) pair.
// Prices are looked up fresh on every call: the price list may change between
// orders, so results are never cached across requests.
type Resolver struct {
	repo LookupPort
}

// NewResolver builds a Resolver.
func NewResolver(repo LookupPort) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the unit price, or a PriceNotFoundError when the
// (product, tier) combination is absent from the price list.
func (r *Resolver) Resolve(ctx context.Context, tenantID, productID int64, tier string) (float64, error) {
	return r.repo.Lookup(ctx, tenantID, productID, tier)
}
