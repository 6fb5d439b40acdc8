// Package registry provides the bank-vendor registry consumed by the
// reconciliation engine, with a static in-process source and a TTL cache
// decorator for slower backends.
package registry

import (
	"context"

	"github.com/shekelsync/shekelsync/internal/vendors"
)

// Static serves the compiled-in list of known bank vendors. It never fails.
type Static struct{}

// NewStatic creates a registry backed by the compiled-in vendor list.
func NewStatic() *Static {
	return &Static{}
}

// BankVendors returns a copy of the known bank vendor identifiers.
func (s *Static) BankVendors(_ context.Context) ([]string, error) {
	known := vendors.BankVendors()
	out := make([]string, len(known))
	copy(out, known)
	return out, nil
}
