package biz

import (
	"time"

	"github.com/looplj/forgehub/internal/resolver"
)

// NewAccountResolver wires the accounts resolver. Identity lives in an
// external system; the seedable resolver stands in for its read API and
// the cache keeps population cheap for hot accounts.
func NewAccountResolver(registry *resolver.Registry) *resolver.Static {
	accounts := resolver.NewStatic()
	registry.Register("accounts", resolver.NewCached(accounts, 5*time.Minute, 10*time.Minute))

	return accounts
}
