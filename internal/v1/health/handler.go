// Package health implements the readiness probe for the HTTP control
// surface (C8): liveness is cheap and unconditional, readiness checks
// the item store's underlying connection when Redis-backing is enabled.
package health

import "context"

// ItemStorePinger is satisfied by *itemstore.Store; kept as a narrow
// interface here so health does not import itemstore's Redis dependency
// directly.
type ItemStorePinger interface {
	Ping(ctx context.Context) error
}

// Checker reports service readiness. A nil ItemStore means the deployment
// runs without the external item store (C9 is fully optional, §9 Open
// Question: random-item suggestions degrade to empty rather than being
// required), so readiness never depends on it in that case.
type Checker struct {
	ItemStore ItemStorePinger
}

// NewChecker constructs a Checker wrapping the given item store adapter,
// which may be nil.
func NewChecker(store ItemStorePinger) *Checker {
	return &Checker{ItemStore: store}
}

// Ready reports whether the service can accept traffic. Only the item
// store's connectivity is checked: the Room Registry and Hub have no
// external dependency to go unready on.
func (c *Checker) Ready(ctx context.Context) error {
	if c == nil || c.ItemStore == nil {
		return nil
	}
	return c.ItemStore.Ping(ctx)
}
