// Package aggregates defines domain-facing aggregate contracts for the
// storefront engine: cart, order placement, order lifecycle, stock and payment.
//
// These contracts avoid persistence/transport details and mark the write
// boundaries where inventory and payment invariants are enforced atomically.
package aggregates
