// Package model defines the persisted shapes of the fulfillment core.
//
// Products hold stock as ordered sequences of opaque StockUnit tokens, split
// into a main sequence and optional named variants. Orders hold line items whose
// AssignedData receives units either from the allocation engine or from an
// operator submission.
//
// # Invariants
//
//   - A StockUnit popped from a stock sequence is never re-inserted and is
//     attached to at most one order.
//   - After an automatic allocation attempt, len(AssignedData) is 0 or Quantity.
//   - Order status only moves forward: PENDING < PROCESSING < {PAID, FAILED, EXPIRED}.
//
// Every type here is plain data. Mutation happens through the store's
// transactions, driven by the allocation, correlation, and payment packages.
package model
