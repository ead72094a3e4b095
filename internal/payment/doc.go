// Package payment applies payment gateway events to order status.
//
// Status only moves forward along PENDING < PROCESSING < {PAID, FAILED,
// EXPIRED}. An event whose target is not strictly ahead of the current
// status is a silent no-op, which absorbs the gateway's at-least-once
// delivery. Identical events (same order, kind and amount) are also recorded
// in a ledger keyed by a content hash and short-circuit on redelivery.
//
// A transition into PROCESSING hands the order to the allocation engine once,
// after the status change has committed. The guard never touches line items.
package payment
