// Package allocation assigns stocked units to the line items of an order.
//
// Allocate runs one optimistic store transaction per call. Inside it, every
// unfilled line item is either filled completely from the head of its
// product's stock (FIFO) or left empty and flagged for manual handling; a
// line item is never filled partially. Order and product documents commit
// together or not at all, and a conflicting concurrent writer makes the store
// re-run the whole decision from fresh reads.
//
// The decision itself (plan) is a pure function of the documents read, so
// re-execution on retry is safe. Nothing leaves the process before commit.
//
// Outcomes per line item:
//
//	AUTO_FILLED      units popped from stock in this call
//	ALREADY_FILLED   the item already held exactly its quantity
//	NEEDS_MANUAL     with a Reason: INSUFFICIENT_STOCK, MANUAL_PRODUCT,
//	                 EXTERNAL_PRODUCT, PRODUCT_MISSING, VARIANT_MISSING,
//	                 EXCESS_UNITS (more units than its quantity)
package allocation
