// Package harness runs fulfillment scenarios against a fresh store.
//
// A scenario seeds a catalog, drives the real operations (payment events,
// allocation, operator replies, confirmation, restocks) and then checks the
// recorded trace and the final documents.
//
// # Scenario Format
//
//	name: capture_then_reply
//	description: "A captured order is allocated, then completed by an operator"
//	catalog: catalogs/shop.yaml
//	flow:
//	  - invoke: payment
//	    args: { order: O1, kind: CAPTURED }
//	    expect:
//	      case: ok
//	      result: { to: PROCESSING, transitioned: true }
//	  - invoke: resolve
//	    args: { reply: "ACC001", quoted: "Ref: O1 | Idx: 0" }
//	assertions:
//	  - type: trace_count
//	    action: payment
//	    count: 1
//	  - type: final_state
//	    table: orders
//	    id: O1
//	    expect: { status: PROCESSING, "line_items.0.assigned_data": [ACC001] }
//
// # Actions
//
//   - payment: order, kind, amount (optional)
//   - allocate: order
//   - confirm: order
//   - resolve: reply, plus quoted (the request being answered) or ref (payload or token)
//   - restock: product, variant (optional), units
//   - requests: order
//
// A step's completion case is "ok" or the error code (ORDER_NOT_FOUND,
// INVALID_TRANSITION, ...). Expected results are subset matches against
// the JSON form of what the operation returned.
//
// # Assertion Types
//
//   - trace_contains: an action appears in the trace with matching args
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly N times
//   - final_state: a stored order or product matches, by dotted path
//
// # Deterministic Testing
//
// Each run uses an in-memory SQLite database, a logical clock for trace
// sequence numbers and sequential allocation run ids, so identical scenarios
// produce identical traces for golden file comparison.
package harness
