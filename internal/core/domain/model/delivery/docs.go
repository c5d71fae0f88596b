// Package delivery provides the Delivery aggregate and its lifecycle state machine.
//
// The package includes:
//   - Status: the lifecycle states, with DELIVERED and CANCELLED terminal
//   - Priority: LOW, NORMAL, HIGH and CRITICAL urgency levels
//   - TransitionTable: the frozen map of allowed next states
//   - TransitionValidator: applies the table plus idempotence and force-override policy
//   - Delivery: the aggregate root holding status, assignment, schedule and estimates
//   - StatusHistoryEntry: the immutable record of one accepted transition
//
// State transitions (default table):
//
//	PENDING          -> ASSIGNED, CANCELLED
//	ASSIGNED         -> PICKED_UP, PENDING, CANCELLED
//	PICKED_UP        -> IN_TRANSIT, FAILED
//	IN_TRANSIT       -> OUT_FOR_DELIVERY, FAILED
//	OUT_FOR_DELIVERY -> DELIVERED, FAILED
//	FAILED           -> ASSIGNED, CANCELLED
//	DELIVERED, CANCELLED are terminal
//
// Validation never mutates state. Persisting a transition together with its
// history entry is the job of the application layer's unit of work.
package delivery
