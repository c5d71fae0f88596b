// Package services provides the stateless domain services of delivery planning.
//
// The package includes:
//   - ETAEstimator: travel minutes from distance, speed and priority
//   - RouteOptimizer: priority-weighted nearest neighbour stop sequencing
//   - DeliveryConstraintChecker: assignment, cancellation and retry rules
//   - StatusHistoryLedger: append-only history recording for one unit of work
//   - NotificationPolicy and AuditPolicy: decide the side effects of a committed change
//
// Lookup tables (PriorityTable, delivery.TransitionTable) are built once and
// injected. Apart from the ledger every service is an immutable value safe
// for concurrent use.
package services
