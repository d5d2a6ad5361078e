// Package resolve turns an unordered set of discovered mod packages into a
// dependency-correct load order.
//
// Validation runs in two passes: the first checks each manifest on its own
// (well-formed ID, parseable version, duplicate IDs across the set), the
// second checks dependency existence, minimum versions, and cycles.
// Failure is contagious along required edges only; optional dependencies
// degrade to a warning. The final order is a topological sort with
// case-insensitive ID order breaking ties, so load order is deterministic.
package resolve
