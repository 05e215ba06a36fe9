// Package queue models a barber's waiting list as keyed, ordered snapshots and
// reconciles a rendered view of one snapshot into the next.
//
// A Snapshot is the authoritative serving order fetched from the backend; it is
// replaced wholesale on every poll and never mutated. Reconcile diffs two
// snapshots by key (not by value) and emits a Patch: removals, an optional
// placeholder toggle, insertions at their position in the new order, and rank
// updates for entries whose 1-based position moved. Entries present in both
// snapshots are never rebuilt, so anything a renderer attached to them keeps its
// identity across polls.
//
// Rows is the reference view. It applies patches the way a renderer would and
// exposes the resulting state so callers (and tests) can confirm the rendered
// list matches the latest snapshot exactly.
//
// Reconcile is a pure function over well-formed input. Snapshots with duplicate
// ids must be rejected with Validate before they reach it.
package queue
