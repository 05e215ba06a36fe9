// Package poller drives periodic refresh of queue views.
//
// Loop is a generic tick loop: each tick starts at most one fetch, the fetch
// runs on its own goroutine under a context detached from the loop (bounded by
// FetchTimeout), and its result is handled back on the loop goroutine so every
// piece of per-view state is mutated sequentially. Ticks that arrive while a
// fetch is outstanding are skipped, not queued. Once the loop stops, late fetch
// results are discarded.
//
// SnapshotLoop specializes Loop for queue snapshots: it validates each fetched
// snapshot, reconciles it against the loop's private baseline, hands the patch
// to a Sink, and adopts the snapshot as the new baseline only when the sink
// accepted the patch.
package poller
