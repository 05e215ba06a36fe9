// Package dashboard maintains the staff view of every barber's queue.
//
// Each configured barber gets an independent poller.SnapshotLoop with its own
// baseline and rendered rows; views never share state and their cycles may
// interleave freely. Serving a client is dispatched through Board.Serve, keyed
// by client id: the board resolves the owning barber from the last applied
// snapshots, calls the backend, and pokes that barber's loop so the next
// reconciled snapshot removes the row. Rendered rows are never edited outside
// the reconciler.
package dashboard
