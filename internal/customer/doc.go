// Package customer implements the walk-in customer flows: validating and
// joining a barber's queue, previewing the position a new client would get,
// following one's own position, and leaving.
//
// The customer's ticket is persisted through the session package so a later
// invocation can resume tracking. Position tracking tolerates transient "not
// found" answers: the client is only treated as gone after
// polling.missing_tolerance consecutive misses, and fetch failures never count
// as misses.
package customer
