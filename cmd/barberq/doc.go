// Package main hosts the barberq CLI entrypoint and command graph.
//
// Customer commands (join, leave, status, preview) keep a session on disk so a
// later invocation knows which client it is. Staff commands (queue, dashboard)
// talk to the authenticated endpoints and render live queues through the same
// reconciled views the dashboard uses. Configuration resolution, logging setup
// and backend client construction live in commandContext.
package main
