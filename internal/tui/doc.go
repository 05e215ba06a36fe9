// Package tui renders the live staff dashboard in the terminal.
//
// The screen shows one column per barber. Each column owns a queue.Rows that
// is mutated only by patches arriving through a Feed, on the bubbletea update
// goroutine. Serving is dispatched through the dashboard board; the served row
// disappears when the next reconciled snapshot arrives.
package tui
