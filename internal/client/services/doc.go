// Package services drives drawings to a terminal state from the client side:
// Watcher polls the server and records what it saw in the local history,
// LineReporter renders the progress for a terminal or a log.
package services
