// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The sync engine is split into shared retry, poll and pagination
// helpers (retry.go, pagination.go), two strategies (full snapshot and
// transactional delta), the LoadOrchestrator that drives them, and the
// HoldingsSink actor that persists what they stream.
//
// Every wait is a timer-scheduled step on the run's goroutine; nothing
// here sleeps on a caller's goroutine.
package services
