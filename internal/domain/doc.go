// Package domain defines the core record types and interfaces.
//
// This package contains concept-oriented files (run.go, worker.go,
// assignment.go, etc.) with shared types and cross-cutting interfaces.
// No implementation code - just contracts. Prevents circular imports by
// keeping interfaces on the consumer side.
package domain
