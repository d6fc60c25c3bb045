// Package domain defines the core business entities for mediatheque.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Video: An indexed media asset with its enrichment state
//   - Task: A unit of background work driven by the scheduler
//   - ParsedQuery: The structured form of a free-text search query
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
