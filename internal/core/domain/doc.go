// Package domain defines the core business entities for holdings-sync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - HoldingRecord: A vendor title/package/provider holding
//   - SnapshotStatus: The state of a remote export job
//   - LoadRequest: Everything needed to resume a page load
//   - SinkMessage: A notification consumed by the holdings sink
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
