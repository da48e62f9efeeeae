// Package domain defines the core business entities for hrwatch.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Credential: A user's OAuth token pair for the wearable vendor
//   - Sample: A single heart-rate reading
//   - Baseline: A user's smoothed resting heart-rate reference
//   - PollState: Scheduler bookkeeping for one user
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
