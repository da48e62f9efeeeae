// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the engine to run:
//
//   - CredentialStore: OAuth credential persistence (auth.db)
//   - SampleStore: Heart-rate sample persistence (heart_rate.db)
//   - BaselineStore: Per-user baseline persistence
//   - PollStateStore: Scheduler bookkeeping and poll history
//   - TokenRefresher: OAuth refresh-token grant
//   - SampleFetcher: Remote heart-rate API
//   - SettingsProvider: Polling and detection configuration
//
// # Optional Interfaces
//
// These can be nil - the engine degrades gracefully:
//
//   - Notifier: Anomaly delivery. Without it, anomalies are only recorded.
//   - PollPolicy: Quiet hours and similar gating. Without it, every due
//     user is polled and every anomaly is emitted.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
