// Package sqlite provides SQLite-based implementations of the driven store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Two databases are kept apart:
//
//   - auth.db (AuthStore): CredentialStore
//   - heart_rate.db (HeartRateStore): SampleStore, BaselineStore, PollStateStore
//
// user_id is the only link between them. No foreign key spans the two files.
//
// # Schema
//
// Each database's schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the databases are stored in ~/.hrwatch/data/
//
// # Thread Safety
//
// All operations are thread-safe. The stores rely on SQLite in WAL mode with a
// busy timeout; multi-statement writes run in one transaction.
package sqlite
