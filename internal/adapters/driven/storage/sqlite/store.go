package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/hrwatch/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/hrwatch/internal/core/ports/driven"
)

// Database file names.
const (
	AuthDBName      = "auth.db"
	HeartRateDBName = "heart_rate.db"
)

// dsnOptions enables WAL for concurrent readers, waits on locks instead of
// failing, and takes the write lock when a transaction begins.
const dsnOptions = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"

// Store wraps one SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// AuthStore is the credential database.
type AuthStore struct {
	*Store
}

// HeartRateStore is the sample, baseline and poll state database.
type HeartRateStore struct {
	*Store
}

// DefaultDataDir returns ~/.hrwatch/data.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".hrwatch", "data"), nil
}

// OpenAuthStore opens (creating if needed) auth.db in dataDir.
// If dataDir is empty, defaults to ~/.hrwatch/data.
func OpenAuthStore(dataDir string) (*AuthStore, error) {
	s, err := open(dataDir, AuthDBName, migrations.Auth())
	if err != nil {
		return nil, err
	}
	return &AuthStore{Store: s}, nil
}

// OpenHeartRateStore opens (creating if needed) heart_rate.db in dataDir.
// If dataDir is empty, defaults to ~/.hrwatch/data.
func OpenHeartRateStore(dataDir string) (*HeartRateStore, error) {
	s, err := open(dataDir, HeartRateDBName, migrations.HeartRate())
	if err != nil {
		return nil, err
	}
	return &HeartRateStore{Store: s}, nil
}

func open(dataDir, name string, migrationsFS fs.FS) (*Store, error) {
	if dataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, name)
	db, err := sql.Open("sqlite", dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrationsFS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations on %s: %w", name, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CredentialStore returns the credential store.
func (s *AuthStore) CredentialStore() driven.CredentialStore {
	return &credentialStore{store: s.Store}
}

// SampleStore returns the sample store.
func (s *HeartRateStore) SampleStore() driven.SampleStore {
	return &sampleStore{store: s.Store, pageSize: defaultPageSize}
}

// BaselineStore returns the baseline store.
func (s *HeartRateStore) BaselineStore() driven.BaselineStore {
	return &sampleStore{store: s.Store, pageSize: defaultPageSize}
}

// PollStateStore returns the poll state store.
func (s *HeartRateStore) PollStateStore() driven.PollStateStore {
	return &pollStateStore{store: s.Store}
}

// migrate applies every NNN_name.up.sql in fsys newer than the recorded
// schema version, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		err = withTx(context.Background(), s.db, func(ctx context.Context, tx dbtx) error {
			if _, err := tx.ExecContext(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version)
			return err
		})
		if err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}
