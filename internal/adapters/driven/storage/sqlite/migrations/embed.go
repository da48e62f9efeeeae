// Package migrations embeds SQL migration files for the SQLite stores.
package migrations

import (
	"embed"
	"io/fs"
)

// FS contains all SQL migration files embedded at compile time.
//
//go:embed auth/*.sql heartrate/*.sql
var FS embed.FS

// Auth returns the migrations of the credential database.
func Auth() fs.FS {
	sub, _ := fs.Sub(FS, "auth")
	return sub
}

// HeartRate returns the migrations of the heart-rate database.
func HeartRate() fs.FS {
	sub, _ := fs.Sub(FS, "heartrate")
	return sub
}
