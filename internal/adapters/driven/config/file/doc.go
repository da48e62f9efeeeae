// Package file loads hrwatch's TOML configuration and keeps it current.
//
// The Store decodes ~/.hrwatch/config.toml (or an explicit path) over the
// built-in defaults, applies environment overrides, validates the result,
// and serves it through driven.SettingsProvider. Watch reloads the file on
// change; an edit that fails to parse or validate is logged and ignored.
package file
