// Package memory provides in-memory implementations of the driven storage
// ports. State is lost on exit; the stores back tests and `serve --ephemeral`.
package memory
