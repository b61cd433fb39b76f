// Package file provides the TOML-backed configuration store for arrgate.
//
// The file lives at <config-dir>/config.toml (default ~/.arrgate). Nested
// tables are flattened into dot-notation keys on load, so
//
//	[drift.providers.qobuz]
//	threshold = 5
//
// is read back as "drift.providers.qobuz.threshold", and written back as
// nested tables on save.
package file
