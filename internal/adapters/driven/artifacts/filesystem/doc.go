// Package filesystem reads drift artifacts from a local file or directory.
//
// Each *.json file is one nightly run. Files are validated against the
// embedded artifact schema before decoding; invalid files are skipped with a
// warning so that one corrupt artifact does not hide the rest of the history.
package filesystem
