// Package filestore opens stored files for signed download links.
//
// A [Source] resolves a relative path recorded by the engine when the link was
// granted. Paths never come from the request itself. Missing files surface as
// [fs.ErrNotExist] so callers can tell a gone file from an I/O failure.
//
// # What this package must NOT do
//
//   - Accept absolute or parent-traversing paths.
//   - Decide whether a caller may download a file.
package filestore
