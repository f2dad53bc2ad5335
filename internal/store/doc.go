// Package store implements the single-slot project persistence layer.
//
// A Store is a flat string key/value map with synchronous Get/Set, the
// server-side counterpart of a browser profile's local storage: one project,
// last write wins, no versioning. Writes beyond the configured byte quota fail
// with ErrQuotaExceeded and leave the previous contents untouched.
package store
