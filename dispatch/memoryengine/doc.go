// Package memoryengine provides an in-memory entity repository and
// applied-signal ledger with the same version-check semantics as the
// Postgres-backed engine. It is intended for tests and for embedding the
// dispatch core without external infrastructure; contents do not survive a
// restart.
package memoryengine
