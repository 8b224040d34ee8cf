// Package fstore implements store.IStore on top of a single-file embedded
// engine (see lib/db).
//
// Each store binds one engine handle to one database file located at
// <storageRoot>/tkv/<name>. Construction never fails: a store whose file
// could not be opened stays usable as an object and reports every
// operation as failed.
//
// The store tracks exactly one transaction slot. StartTransaction,
// CommitTransaction, and AbortTransaction are idempotent; Close aborts an
// open transaction rather than committing it.
//
// Scans share a pair of grow-only buffers across all entries of one call,
// so the slices passed to a result handler are only valid until the
// handler returns.
package fstore
