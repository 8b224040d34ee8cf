// Package db defines the capability interface between the store layer and an
// embedded key-value engine, together with the engine error type.
//
// The interface is deliberately narrow: open (via an EngineFactory), close,
// explicit transaction control (Begin/Commit/Rollback), point Store/Delete,
// ordered cursors with exact-match seek, and an error-log query. Everything
// below this line - physical file format, page layout, locking, durability -
// is owned by the engine implementation and opaque to callers.
//
// Key Components:
//
//   - Engine Interface: one value per open handle on a single database file.
//     Implementations must provide a stable, seekable byte ordering over keys
//     so that cursor iteration and exact-seek behave deterministically.
//
//   - Cursor Interface: a transient iterator scoped to a single scan. It
//     follows the size-query-then-copy convention of embedded engines:
//     KeySize/ValueSize report required buffer lengths without copying, and
//     ReadKey/ReadValue copy into caller-owned buffers. This lets the store
//     layer reuse grow-only buffers across entries.
//
//   - OpError: the uniform engine error carrying the failing primitive's
//     name and an engine-specific numeric code. The Code helper extracts the
//     code from any error, returning -1 for layer-detected conditions.
//
//   - EngineFactory: dependency injection point for the store layer, allowing
//     it to work with any Engine implementation without modification.
//
// Implementations:
//
//	The engines/bolt package provides the production implementation backed
//	by bbolt (one single-file B+tree database per store). The db/testing
//	package runs a shared conformance suite against any implementation.
package db
