// Package bolt implements the db.Engine capability interface on top of
// bbolt, the single-file B+tree database. One engine handle corresponds to
// one open database file holding exactly one bucket.
//
// Mapping of the capability interface onto bbolt:
//
//   - Open: bolt.Open with create-if-missing semantics; read-only handles
//     map the existing file read-only (bbolt is mmap-backed, so read-only
//     access is memory-mapped by construction). Opening a missing file
//     read-only fails and the caller observes the open error.
//
//   - Transactions: Begin starts a bbolt transaction (writable unless the
//     handle is read-only). While it is active, point operations and cursors
//     join it; Commit/Rollback end it. Without an explicit transaction,
//     point operations autocommit through bbolt's Update.
//
//   - Cursors: bucket cursors iterate in byte-lexicographic key order.
//     SeekExact uses bbolt's nearest-neighbour Seek and reports a miss for
//     anything but an exact key match. A cursor opened outside an explicit
//     transaction owns a private read transaction that is released on Close.
//
//   - Error log: the engine records the most recent error message, queryable
//     via ErrLog, mirroring the error-log convention of embedded C engines.
//     Engine error codes (CodeGeneric, CodeReadOnly, ...) surface through
//     db.OpError.
//
// Thread Safety:
//
//	The engine handle is not safe for concurrent use. The store layer above
//	it issues calls strictly sequentially; cross-process access to the same
//	file is arbitrated by bbolt's file lock.
package bolt
