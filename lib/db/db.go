package db

import "fmt"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplBolt Implementation = "bolt"
)

// EngineInfo holds metadata about an open engine handle.
// It is not guaranteed that all fields are filled in by every implementation.
type EngineInfo struct {
	Path     string         `json:"path"`
	Type     Implementation `json:"type"`
	ReadOnly bool           `json:"read_only"`
	Metadata interface{}    `json:"metadata"`
}

// EngineFactory is a function type that opens an engine handle for the file
// at the given path. This is used to abstract the creation of the engine from
// the store implementation. The file is created if it does not exist (unless
// the engine cannot create files in read-only mode, in which case the open
// fails and the caller observes a nil handle).
type EngineFactory func(path string, readOnly bool) (Engine, error)

// --------------------------------------------------------------------------
// Engine Error Type
// --------------------------------------------------------------------------

// OpError is the error type returned by engine implementations. It carries
// the name of the failing engine primitive and an engine-specific numeric
// code alongside the underlying error.
type OpError struct {
	Op   string // name of the engine primitive that failed (e.g. "begin")
	Code int    // engine-specific error code
	Err  error  // underlying error, may be nil
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s (code %d): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("engine %s (code %d)", e.Op, e.Code)
}

// Unwrap supports errors.Is/errors.As on the wrapped error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// EngineCode returns the engine-specific error code.
func (e *OpError) EngineCode() int {
	return e.Code
}

// Code extracts the engine error code from an error. It returns -1 for
// errors that do not originate from an engine primitive (layer-detected
// conditions keep the -1 convention).
func Code(err error) int {
	type coded interface {
		EngineCode() int
	}
	if c, ok := err.(coded); ok {
		return c.EngineCode()
	}
	return -1
}

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// Engine is the narrow capability interface the store layer consumes from an
// embedded key-value engine. One Engine value corresponds to exactly one open
// handle on a single database file. Implementations must provide stable,
// seekable byte ordering over keys for Cursor iteration; everything else
// (physical format, locking, durability) is owned by the engine.
//
// Engines are not required to be safe for concurrent use; the store layer
// issues calls strictly sequentially.
type Engine interface {

	// --------------------------------------------------------------------------
	// Transaction Control
	// --------------------------------------------------------------------------

	// Begin starts an explicit transaction on the handle. Point operations
	// and cursors opened while the transaction is active join it. At most
	// one explicit transaction may be active per handle; a second Begin
	// without an intervening Commit or Rollback is an error.
	Begin() (err error)

	// Commit commits the active transaction. It is an error if no
	// transaction is active.
	Commit() (err error)

	// Rollback aborts the active transaction. Calling Rollback with no
	// active transaction is a no-op.
	Rollback() (err error)

	// --------------------------------------------------------------------------
	// Point Operations
	// --------------------------------------------------------------------------

	// Store inserts or updates the entry for key. Outside an explicit
	// transaction the write is committed on its own.
	Store(key, value []byte) (err error)

	// Delete removes the entry for key. Deleting a missing key is not an
	// error.
	Delete(key []byte) (err error)

	// --------------------------------------------------------------------------
	// Cursor Operations
	// --------------------------------------------------------------------------

	// OpenCursor creates a cursor over the engine's key order. The caller
	// must release it with Close before the next transaction-control call
	// on this handle.
	OpenCursor() (cur Cursor, err error)

	// --------------------------------------------------------------------------
	// Introspection
	// --------------------------------------------------------------------------

	// ErrLog returns the engine's most recent error message, or the empty
	// string if none was recorded. Mirrors the error-log query convention
	// of embedded engines.
	ErrLog() (msg string)

	// Info returns metadata about the open handle.
	Info() (info EngineInfo)

	// Close releases the handle. An active transaction is rolled back.
	Close() (err error)
}

// Cursor is an engine-owned iterator over key/value entries in key order.
// A cursor is transient: it is created for the duration of a single scan and
// must be released before the scan returns.
//
// The size query methods (KeySize, ValueSize) report the byte length of the
// current entry without copying, so callers can grow their destination
// buffers before calling ReadKey/ReadValue. ValueSize is 64-bit wide by
// engine convention.
type Cursor interface {
	// First positions the cursor at the first entry in key order.
	First()

	// Next advances the cursor to the next entry.
	Next()

	// Valid reports whether the cursor is positioned at an entry.
	Valid() bool

	// SeekExact positions the cursor at the entry whose key matches key
	// exactly. It reports whether such an entry exists; on a miss the
	// cursor is left invalid and no error is returned.
	SeekExact(key []byte) (found bool, err error)

	// KeySize returns the byte length of the current entry's key.
	KeySize() (n int, err error)

	// ValueSize returns the byte length of the current entry's value.
	ValueSize() (n int64, err error)

	// ReadKey copies the current entry's key into dst and returns the
	// number of bytes copied. dst must be at least KeySize bytes long.
	ReadKey(dst []byte) (n int, err error)

	// ReadValue copies the current entry's value into dst and returns the
	// number of bytes copied. dst must be at least ValueSize bytes long.
	ReadValue(dst []byte) (n int, err error)

	// Close releases the cursor against its handle.
	Close() (err error)
}
