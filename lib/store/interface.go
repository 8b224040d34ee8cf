package store

import (
	"fmt"

	"github.com/tkv-io/tkv/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// AccessMode selects how a store (or a transaction) accesses the underlying
// engine. It is fixed at store construction.
type AccessMode uint8

const (
	// ReadWrite opens the engine with full read/write access.
	ReadWrite AccessMode = iota
	// ReadOnly opens the engine for reads only, memory-mapped.
	ReadOnly
)

func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "ro"
	case ReadWrite:
		return "rw"
	default:
		return "unknown"
	}
}

// TxState is the transaction state of a store. Modelling the state as an
// enum (instead of a bare boolean) makes the legal transitions explicit:
// Idle --start--> Active, Active --commit/abort--> Idle; re-entrant calls
// are idempotent no-ops.
type TxState uint8

const (
	TxIdle TxState = iota
	TxActive
)

// ResultHandler receives one key/value entry per invocation during a scan.
// The returned boolean requests continuation: returning false stops a full
// scan early. In exact-seek mode at most one entry is delivered and the
// return value is ignored.
//
// The byte slices are only valid for the duration of the call; the handler
// must copy anything it wants to keep.
type ResultHandler func(key, value []byte) bool

// ValueHandler receives the value bytes for a read. Same continuation and
// lifetime rules as ResultHandler.
type ValueHandler func(value []byte) bool

// StringHandler is the string-typed variant of ValueHandler.
type StringHandler func(value string) bool

// ErrorHandler receives a structured store error. Handlers are invoked
// synchronously on the calling goroutine.
type ErrorHandler func(err *Error)

// IStore is the generic interface for a transactional key-value store bound
// to one named database. Write operations report success as a boolean;
// read operations deliver data and errors exclusively through the supplied
// handlers. No method panics: a store whose engine failed to open fails
// every operation deterministically instead.
//
// A store instance is not safe for concurrent use from multiple goroutines
// without external synchronization; operations execute synchronously and
// strictly in call order.
type IStore interface {
	// IsInTransaction reports whether a transaction is active.
	IsInTransaction() bool

	// StartTransaction begins a transaction and reports whether one is now
	// active. Calling it inside an active transaction is an idempotent
	// no-op returning true. The mode argument is advisory; the engine's
	// access mode is fixed at open time.
	StartTransaction(mode AccessMode) bool

	// CommitTransaction commits the active transaction and reports whether
	// the engine committed successfully. The transaction slot is freed even
	// when the engine reports failure; callers must treat a false return as
	// "persistence unknown", not as a rollback. A no-op returning true when
	// no transaction is active.
	CommitTransaction() bool

	// AbortTransaction rolls back the active transaction. A no-op when no
	// transaction is active or the store is not open.
	AbortTransaction()

	// Write stores the key/value pair and reports success. Not atomic with
	// other writes unless wrapped in an explicit transaction.
	Write(key, value []byte) bool

	// WriteString is the string-typed form of Write. The value's own byte
	// length is used for the stored value.
	WriteString(key, value string) bool

	// Read looks up the exact key and forwards the value bytes to the
	// result handler; the handler is not invoked when the key is absent.
	// Failures are reported through the error handler.
	Read(key []byte, result ValueHandler, onErr ErrorHandler)

	// ReadString is the string-typed form of Read.
	ReadString(key string, result StringHandler, onErr ErrorHandler)

	// Remove deletes the key. An optional error handler receives a NotOpen
	// error when the store has no handle; engine-level delete failures are
	// not reported. Without a handler a default logging handler is used.
	Remove(key []byte, onErr ...ErrorHandler)

	// Scan iterates entries in engine key order. With an empty key every
	// entry is visited until the result handler returns false; with a
	// non-empty key exactly the matching entry (if any) is delivered once.
	// A seek miss is not an error: neither handler is invoked for it.
	Scan(key []byte, result ResultHandler, onErr ErrorHandler)

	// DiskUsage returns the size of the store's database file in bytes.
	DiskUsage() int64

	// Exists reports whether the store holds a valid open engine handle.
	Exists() bool

	// RemoveFromDisk deletes the store's database file.
	RemoveFromDisk() error

	// Close aborts any active transaction (never commits it) and releases
	// the engine handle. Safe to call on a store that never opened.
	Close()
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// ErrorCode classifies store-level failures.
type ErrorCode uint8

const (
	ErrOpenFailure     ErrorCode = iota // engine could not open/create the file
	ErrNotOpen                          // operation on a store with no valid handle
	ErrTxFailure                        // begin/commit failed at the engine level
	ErrCursorInit                       // cursor initialization failed
	ErrEngineOperation                  // generic engine store/delete/fetch failure
)

func (c ErrorCode) String() string {
	switch c {
	case ErrOpenFailure:
		return "OpenFailure"
	case ErrNotOpen:
		return "NotOpen"
	case ErrTxFailure:
		return "TransactionFailure"
	case ErrCursorInit:
		return "CursorInitFailure"
	case ErrEngineOperation:
		return "EngineOperationFailure"
	default:
		return "Unknown"
	}
}

// Error is the uniform error reported through ErrorHandler callbacks. Every
// error carries the logical store name, the engine's error code (-1 for
// conditions detected by this layer, such as NotOpen), and a human-readable
// message - preferring the engine's own error log content when available.
type Error struct {
	Store      string    // logical store name
	Code       ErrorCode // store-level classification
	EngineCode int       // engine-supplied code, -1 for layer-detected errors
	Msg        string    // human-readable message
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("store %q: %s (engine code %d): %s", e.Store, e.Code, e.EngineCode, e.Msg)
}

// NewError creates a layer-detected store error (engine code -1).
func NewError(storeName string, code ErrorCode, msg string) *Error {
	return &Error{
		Store:      storeName,
		Code:       code,
		EngineCode: -1,
		Msg:        msg,
	}
}

// NewEngineError creates a store error from a failed engine operation. The
// message prefers the engine's error log; when the log is empty the failing
// operation's name is used instead, matching the error-log convention.
func NewEngineError(storeName string, code ErrorCode, op string, eng db.Engine, err error) *Error {
	msg := ""
	if eng != nil {
		msg = eng.ErrLog()
	}
	if msg == "" {
		msg = op
	}
	return &Error{
		Store:      storeName,
		Code:       code,
		EngineCode: db.Code(err),
		Msg:        msg,
	}
}
