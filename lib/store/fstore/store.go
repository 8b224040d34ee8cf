package fstore

import (
	"errors"
	"math"

	"github.com/tkv-io/tkv/lib/db"
	"github.com/tkv-io/tkv/lib/db/engines/bolt"
	"github.com/tkv-io/tkv/lib/db/util"
	"github.com/tkv-io/tkv/lib/store"
	"go.uber.org/zap"
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a file store during construction.
type Options struct {
	// Engine opens the underlying engine handle. Nil selects the bolt
	// engine.
	Engine db.EngineFactory

	// Logger receives open failures, write diagnostics, and the output of
	// the default error handler. Nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns the default file store options.
func DefaultOptions() *Options {
	return &Options{
		Engine: bolt.Open,
	}
}

// --------------------------------------------------------------------------
// Store Implementation
// --------------------------------------------------------------------------

// storeImpl binds one engine handle to a named database file under the
// storage root and owns the transaction state for it.
type storeImpl struct {
	storageRoot     string
	name            string
	mode            store.AccessMode
	allowDuplicates bool // accepted but ignored, see New
	path            string

	// eng is nil when the open failed; every operation checks this and
	// fails deterministically instead of reaching the engine
	eng     db.Engine
	txState store.TxState

	logger *zap.Logger
}

var _ store.IStore = (*storeImpl)(nil)

// New creates a store bound to the database file for name under the storage
// root, opening it through the default (bolt) engine. Construction never
// fails: when the engine cannot open the file the error is logged, Exists
// reports false, and every operation fails with a NotOpen error.
//
// The allowDuplicates flag is accepted for interface compatibility but has
// no effect; keys are always unique.
func New(storageRoot, name string, mode store.AccessMode, allowDuplicates bool) store.IStore {
	return NewWithOptions(storageRoot, name, mode, allowDuplicates, nil)
}

// NewWithOptions creates a store with the specified options (optional).
func NewWithOptions(storageRoot, name string, mode store.AccessMode, allowDuplicates bool, opts *Options) store.IStore {
	// Generate default options if not provided
	if opts == nil {
		opts = DefaultOptions()
	}

	factory := opts.Engine
	if factory == nil {
		factory = bolt.Open
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("fstore").With(zap.String("store", name))

	s := &storeImpl{
		storageRoot:     storageRoot,
		name:            name,
		mode:            mode,
		allowDuplicates: allowDuplicates,
		path:            util.StorePath(storageRoot, name),
		txState:         store.TxIdle,
		logger:          logger,
	}

	if err := util.EnsureStorageDir(storageRoot); err != nil {
		logger.Error("failed to create storage directory", zap.Error(err))
		return s
	}

	eng, err := factory(s.path, mode == store.ReadOnly)
	if err != nil {
		// the store stays constructed but non-functional; Exists() is
		// false and all operations report NotOpen
		logger.Error("engine open failed",
			zap.String("path", s.path),
			zap.Stringer("mode", mode),
			zap.Error(err))
		return s
	}

	s.eng = eng
	return s
}

// RemoveFromDisk deletes the database file for name under the storage root
// without opening it. Removing an absent file is not an error.
func RemoveFromDisk(storageRoot, name string) error {
	return util.RemoveFile(util.StorePath(storageRoot, name))
}

// --------------------------------------------------------------------------
// Error Reporting Helpers
// --------------------------------------------------------------------------

// defaultErrorHandler logs the error and otherwise swallows it. Used when a
// caller supplies no handler.
func (s *storeImpl) defaultErrorHandler() store.ErrorHandler {
	return func(err *store.Error) {
		s.logger.Warn("unhandled store error", zap.Error(err))
	}
}

// logDbError writes a best-effort diagnostic for operations that report
// failure through their return value only (write, transaction control).
func (s *storeImpl) logDbError(op string, err error) {
	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	if s.eng != nil {
		if msg := s.eng.ErrLog(); msg != "" {
			fields = append(fields, zap.String("engine_log", msg))
		}
	}
	s.logger.Warn("engine operation failed", fields...)
}

// reportDbError builds a structured error from a failed engine operation and
// hands it to the error handler.
func (s *storeImpl) reportDbError(code store.ErrorCode, op string, err error, onErr store.ErrorHandler) {
	onErr(store.NewEngineError(s.name, code, op, s.eng, err))
}

// --------------------------------------------------------------------------
// Interface Methods - Transaction Control (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) IsInTransaction() bool {
	return s.txState == store.TxActive
}

func (s *storeImpl) StartTransaction(_ store.AccessMode) bool {
	if s.eng == nil {
		return false
	}

	// idempotent re-entry
	if s.txState == store.TxActive {
		return true
	}

	if err := s.eng.Begin(); err != nil {
		s.logDbError("begin", err)
		return false
	}

	s.txState = store.TxActive
	return true
}

func (s *storeImpl) CommitTransaction() bool {
	if s.eng == nil {
		return false
	}

	if s.txState == store.TxIdle {
		return true
	}

	err := s.eng.Commit()

	// the transaction slot is freed no matter what the engine reported;
	// a false return means "persistence unknown", not "rolled back"
	s.txState = store.TxIdle

	if err != nil {
		s.logDbError("commit", err)
		return false
	}
	return true
}

func (s *storeImpl) AbortTransaction() {
	if s.eng == nil || s.txState == store.TxIdle {
		return
	}

	if err := s.eng.Rollback(); err != nil {
		s.logDbError("rollback", err)
	}
	s.txState = store.TxIdle
}

// --------------------------------------------------------------------------
// Interface Methods - Point Operations (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Write(key, value []byte) bool {
	if s.eng == nil {
		return false
	}

	if err := s.eng.Store(key, value); err != nil {
		s.logDbError("kv_store", err)
		return false
	}
	return true
}

func (s *storeImpl) WriteString(key, value string) bool {
	return s.Write([]byte(key), []byte(value))
}

func (s *storeImpl) Read(key []byte, result store.ValueHandler, onErr store.ErrorHandler) {
	if onErr == nil {
		onErr = s.defaultErrorHandler()
	}
	if s.eng == nil {
		onErr(store.NewError(s.name, store.ErrNotOpen, "not open"))
		return
	}

	s.Scan(key, func(_, value []byte) bool {
		if result == nil {
			return true
		}
		return result(value)
	}, onErr)
}

func (s *storeImpl) ReadString(key string, result store.StringHandler, onErr store.ErrorHandler) {
	s.Read([]byte(key), func(value []byte) bool {
		if result == nil {
			return true
		}
		return result(string(value))
	}, onErr)
}

func (s *storeImpl) Remove(key []byte, onErr ...store.ErrorHandler) {
	handler := s.defaultErrorHandler()
	if len(onErr) > 0 && onErr[0] != nil {
		handler = onErr[0]
	}

	if s.eng == nil {
		handler(store.NewError(s.name, store.ErrNotOpen, "not open"))
		return
	}

	// engine-level delete failures are intentionally not surfaced here
	if err := s.eng.Delete(key); err != nil {
		s.logger.Debug("kv_delete failed", zap.Error(err))
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Scan (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Scan(key []byte, result store.ResultHandler, onErr store.ErrorHandler) {
	if onErr == nil {
		onErr = s.defaultErrorHandler()
	}
	if s.eng == nil {
		onErr(store.NewError(s.name, store.ErrNotOpen, "not open"))
		return
	}

	cur, err := s.eng.OpenCursor()
	if err != nil {
		// no partial iteration on a failed cursor init
		s.reportDbError(store.ErrCursorInit, "cursor_init", err, onErr)
		return
	}
	// the cursor is released on every exit path, alongside the fetch
	// buffers which live only for this call
	defer cur.Close()

	fetch := newFetcher()

	if len(key) == 0 {
		// full scan: cursor validity drives the loop, the handler's
		// return stops it early
		for cur.First(); cur.Valid(); cur.Next() {
			cont, err := fetch.entry(cur, result)
			if err != nil {
				s.reportDbError(store.ErrEngineOperation, "cursor_fetch", err, onErr)
				return
			}
			if !cont {
				return
			}
		}
		return
	}

	// exact-seek: at most one entry, handler continuation ignored
	found, err := cur.SeekExact(key)
	if err != nil {
		s.reportDbError(store.ErrEngineOperation, "cursor_seek", err, onErr)
		return
	}
	if !found {
		// a miss is not an error; a diagnostic is its only trace
		s.logger.Debug("no entry for key", zap.ByteString("key", key))
		return
	}

	if _, err := fetch.entry(cur, result); err != nil {
		s.reportDbError(store.ErrEngineOperation, "cursor_fetch", err, onErr)
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Introspection (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) DiskUsage() int64 {
	return util.FileSize(s.path)
}

func (s *storeImpl) Exists() bool {
	return s.eng != nil
}

func (s *storeImpl) RemoveFromDisk() error {
	return util.RemoveFile(s.path)
}

func (s *storeImpl) Close() {
	if s.txState == store.TxActive {
		// an open transaction is aborted, never committed implicitly
		s.AbortTransaction()
	}

	if s.eng != nil {
		if err := s.eng.Close(); err != nil {
			s.logDbError("close", err)
		}
		s.eng = nil
	}
}

// --------------------------------------------------------------------------
// Cursor Fetch Protocol
// --------------------------------------------------------------------------

// fetcher owns the two scan buffers. Within one scan call the buffers are
// reused across entries and only reallocated when an entry exceeds the
// current capacity (monotonic growth); they are dropped with the fetcher
// when the scan returns, on every exit path.
type fetcher struct {
	keyBuf   []byte
	valueBuf []byte
}

func newFetcher() *fetcher {
	return &fetcher{}
}

// grow returns buf resized to n bytes, reallocating only when the capacity
// is insufficient.
func grow(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}

// entry copies the cursor's current key and value into the shared buffers
// and invokes the result handler. The returned boolean is the handler's
// continuation request.
func (f *fetcher) entry(cur db.Cursor, result store.ResultHandler) (bool, error) {
	// query sizes first so the buffers can be grown before any copy
	keyLen, err := cur.KeySize()
	if err != nil {
		return false, err
	}
	valueLen, err := cur.ValueSize()
	if err != nil {
		return false, err
	}

	// the engine reports 64-bit value lengths; anything the handler's
	// slice length cannot represent is rejected instead of truncated
	if valueLen > math.MaxInt {
		return false, &db.OpError{Op: "cursor_data", Code: -1,
			Err: errors.New("value length exceeds addressable range")}
	}

	f.keyBuf = grow(f.keyBuf, keyLen)
	f.valueBuf = grow(f.valueBuf, int(valueLen))

	if _, err := cur.ReadKey(f.keyBuf); err != nil {
		return false, err
	}
	if _, err := cur.ReadValue(f.valueBuf); err != nil {
		return false, err
	}

	if result == nil {
		return true, nil
	}
	return result(f.keyBuf, f.valueBuf), nil
}
