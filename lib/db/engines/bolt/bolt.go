package bolt

import (
	"bytes"
	"os"
	"time"

	"github.com/tkv-io/tkv/lib/db"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// bucketName is the single bucket all entries live in. One store maps to one
// file maps to one bucket.
var bucketName = []byte("tkv")

// Engine-specific error codes, surfaced through db.OpError. Layer-detected
// conditions outside the engine keep the -1 convention (see db.Code).
const (
	CodeGeneric       = 1 // unclassified engine failure
	CodeTxActive      = 2 // Begin while a transaction is active
	CodeNoTx          = 3 // Commit without an active transaction
	CodeReadOnly      = 4 // write attempted on a read-only handle
	CodeCursorInvalid = 5 // entry access on an unpositioned cursor
	CodeShortBuffer   = 6 // destination buffer smaller than the entry
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures the bolt engine during Open.
type Options struct {
	Logger      *zap.Logger   // nil = no logging
	OpenTimeout time.Duration // flock wait before Open fails (0 = use default)
	FileMode    os.FileMode   // mode for newly created files (0 = 0644)
}

// DefaultOptions returns the default bolt engine options.
func DefaultOptions() *Options {
	return &Options{
		OpenTimeout: time.Second,
		FileMode:    0o644,
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// engineImpl implements db.Engine on top of a bbolt database file.
type engineImpl struct {
	bdb      *bolt.DB
	path     string
	readOnly bool
	logger   *zap.Logger

	// active explicit transaction, nil when none
	tx *bolt.Tx

	// most recent engine error message (error-log convention)
	errLog string
}

var _ db.Engine = (*engineImpl)(nil)

// Open opens (creating if missing) the bbolt file at path with default
// options. It matches db.EngineFactory.
//
// A read-only open maps the existing file read-only; opening a missing file
// read-only fails, since bbolt cannot create files without write access.
func Open(path string, readOnly bool) (db.Engine, error) {
	return OpenWithOptions(path, readOnly, nil)
}

// OpenWithOptions opens the bbolt file at path with the specified options
// (optional).
func OpenWithOptions(path string, readOnly bool, opts *Options) (db.Engine, error) {
	// Generate default options if not provided
	if opts == nil {
		opts = DefaultOptions()
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("engine.bolt")

	mode := opts.FileMode
	if mode == 0 {
		mode = 0o644
	}
	timeout := opts.OpenTimeout
	if timeout == 0 {
		timeout = time.Second
	}

	bdb, err := bolt.Open(path, mode, &bolt.Options{
		Timeout:  timeout,
		ReadOnly: readOnly,
	})
	if err != nil {
		logger.Warn("open failed", zap.String("path", path), zap.Error(err))
		return nil, &db.OpError{Op: "open", Code: CodeGeneric, Err: err}
	}

	// Make sure the bucket exists. Read-only handles cannot create it; an
	// existing file written by this engine always has it, and a file that
	// never had it reads as empty.
	if !readOnly {
		err = bdb.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketName)
			return err
		})
		if err != nil {
			_ = bdb.Close()
			logger.Warn("bucket init failed", zap.String("path", path), zap.Error(err))
			return nil, &db.OpError{Op: "open", Code: CodeGeneric, Err: err}
		}
	}

	logger.Debug("opened", zap.String("path", path), zap.Bool("read_only", readOnly))

	return &engineImpl{
		bdb:      bdb,
		path:     path,
		readOnly: readOnly,
		logger:   logger,
	}, nil
}

// --------------------------------------------------------------------------
// Error Helpers
// --------------------------------------------------------------------------

// fail records the failure in the engine error log and returns it as a
// db.OpError.
func (e *engineImpl) fail(op string, code int, err error) error {
	oe := &db.OpError{Op: op, Code: code, Err: err}
	if err != nil {
		e.errLog = err.Error()
	} else {
		e.errLog = oe.Error()
	}
	e.logger.Debug("engine error", zap.String("op", op), zap.Int("code", code), zap.Error(err))
	return oe
}

// classify maps bbolt sentinel errors to engine codes.
func classify(err error) int {
	switch err {
	case bolt.ErrDatabaseReadOnly, bolt.ErrTxNotWritable:
		return CodeReadOnly
	default:
		return CodeGeneric
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Transaction Control (docu see db.Engine)
// --------------------------------------------------------------------------

func (e *engineImpl) Begin() error {
	if e.tx != nil {
		return e.fail("begin", CodeTxActive, nil)
	}

	tx, err := e.bdb.Begin(!e.readOnly)
	if err != nil {
		return e.fail("begin", classify(err), err)
	}

	e.tx = tx
	return nil
}

func (e *engineImpl) Commit() error {
	if e.tx == nil {
		return e.fail("commit", CodeNoTx, nil)
	}

	tx := e.tx
	e.tx = nil

	var err error
	if tx.Writable() {
		err = tx.Commit()
	} else {
		// read transactions have nothing to persist
		err = tx.Rollback()
	}
	if err != nil {
		return e.fail("commit", classify(err), err)
	}
	return nil
}

func (e *engineImpl) Rollback() error {
	if e.tx == nil {
		return nil
	}

	tx := e.tx
	e.tx = nil

	if err := tx.Rollback(); err != nil {
		return e.fail("rollback", classify(err), err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods - Point Operations (docu see db.Engine)
// --------------------------------------------------------------------------

func (e *engineImpl) Store(key, value []byte) error {
	if e.tx != nil {
		if !e.tx.Writable() {
			return e.fail("kv_store", CodeReadOnly, bolt.ErrTxNotWritable)
		}
		if err := e.tx.Bucket(bucketName).Put(key, value); err != nil {
			return e.fail("kv_store", classify(err), err)
		}
		return nil
	}

	err := e.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
	if err != nil {
		return e.fail("kv_store", classify(err), err)
	}
	return nil
}

func (e *engineImpl) Delete(key []byte) error {
	if e.tx != nil {
		if !e.tx.Writable() {
			return e.fail("kv_delete", CodeReadOnly, bolt.ErrTxNotWritable)
		}
		if err := e.tx.Bucket(bucketName).Delete(key); err != nil {
			return e.fail("kv_delete", classify(err), err)
		}
		return nil
	}

	err := e.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
	if err != nil {
		return e.fail("kv_delete", classify(err), err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods - Cursor (docu see db.Engine)
// --------------------------------------------------------------------------

func (e *engineImpl) OpenCursor() (db.Cursor, error) {
	// Inside an explicit transaction the cursor joins it; otherwise it gets
	// its own read transaction for the duration of the scan.
	if e.tx != nil {
		return newCursor(e.tx, false), nil
	}

	tx, err := e.bdb.Begin(false)
	if err != nil {
		return nil, e.fail("cursor_init", classify(err), err)
	}
	return newCursor(tx, true), nil
}

// --------------------------------------------------------------------------
// Interface Methods - Introspection (docu see db.Engine)
// --------------------------------------------------------------------------

func (e *engineImpl) ErrLog() string {
	return e.errLog
}

func (e *engineImpl) Info() db.EngineInfo {
	return db.EngineInfo{
		Path:     e.path,
		Type:     db.ImplBolt,
		ReadOnly: e.readOnly,
	}
}

func (e *engineImpl) Close() error {
	if e.tx != nil {
		_ = e.tx.Rollback()
		e.tx = nil
	}

	e.logger.Debug("closed", zap.String("path", e.path))
	if err := e.bdb.Close(); err != nil {
		return e.fail("close", CodeGeneric, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Cursor Implementation
// --------------------------------------------------------------------------

// cursorImpl implements db.Cursor over a bbolt bucket cursor. The key and
// value slices point into bbolt's mmap and stay valid until the backing
// transaction ends, which Close guarantees to outlive every read.
type cursorImpl struct {
	tx     *bolt.Tx
	cur    *bolt.Cursor // nil when the bucket does not exist (empty database)
	ownsTx bool

	key   []byte
	value []byte
	valid bool
}

var _ db.Cursor = (*cursorImpl)(nil)

func newCursor(tx *bolt.Tx, ownsTx bool) *cursorImpl {
	c := &cursorImpl{tx: tx, ownsTx: ownsTx}
	if b := tx.Bucket(bucketName); b != nil {
		c.cur = b.Cursor()
	}
	return c
}

// set records the cursor position; a nil key means past-the-end.
func (c *cursorImpl) set(key, value []byte) {
	c.key, c.value, c.valid = key, value, key != nil
}

func (c *cursorImpl) First() {
	if c.cur == nil {
		c.valid = false
		return
	}
	k, v := c.cur.First()
	c.set(k, v)
}

func (c *cursorImpl) Next() {
	if c.cur == nil || !c.valid {
		c.valid = false
		return
	}
	k, v := c.cur.Next()
	c.set(k, v)
}

func (c *cursorImpl) Valid() bool {
	return c.valid
}

func (c *cursorImpl) SeekExact(key []byte) (bool, error) {
	if c.cur == nil {
		c.valid = false
		return false, nil
	}

	k, v := c.cur.Seek(key)
	if k != nil && bytes.Equal(k, key) {
		c.set(k, v)
		return true, nil
	}

	// bbolt's Seek is a nearest-neighbour positioning; anything but an
	// exact hit counts as a miss here
	c.valid = false
	return false, nil
}

func (c *cursorImpl) KeySize() (int, error) {
	if !c.valid {
		return 0, &db.OpError{Op: "cursor_key", Code: CodeCursorInvalid}
	}
	return len(c.key), nil
}

func (c *cursorImpl) ValueSize() (int64, error) {
	if !c.valid {
		return 0, &db.OpError{Op: "cursor_data", Code: CodeCursorInvalid}
	}
	return int64(len(c.value)), nil
}

func (c *cursorImpl) ReadKey(dst []byte) (int, error) {
	if !c.valid {
		return 0, &db.OpError{Op: "cursor_key", Code: CodeCursorInvalid}
	}
	if len(dst) < len(c.key) {
		return 0, &db.OpError{Op: "cursor_key", Code: CodeShortBuffer}
	}
	return copy(dst, c.key), nil
}

func (c *cursorImpl) ReadValue(dst []byte) (int, error) {
	if !c.valid {
		return 0, &db.OpError{Op: "cursor_data", Code: CodeCursorInvalid}
	}
	if len(dst) < len(c.value) {
		return 0, &db.OpError{Op: "cursor_data", Code: CodeShortBuffer}
	}
	return copy(dst, c.value), nil
}

func (c *cursorImpl) Close() error {
	c.valid = false
	c.cur = nil

	if c.ownsTx && c.tx != nil {
		tx := c.tx
		c.tx = nil
		return tx.Rollback()
	}
	c.tx = nil
	return nil
}
