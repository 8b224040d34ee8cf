package testing

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/tkv-io/tkv/lib/db"
)

// RunEngineTests runs a comprehensive conformance suite against an engine
// implementation. The factory is the implementation's db.EngineFactory, so
// the suite can open fresh database files and reopen them to verify
// durability behavior.
func RunEngineTests(t *testing.T, name string, factory db.EngineFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Store&Seek", func(t *testing.T) {
			testStoreSeek(t, factory)
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory)
		})

		t.Run("FullIteration", func(t *testing.T) {
			testFullIteration(t, factory)
		})

		t.Run("EmptyIteration", func(t *testing.T) {
			testEmptyIteration(t, factory)
		})

		t.Run("SeekMiss", func(t *testing.T) {
			testSeekMiss(t, factory)
		})

		t.Run("CursorSizeQueries", func(t *testing.T) {
			testCursorSizeQueries(t, factory)
		})

		t.Run("CursorErrors", func(t *testing.T) {
			testCursorErrors(t, factory)
		})

		t.Run("TxCommit", func(t *testing.T) {
			testTxCommit(t, factory)
		})

		t.Run("TxRollback", func(t *testing.T) {
			testTxRollback(t, factory)
		})

		t.Run("TxStateErrors", func(t *testing.T) {
			testTxStateErrors(t, factory)
		})

		t.Run("CloseWithActiveTx", func(t *testing.T) {
			testCloseWithActiveTx(t, factory)
		})

		t.Run("ReadOnly", func(t *testing.T) {
			testReadOnly(t, factory)
		})

		t.Run("ErrLog", func(t *testing.T) {
			testErrLog(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// mustOpen opens an engine for the given path and fails the test on error.
func mustOpen(t testing.TB, factory db.EngineFactory, path string, readOnly bool) db.Engine {
	t.Helper()
	eng, err := factory(path, readOnly)
	if err != nil {
		t.Fatalf("failed to open engine at %s: %v", path, err)
	}
	return eng
}

// tempPath returns a database file path inside a fresh temp directory.
func tempPath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// fetchCurrent reads the current cursor entry using the size-query-then-copy
// protocol.
func fetchCurrent(t testing.TB, cur db.Cursor) (key, value []byte) {
	t.Helper()

	kLen, err := cur.KeySize()
	if err != nil {
		t.Fatalf("KeySize failed: %v", err)
	}
	vLen, err := cur.ValueSize()
	if err != nil {
		t.Fatalf("ValueSize failed: %v", err)
	}

	key = make([]byte, kLen)
	value = make([]byte, vLen)

	if _, err := cur.ReadKey(key); err != nil {
		t.Fatalf("ReadKey failed: %v", err)
	}
	if _, err := cur.ReadValue(value); err != nil {
		t.Fatalf("ReadValue failed: %v", err)
	}
	return key, value
}

// seekValue fetches the value stored under key, or nil if the key is absent.
func seekValue(t testing.TB, eng db.Engine, key []byte) []byte {
	t.Helper()

	cur, err := eng.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor failed: %v", err)
	}
	defer cur.Close()

	found, err := cur.SeekExact(key)
	if err != nil {
		t.Fatalf("SeekExact failed: %v", err)
	}
	if !found {
		return nil
	}

	_, value := fetchCurrent(t, cur)
	return value
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testStoreSeek(t *testing.T, factory db.EngineFactory) {
	eng := mustOpen(t, factory, tempPath(t), false)
	defer eng.Close()

	key := []byte("test-key")
	value1 := []byte("test-value1")
	value2 := []byte("test-value2")

	if err := eng.Store(key, value1); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if got := seekValue(t, eng, key); !bytes.Equal(got, value1) {
		t.Errorf("expected value %q, got %q", value1, got)
	}

	// overwriting must replace the old value
	if err := eng.Store(key, value2); err != nil {
		t.Fatalf("Store (overwrite) failed: %v", err)
	}

	if got := seekValue(t, eng, key); !bytes.Equal(got, value2) {
		t.Errorf("expected value %q, got %q", value2, got)
	}
}

func testDelete(t *testing.T, factory db.EngineFactory) {
	eng := mustOpen(t, factory, tempPath(t), false)
	defer eng.Close()

	key := []byte("del-key")

	if err := eng.Store(key, []byte("v")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := eng.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if got := seekValue(t, eng, key); got != nil {
		t.Errorf("expected key to be gone, got value %q", got)
	}

	// deleting a missing key is not an error
	if err := eng.Delete([]byte("never-existed")); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func testFullIteration(t *testing.T, factory db.EngineFactory) {
	eng := mustOpen(t, factory, tempPath(t), false)
	defer eng.Close()

	// inserted out of order on purpose
	for _, k := range []string{"c", "a", "b", "e", "d"} {
		if err := eng.Store([]byte(k), []byte("value-"+k)); err != nil {
			t.Fatalf("Store(%s) failed: %v", k, err)
		}
	}

	cur, err := eng.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor failed: %v", err)
	}
	defer cur.Close()

	var keys []string
	for cur.First(); cur.Valid(); cur.Next() {
		key, value := fetchCurrent(t, cur)
		keys = append(keys, string(key))
		if want := "value-" + string(key); string(value) != want {
			t.Errorf("key %q: expected value %q, got %q", key, want, value)
		}
	}

	want := []string{"a", "b", "c", "d", "e"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d entries, got %d (%v)", len(want), len(keys), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("position %d: expected key %q, got %q", i, want[i], keys[i])
		}
	}
}

func testEmptyIteration(t *testing.T, factory db.EngineFactory) {
	eng := mustOpen(t, factory, tempPath(t), false)
	defer eng.Close()

	cur, err := eng.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor failed: %v", err)
	}
	defer cur.Close()

	cur.First()
	if cur.Valid() {
		t.Error("expected cursor over empty database to be invalid after First")
	}
}

func testSeekMiss(t *testing.T, factory db.EngineFactory) {
	eng := mustOpen(t, factory, tempPath(t), false)
	defer eng.Close()

	if err := eng.Store([]byte("aa"), []byte("1")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := eng.Store([]byte("ac"), []byte("2")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	cur, err := eng.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor failed: %v", err)
	}
	defer cur.Close()

	// "ab" sits between two existing keys; a nearest-neighbour match must
	// not count as found
	found, err := cur.SeekExact([]byte("ab"))
	if err != nil {
		t.Fatalf("SeekExact failed: %v", err)
	}
	if found {
		t.Error("expected exact seek on missing key to report not found")
	}
	if cur.Valid() {
		t.Error("expected cursor to be invalid after seek miss")
	}
}

func testCursorSizeQueries(t *testing.T, factory db.EngineFactory) {
	eng := mustOpen(t, factory, tempPath(t), false)
	defer eng.Close()

	key := []byte("size-key")
	value := bytes.Repeat([]byte("x"), 1024)

	if err := eng.Store(key, value); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	cur, err := eng.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor failed: %v", err)
	}
	defer cur.Close()

	if found, err := cur.SeekExact(key); err != nil || !found {
		t.Fatalf("SeekExact failed: found=%v err=%v", found, err)
	}

	kLen, err := cur.KeySize()
	if err != nil {
		t.Fatalf("KeySize failed: %v", err)
	}
	if kLen != len(key) {
		t.Errorf("KeySize = %d, want %d", kLen, len(key))
	}

	vLen, err := cur.ValueSize()
	if err != nil {
		t.Fatalf("ValueSize failed: %v", err)
	}
	if vLen != int64(len(value)) {
		t.Errorf("ValueSize = %d, want %d", vLen, len(value))
	}
}

func testCursorErrors(t *testing.T, factory db.EngineFactory) {
	eng := mustOpen(t, factory, tempPath(t), false)
	defer eng.Close()

	if err := eng.Store([]byte("k"), []byte("value")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	cur, err := eng.OpenCursor()
	if err != nil {
		t.Fatalf("OpenCursor failed: %v", err)
	}
	defer cur.Close()

	// entry access without positioning must fail with an engine code
	if _, err := cur.KeySize(); err == nil {
		t.Error("expected KeySize on unpositioned cursor to fail")
	} else if db.Code(err) == -1 {
		t.Errorf("expected an engine error code, got %v", err)
	}

	// a too-small destination buffer must be rejected, not truncated
	cur.First()
	if !cur.Valid() {
		t.Fatal("expected cursor to be valid after First")
	}
	small := make([]byte, 1)
	if _, err := cur.ReadValue(small); err == nil {
		t.Error("expected ReadValue into short buffer to fail")
	}
}

func testTxCommit(t *testing.T, factory db.EngineFactory) {
	path := tempPath(t)
	eng := mustOpen(t, factory, path, false)

	if err := eng.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := eng.Store([]byte("tx-key"), []byte("tx-value")); err != nil {
		t.Fatalf("Store in tx failed: %v", err)
	}
	if err := eng.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// committed data must survive a reopen
	eng = mustOpen(t, factory, path, false)
	defer eng.Close()

	if got := seekValue(t, eng, []byte("tx-key")); !bytes.Equal(got, []byte("tx-value")) {
		t.Errorf("expected committed value after reopen, got %q", got)
	}
}

func testTxRollback(t *testing.T, factory db.EngineFactory) {
	eng := mustOpen(t, factory, tempPath(t), false)
	defer eng.Close()

	if err := eng.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := eng.Store([]byte("rb-key"), []byte("rb-value")); err != nil {
		t.Fatalf("Store in tx failed: %v", err)
	}
	if err := eng.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if got := seekValue(t, eng, []byte("rb-key")); got != nil {
		t.Errorf("expected rolled-back key to be gone, got %q", got)
	}
}

func testTxStateErrors(t *testing.T, factory db.EngineFactory) {
	eng := mustOpen(t, factory, tempPath(t), false)
	defer eng.Close()

	// commit without a transaction is an engine error
	if err := eng.Commit(); err == nil {
		t.Error("expected Commit without transaction to fail")
	}

	// rollback without a transaction is a no-op
	if err := eng.Rollback(); err != nil {
		t.Errorf("Rollback without transaction failed: %v", err)
	}

	if err := eng.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	// double begin is an engine error
	if err := eng.Begin(); err == nil {
		t.Error("expected second Begin to fail")
	}

	if err := eng.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
}

func testCloseWithActiveTx(t *testing.T, factory db.EngineFactory) {
	path := tempPath(t)
	eng := mustOpen(t, factory, path, false)

	if err := eng.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := eng.Store([]byte("lost-key"), []byte("lost-value")); err != nil {
		t.Fatalf("Store in tx failed: %v", err)
	}

	// closing with an active transaction rolls it back
	if err := eng.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	eng = mustOpen(t, factory, path, false)
	defer eng.Close()

	if got := seekValue(t, eng, []byte("lost-key")); got != nil {
		t.Errorf("expected uncommitted key to be gone after close, got %q", got)
	}
}

func testReadOnly(t *testing.T, factory db.EngineFactory) {
	path := tempPath(t)

	// seed the file read-write
	eng := mustOpen(t, factory, path, false)
	if err := eng.Store([]byte("ro-key"), []byte("ro-value")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	eng = mustOpen(t, factory, path, true)
	defer eng.Close()

	// reads work
	if got := seekValue(t, eng, []byte("ro-key")); !bytes.Equal(got, []byte("ro-value")) {
		t.Errorf("expected read-only handle to read %q, got %q", "ro-value", got)
	}

	// writes fail
	if err := eng.Store([]byte("new"), []byte("v")); err == nil {
		t.Error("expected Store on read-only handle to fail")
	}
}

func testErrLog(t *testing.T, factory db.EngineFactory) {
	eng := mustOpen(t, factory, tempPath(t), false)
	defer eng.Close()

	if msg := eng.ErrLog(); msg != "" {
		t.Errorf("expected empty error log on fresh handle, got %q", msg)
	}

	// provoke an engine failure and expect it to be recorded
	if err := eng.Commit(); err == nil {
		t.Fatal("expected Commit without transaction to fail")
	}
	if msg := eng.ErrLog(); msg == "" {
		t.Error("expected error log to be populated after failure")
	}
}

// --------------------------------------------------------------------------
// Realistic usage
// --------------------------------------------------------------------------

// TestRealisticUsage exercises a mixed workload the way the store layer
// drives an engine: interleaved writes, deletes, scans, and transactions.
func RunEngineUsageTest(t *testing.T, name string, factory db.EngineFactory) {
	t.Run(name+"/RealisticUsage", func(t *testing.T) {
		eng := mustOpen(t, factory, tempPath(t), false)
		defer eng.Close()

		const n = 100
		for i := 0; i < n; i++ {
			key := []byte(fmt.Sprintf("key-%03d", i))
			value := []byte(fmt.Sprintf("value-%03d", i))
			if err := eng.Store(key, value); err != nil {
				t.Fatalf("Store failed: %v", err)
			}
		}

		// delete every second key inside a transaction
		if err := eng.Begin(); err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		for i := 0; i < n; i += 2 {
			if err := eng.Delete([]byte(fmt.Sprintf("key-%03d", i))); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
		}
		if err := eng.Commit(); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		cur, err := eng.OpenCursor()
		if err != nil {
			t.Fatalf("OpenCursor failed: %v", err)
		}
		defer cur.Close()

		count := 0
		for cur.First(); cur.Valid(); cur.Next() {
			count++
		}
		if count != n/2 {
			t.Errorf("expected %d remaining entries, got %d", n/2, count)
		}
	})
}
