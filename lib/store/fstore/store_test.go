package fstore

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/tkv-io/tkv/lib/db"
	"github.com/tkv-io/tkv/lib/store"
)

// failingFactory simulates an engine whose file cannot be opened.
func failingFactory(path string, readOnly bool) (db.Engine, error) {
	return nil, errors.New("simulated open failure")
}

// collectErr returns an error handler appending to dst.
func collectErr(dst *[]*store.Error) store.ErrorHandler {
	return func(err *store.Error) {
		*dst = append(*dst, err)
	}
}

func TestStoreNotOpen(t *testing.T) {
	s := NewWithOptions(t.TempDir(), "broken", store.ReadWrite, false, &Options{
		Engine: failingFactory,
	})
	defer s.Close()

	if s.Exists() {
		t.Fatal("store with failed open must not report Exists")
	}
	if s.Write([]byte("k"), []byte("v")) {
		t.Error("Write on unopened store must fail")
	}
	if s.StartTransaction(store.ReadWrite) {
		t.Error("StartTransaction on unopened store must fail")
	}
	if s.CommitTransaction() {
		t.Error("CommitTransaction on unopened store must fail")
	}
	if s.IsInTransaction() {
		t.Error("unopened store must not be in a transaction")
	}

	// abort must be a harmless no-op
	s.AbortTransaction()

	var errs []*store.Error
	s.Read([]byte("k"), func(value []byte) bool {
		t.Error("result handler must not run on unopened store")
		return true
	}, collectErr(&errs))
	s.Scan(nil, func(key, value []byte) bool {
		t.Error("result handler must not run on unopened store")
		return true
	}, collectErr(&errs))
	s.Remove([]byte("k"), collectErr(&errs))

	if len(errs) != 3 {
		t.Fatalf("expected 3 not-open errors, got %d", len(errs))
	}
	for _, err := range errs {
		if err.Code != store.ErrNotOpen {
			t.Errorf("expected ErrNotOpen, got %v", err)
		}
		if err.Store != "broken" {
			t.Errorf("error must carry the store name, got %q", err.Store)
		}
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := New(t.TempDir(), "rt", store.ReadWrite, false)
	defer s.Close()

	if !s.WriteString("key1", "value1") {
		t.Fatal("write failed")
	}

	var got string
	var calls int
	s.ReadString("key1", func(value string) bool {
		got = value
		calls++
		return true
	}, func(err *store.Error) {
		t.Fatalf("unexpected error: %v", err)
	})

	if calls != 1 || got != "value1" {
		t.Fatalf("expected one result %q, got %d calls with %q", "value1", calls, got)
	}
}

// Keys and values of different lengths must not be mixed up by the string
// convenience path.
func TestStoreWriteStringLengths(t *testing.T) {
	s := New(t.TempDir(), "lens", store.ReadWrite, false)
	defer s.Close()

	if !s.WriteString("k", "a much longer value than the key") {
		t.Fatal("write failed")
	}
	if !s.WriteString("a very long key indeed", "v") {
		t.Fatal("write failed")
	}

	check := func(key, want string) {
		t.Helper()
		var got string
		s.ReadString(key, func(value string) bool {
			got = value
			return true
		}, func(err *store.Error) {
			t.Fatalf("unexpected error: %v", err)
		})
		if got != want {
			t.Errorf("key %q: expected %q, got %q", key, want, got)
		}
	}
	check("k", "a much longer value than the key")
	check("a very long key indeed", "v")
}

func TestStoreReadMiss(t *testing.T) {
	s := New(t.TempDir(), "miss", store.ReadWrite, false)
	defer s.Close()

	s.WriteString("present", "value")

	// a lookup miss invokes neither handler
	s.Read([]byte("absent"), func(value []byte) bool {
		t.Error("result handler must not run for a missing key")
		return true
	}, func(err *store.Error) {
		t.Errorf("a miss is not an error, got %v", err)
	})
}

func TestStoreRemove(t *testing.T) {
	s := New(t.TempDir(), "rm", store.ReadWrite, false)
	defer s.Close()

	s.WriteString("key1", "value1")
	s.Remove([]byte("key1"))

	s.Read([]byte("key1"), func(value []byte) bool {
		t.Error("removed key must not be readable")
		return true
	}, nil)

	// removing an absent key is silent
	var errs []*store.Error
	s.Remove([]byte("never-there"), collectErr(&errs))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestStoreScanAll(t *testing.T) {
	s := New(t.TempDir(), "scan", store.ReadWrite, false)
	defer s.Close()

	const n = 16
	for i := 0; i < n; i++ {
		s.WriteString(fmt.Sprintf("key-%02d", i), fmt.Sprintf("value-%02d", i))
	}

	var keys []string
	s.Scan(nil, func(key, value []byte) bool {
		// the buffers are reused between entries, copy before keeping
		keys = append(keys, string(key))
		return true
	}, func(err *store.Error) {
		t.Fatalf("unexpected error: %v", err)
	})

	if len(keys) != n {
		t.Fatalf("expected %d entries, got %d", n, len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("scan out of order: %q before %q", keys[i-1], keys[i])
		}
	}
}

func TestStoreScanEarlyStop(t *testing.T) {
	s := New(t.TempDir(), "stop", store.ReadWrite, false)
	defer s.Close()

	for i := 0; i < 10; i++ {
		s.WriteString(fmt.Sprintf("key-%d", i), "v")
	}

	var calls int
	s.Scan(nil, func(key, value []byte) bool {
		calls++
		return calls < 3
	}, nil)

	if calls != 3 {
		t.Fatalf("expected the scan to stop after 3 entries, got %d", calls)
	}
}

func TestStoreScanEmpty(t *testing.T) {
	s := New(t.TempDir(), "empty", store.ReadWrite, false)
	defer s.Close()

	s.Scan(nil, func(key, value []byte) bool {
		t.Error("result handler must not run on an empty store")
		return true
	}, func(err *store.Error) {
		t.Errorf("unexpected error: %v", err)
	})
}

func TestStoreScanExactSeekMiss(t *testing.T) {
	s := New(t.TempDir(), "seek", store.ReadWrite, false)
	defer s.Close()

	s.WriteString("aa", "1")
	s.WriteString("ac", "3")

	// "ab" sorts between the stored keys; an exact seek must not drift to
	// a neighbor and must not raise
	s.Scan([]byte("ab"), func(key, value []byte) bool {
		t.Errorf("unexpected entry %q", key)
		return true
	}, func(err *store.Error) {
		t.Errorf("a seek miss is not an error, got %v", err)
	})
}

func TestStoreScanExactSeekHit(t *testing.T) {
	s := New(t.TempDir(), "seekhit", store.ReadWrite, false)
	defer s.Close()

	s.WriteString("inbox", "msg1")

	var calls int
	s.Scan([]byte("inbox"), func(key, value []byte) bool {
		calls++
		if !bytes.Equal(key, []byte("inbox")) || !bytes.Equal(value, []byte("msg1")) {
			t.Errorf("got %q=%q", key, value)
		}
		// the continuation request is ignored for an exact seek
		return false
	}, func(err *store.Error) {
		t.Fatalf("unexpected error: %v", err)
	})

	if calls != 1 {
		t.Fatalf("expected exactly one invocation, got %d", calls)
	}
}

func TestStoreTransactionIdempotence(t *testing.T) {
	s := New(t.TempDir(), "tx", store.ReadWrite, false)
	defer s.Close()

	if s.IsInTransaction() {
		t.Fatal("fresh store must not be in a transaction")
	}

	if !s.StartTransaction(store.ReadWrite) {
		t.Fatal("start failed")
	}
	if !s.StartTransaction(store.ReadWrite) {
		t.Fatal("re-entrant start must succeed")
	}
	if !s.IsInTransaction() {
		t.Fatal("store must report the active transaction")
	}

	if !s.CommitTransaction() {
		t.Fatal("commit failed")
	}
	if s.IsInTransaction() {
		t.Fatal("commit must free the transaction slot")
	}

	// commit and abort without a transaction are no-ops
	if !s.CommitTransaction() {
		t.Fatal("commit without a transaction must succeed")
	}
	s.AbortTransaction()
}

func TestStoreTransactionCommitPersists(t *testing.T) {
	root := t.TempDir()

	s := New(root, "commit", store.ReadWrite, false)
	s.StartTransaction(store.ReadWrite)
	s.WriteString("key1", "value1")
	if !s.CommitTransaction() {
		t.Fatal("commit failed")
	}
	s.Close()

	s = New(root, "commit", store.ReadWrite, false)
	defer s.Close()
	var got string
	s.ReadString("key1", func(value string) bool {
		got = value
		return true
	}, nil)
	if got != "value1" {
		t.Fatalf("committed value lost, got %q", got)
	}
}

func TestStoreTransactionAbortDiscards(t *testing.T) {
	root := t.TempDir()

	s := New(root, "abort", store.ReadWrite, false)
	s.WriteString("keep", "v")

	s.StartTransaction(store.ReadWrite)
	s.WriteString("a", "1")
	s.WriteString("b", "2")
	s.WriteString("c", "3")
	s.AbortTransaction()
	s.Close()

	s = New(root, "abort", store.ReadWrite, false)
	defer s.Close()

	var keys []string
	s.Scan(nil, func(key, value []byte) bool {
		keys = append(keys, string(key))
		return true
	}, nil)
	if len(keys) != 1 || keys[0] != "keep" {
		t.Fatalf("aborted writes must not survive, got %v", keys)
	}
}

func TestStoreCloseAbortsTransaction(t *testing.T) {
	root := t.TempDir()

	s := New(root, "closetx", store.ReadWrite, false)
	s.StartTransaction(store.ReadWrite)
	s.WriteString("pending", "v")
	s.Close()

	s = New(root, "closetx", store.ReadWrite, false)
	defer s.Close()
	s.Read([]byte("pending"), func(value []byte) bool {
		t.Error("close must abort, not commit, an open transaction")
		return true
	}, nil)
}

func TestStoreDiskLifecycle(t *testing.T) {
	root := t.TempDir()

	s := New(root, "disk", store.ReadWrite, false)
	s.WriteString("key1", "value1")
	if s.DiskUsage() <= 0 {
		t.Error("a populated store must report a positive disk usage")
	}
	s.Close()

	if err := RemoveFromDisk(root, "disk"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := RemoveFromDisk(root, "disk"); err != nil {
		t.Fatalf("removing an absent file must succeed: %v", err)
	}
}

func TestStoreReadOnly(t *testing.T) {
	root := t.TempDir()

	s := New(root, "ro", store.ReadWrite, false)
	s.WriteString("key1", "value1")
	s.Close()

	s = New(root, "ro", store.ReadOnly, false)
	defer s.Close()

	if !s.Exists() {
		t.Fatal("read-only open of an existing file must succeed")
	}
	if s.Write([]byte("k2"), []byte("v2")) {
		t.Error("write through a read-only store must fail")
	}
	var got string
	s.ReadString("key1", func(value string) bool {
		got = value
		return true
	}, func(err *store.Error) {
		t.Fatalf("unexpected error: %v", err)
	})
	if got != "value1" {
		t.Fatalf("read-only read returned %q", got)
	}
}
