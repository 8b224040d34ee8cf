package server

import (
	"bytes"
	"testing"

	"github.com/tkv-io/tkv/lib/store"
	"github.com/tkv-io/tkv/lib/store/fstore"
	"github.com/tkv-io/tkv/rpc/common"
)

func newTestShard(t *testing.T) (store.IStore, IRPCServerAdapter) {
	t.Helper()
	s := fstore.New(t.TempDir(), "adapter", store.ReadWrite, false)
	t.Cleanup(s.Close)
	return s, NewIStoreServerAdapter()
}

func TestAdapterNilStore(t *testing.T) {
	adapter := NewIStoreServerAdapter()
	resp := adapter.Handle(common.NewWriteRequest([]byte("k"), []byte("v")), nil)
	if resp.MsgType != common.MsgTError {
		t.Fatalf("expected error response, got %s", resp.MsgType)
	}
}

func TestAdapterWriteReadRemove(t *testing.T) {
	s, adapter := newTestShard(t)

	// Write
	resp := adapter.Handle(common.NewWriteRequest([]byte("key1"), []byte("value1")), s)
	if resp.MsgType != common.MsgTKVWrite || !resp.Ok {
		t.Fatalf("write failed: %+v", resp)
	}

	// Read hit
	resp = adapter.Handle(common.NewReadRequest([]byte("key1")), s)
	if !resp.Ok || !bytes.Equal(resp.Value, []byte("value1")) {
		t.Fatalf("read returned %+v", resp)
	}

	// Read miss is ok=false without an error
	resp = adapter.Handle(common.NewReadRequest([]byte("absent")), s)
	if resp.Ok || resp.Err != "" {
		t.Fatalf("read miss returned %+v", resp)
	}

	// Remove
	resp = adapter.Handle(common.NewRemoveRequest([]byte("key1")), s)
	if resp.Err != "" {
		t.Fatalf("remove returned error: %s", resp.Err)
	}
	resp = adapter.Handle(common.NewReadRequest([]byte("key1")), s)
	if resp.Ok {
		t.Fatal("removed key must not be readable")
	}
}

func TestAdapterScan(t *testing.T) {
	s, adapter := newTestShard(t)

	s.WriteString("a", "1")
	s.WriteString("b", "2")
	s.WriteString("c", "3")

	// Full scan with empty key
	resp := adapter.Handle(common.NewScanRequest(nil), s)
	if resp.Err != "" {
		t.Fatalf("scan returned error: %s", resp.Err)
	}
	if len(resp.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(resp.Entries))
	}
	for i := 1; i < len(resp.Entries); i++ {
		if bytes.Compare(resp.Entries[i-1].Key, resp.Entries[i].Key) >= 0 {
			t.Fatal("scan entries out of order")
		}
	}

	// Exact lookup
	resp = adapter.Handle(common.NewScanRequest([]byte("b")), s)
	if len(resp.Entries) != 1 || !bytes.Equal(resp.Entries[0].Value, []byte("2")) {
		t.Fatalf("exact scan returned %+v", resp.Entries)
	}

	// Exact miss yields no entries and no error
	resp = adapter.Handle(common.NewScanRequest([]byte("x")), s)
	if len(resp.Entries) != 0 || resp.Err != "" {
		t.Fatalf("scan miss returned %+v", resp)
	}
}

func TestAdapterTransactions(t *testing.T) {
	s, adapter := newTestShard(t)

	// Status without a transaction
	resp := adapter.Handle(common.NewTxStatusRequest(), s)
	if resp.Ok {
		t.Fatal("fresh store must not be in a transaction")
	}

	// Begin
	resp = adapter.Handle(common.NewTxBeginRequest(uint8(store.ReadWrite)), s)
	if !resp.Ok {
		t.Fatalf("begin failed: %+v", resp)
	}
	resp = adapter.Handle(common.NewTxStatusRequest(), s)
	if !resp.Ok {
		t.Fatal("store must report the active transaction")
	}

	// Write inside the transaction and commit
	adapter.Handle(common.NewWriteRequest([]byte("k"), []byte("v")), s)
	resp = adapter.Handle(common.NewTxCommitRequest(), s)
	if !resp.Ok {
		t.Fatalf("commit failed: %+v", resp)
	}
	resp = adapter.Handle(common.NewTxStatusRequest(), s)
	if resp.Ok {
		t.Fatal("commit must free the transaction slot")
	}

	// Abort rolls back
	adapter.Handle(common.NewTxBeginRequest(uint8(store.ReadWrite)), s)
	adapter.Handle(common.NewWriteRequest([]byte("discard"), []byte("x")), s)
	resp = adapter.Handle(common.NewTxAbortRequest(), s)
	if !resp.Ok {
		t.Fatalf("abort failed: %+v", resp)
	}
	resp = adapter.Handle(common.NewReadRequest([]byte("discard")), s)
	if resp.Ok {
		t.Fatal("aborted write must not be readable")
	}
}

func TestAdapterIntrospection(t *testing.T) {
	s, adapter := newTestShard(t)

	resp := adapter.Handle(common.NewExistsRequest(), s)
	if !resp.Ok {
		t.Fatal("open store must report exists")
	}

	adapter.Handle(common.NewWriteRequest([]byte("k"), []byte("v")), s)
	resp = adapter.Handle(common.NewDiskUsageRequest(), s)
	if resp.Size <= 0 {
		t.Fatalf("expected positive disk usage, got %d", resp.Size)
	}
}

func TestAdapterUnknownMessage(t *testing.T) {
	s, adapter := newTestShard(t)

	resp := adapter.Handle(&common.Message{MsgType: common.MsgTCustom}, s)
	if resp.MsgType != common.MsgTError {
		t.Fatalf("expected error response, got %s", resp.MsgType)
	}
}
