package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStorePath(t *testing.T) {
	got := StorePath("/data", "inbox")
	want := filepath.Join("/data", "tkv", "inbox")
	if got != want {
		t.Errorf("StorePath() = %q, want %q", got, want)
	}
}

func TestEnsureStorageDirAndFileSize(t *testing.T) {
	root := t.TempDir()

	if err := EnsureStorageDir(root); err != nil {
		t.Fatalf("EnsureStorageDir failed: %v", err)
	}

	// calling it again must not fail
	if err := EnsureStorageDir(root); err != nil {
		t.Fatalf("EnsureStorageDir (second call) failed: %v", err)
	}

	path := StorePath(root, "test")
	payload := []byte("0123456789")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if size := FileSize(path); size != int64(len(payload)) {
		t.Errorf("FileSize() = %d, want %d", size, len(payload))
	}

	if size := FileSize(StorePath(root, "missing")); size != 0 {
		t.Errorf("FileSize(missing) = %d, want 0", size)
	}
}

func TestRemoveFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f")

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := RemoveFile(path); err != nil {
		t.Errorf("RemoveFile failed: %v", err)
	}

	// removing a missing file is not an error
	if err := RemoveFile(path); err != nil {
		t.Errorf("RemoveFile (missing) failed: %v", err)
	}
}

func TestHashStringDeterministic(t *testing.T) {
	a := HashString("inbox", 0)
	b := HashString("inbox", 0)
	if a != b {
		t.Errorf("HashString not deterministic: %d != %d", a, b)
	}

	if HashString("inbox", 0) == HashString("archive", 0) {
		t.Error("expected different hashes for different strings")
	}

	if HashString("inbox", 0) == HashString("inbox", 1) {
		t.Error("expected different hashes for different seeds")
	}
}
