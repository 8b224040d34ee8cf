package util

import (
	"os"
	"path/filepath"
)

// --------------------------------------------------------------------------
// Storage Path Functions
// --------------------------------------------------------------------------

// storageSubDir is the fixed subdirectory of the storage root under which
// every store file lives.
const storageSubDir = "tkv"

// StorePath returns the full path of the database file for the store with
// the given logical name under the storage root.
func StorePath(storageRoot, name string) string {
	return filepath.Join(storageRoot, storageSubDir, name)
}

// EnsureStorageDir creates the storage subdirectory under the storage root
// if it does not exist yet.
func EnsureStorageDir(storageRoot string) error {
	return os.MkdirAll(filepath.Join(storageRoot, storageSubDir), 0o755)
}

// FileSize returns the size of the file at path in bytes, or 0 if the file
// cannot be stat'ed.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// RemoveFile deletes the file at path. Removing a missing file is not an
// error.
func RemoveFile(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// HashString generates a hash value for a string with a seed.
// This function uses the FNV-1a hash algorithm, which is fast and has good
// distribution. It is used to derive stable shard IDs from store names.
func HashString(s string, seed uint64) uint64 {

	// FNV-1a hash with seed incorporation
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	// Start with the offset combined with our seed for uniqueness
	hash := uint64(offset64) ^ seed

	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}

	return hash
}
