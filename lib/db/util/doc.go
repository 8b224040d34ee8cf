// Package util provides small filesystem and hashing helpers shared by the
// engine implementations and the command layer: storage path construction,
// file size and removal wrappers, and the FNV-1a string hash used to derive
// shard IDs from store names.
package util
