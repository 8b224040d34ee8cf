// Package store provides the caller-facing abstraction for transactional
// key-value storage over an embedded engine: explicit transaction control
// with idempotent re-entry, byte-oriented point operations, order-preserving
// scans with exact-match seek, and a unified error-reporting contract.
//
// The package focuses on:
//   - A unified interface (IStore) for stores across different backings
//   - Pluggable engine architecture through the db.EngineFactory pattern
//
// Key Components:
//
//   - IStore Interface: the core abstraction over one open engine handle
//     bound to a named database file. Write operations report success as a
//     boolean; read/scan/remove failures travel exclusively through
//     caller-supplied ErrorHandler callbacks. No operation raises: a store
//     whose engine failed to open fails every call deterministically with a
//     NotOpen error instead.
//
//   - Transaction State Machine: at most one logical transaction is active
//     per store, modelled as an explicit TxState enum (Idle/Active).
//     StartTransaction inside an active transaction is an idempotent no-op,
//     as are Commit/Abort while idle. A failed commit still frees the
//     transaction slot; the boolean return is the only signal that
//     persistence is unknown.
//
//   - Error System: every Error carries the logical store name, an
//     engine-supplied code (-1 for layer-detected conditions), and a message
//     preferring the engine's own error log. The ErrorCode taxonomy
//     distinguishes open, not-open, transaction, cursor-init, and generic
//     engine failures.
//
// Implementations:
//
//   - File Store (fstore): the production implementation binding a store to
//     a database file under a storage root, by default through the bolt
//     engine. Available in "github.com/tkv-io/tkv/lib/store/fstore".
//
//   - RPC Store (rpc/client): a remote implementation of the same interface
//     speaking the wire protocol to a served store, allowing applications to
//     switch between embedded and served deployments without code changes.
package store
