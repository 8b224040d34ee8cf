// Package cmd implements the command-line interface for the tkv
// transactional key-value store. It provides a hierarchical command structure
// with operations for running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value store operations (get, set, scan, transactions, etc.)
//   - serve: Commands for starting and configuring the tkv server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See tkv -help for a list of all commands.
package cmd
