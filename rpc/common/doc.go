// Package common provides core data structures and utilities shared across
// the key-value store RPC system. It defines fundamental types,
// configuration structures, and protocol elements used by other packages.
//
// The package focuses on:
//   - Message protocol definition for inter-component communication
//   - Configuration structures for client and server components
//   - Logger construction shared by server and client components
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication between components,
//     with a flexible structure that adapts to different operation types.
//     Includes factory methods for creating various request and response messages.
//
//   - MessageType: Enumeration defining all supported operation types in the
//     system, categorized into key-value operations, transaction control, and
//     control messages.
//
//   - ServerConfig: Configuration for server nodes, including the shard-to-store
//     mapping, storage settings, network configuration, and the optional
//     metrics endpoint.
//
//   - ClientConfig: Configuration for client components, controlling connection
//     parameters, timeouts, and retry behavior.
//
//   - Logger: Console logger factory providing consistent formatting across
//     the application.
package common
