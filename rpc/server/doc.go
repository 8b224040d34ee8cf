// Package server implements the RPC server for the key-value store system.
// It provides the adapter for handling RPC requests against a store, along
// with the core server implementation that manages shards and request routing.
//
// The package focuses on:
//   - Server-side RPC request handling for store operations
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Flexible shard configuration, one store file per shard
//   - Request metrics with an optional Prometheus scrape endpoint
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a store.IStore.
//
//   - NewIStoreServerAdapter: Factory function creating an adapter for key-value
//     store operations, translating RPC requests to store.IStore method calls.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 100, Name: "inbox", Mode: store.ReadWrite},
//	    {ShardID: 200, Name: "archive", Mode: store.ReadOnly},
//	  },
//	  DataDir: "/var/lib/tkv",
//	  Endpoint: "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  LogLevel: "info",
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Each shard opens its own database file under DataDir. A shard opened in
// read-only mode rejects writes and transaction commits but serves reads
// and scans normally.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Each request is processed independently.
//	The Listen method is not thread-safe and should be called only once.
package server
