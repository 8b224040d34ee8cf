package common

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tkv-io/tkv/lib/store"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerShard binds one shard ID to one named database file on the server.
type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Name is the database file name under the server's storage root
	Name string
	// Mode is the access mode the store is opened with
	Mode store.AccessMode
}

// ServerConfig holds all configuration parameters for the RPC server.
type ServerConfig struct {
	// the stores served by this node
	Shards []ServerShard

	// Storage parameters
	DataDir string

	// per-request handling timeout
	TimeoutSecond int64

	// Transport settings
	Endpoint string

	// MetricsEndpoint optionally exposes request metrics over HTTP
	// (empty disables the endpoint)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// HasWritableShard checks if the configuration contains any read-write shards
func (c *ServerConfig) HasWritableShard() bool {
	for _, shard := range c.Shards {
		if shard.Mode == store.ReadWrite {
			return true
		}
	}
	return false
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Storage
	addSection("Storage")
	addField("Data Directory", c.DataDir)

	// Shards
	addSection("Shards")

	// Sort shards for consistent output
	shards := make([]ServerShard, len(c.Shards))
	copy(shards, c.Shards)
	sort.Slice(shards, func(i, j int) bool { return shards[i].ShardID < shards[j].ShardID })

	for _, shard := range shards {
		addField(strconv.FormatUint(shard.ShardID, 10),
			fmt.Sprintf("%s (%s)", shard.Name, shard.Mode))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints              []string
	TimeoutSecond          int
	RetryCount             int
	ConnectionsPerEndpoint int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
