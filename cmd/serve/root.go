package serve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cmdUtil "github.com/tkv-io/tkv/cmd/util"
	"github.com/tkv-io/tkv/lib/db/util"
	"github.com/tkv-io/tkv/lib/store"
	"github.com/tkv-io/tkv/rpc/common"
	"github.com/tkv-io/tkv/rpc/serializer"
	"github.com/tkv-io/tkv/rpc/server"
	"github.com/tkv-io/tkv/rpc/transport"
	"github.com/tkv-io/tkv/rpc/transport/http"
	"github.com/tkv-io/tkv/rpc/transport/tcp"
	"github.com/tkv-io/tkv/rpc/transport/unix"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the tkv server",
		Long:    `Start the tkv server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is TKV_<flag> (e.g. TKV_LOG_LEVEL=debug)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "shards"
	ServeCmd.PersistentFlags().String(key, "100=default:rw", cmdUtil.WrapString("Comma-separated list of shards to serve. Format: ID=NAME:MODE or NAME:MODE (the ID is then derived from the name). MODE is rw or ro"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("DataDir is the directory in which the database files are stored"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. http:localhost:8080, /tmp/tkv.sock, ...)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional address on which Prometheus metrics are exposed (e.g. localhost:9090). Metrics are disabled when empty"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse shards
	shardsConfig := viper.GetString("shards")
	serveCmdConfig.Shards = []common.ServerShard{}
	for _, shardConfig := range strings.Split(shardsConfig, ",") {
		var (
			idPart   string
			namePart string
		)
		if parts := strings.Split(shardConfig, "="); len(parts) == 2 {
			idPart = strings.TrimSpace(parts[0])
			namePart = strings.TrimSpace(parts[1])
		} else if len(parts) == 1 {
			namePart = strings.TrimSpace(parts[0])
		} else {
			return fmt.Errorf("invalid shard format: %s (expected ID=NAME:MODE or NAME:MODE)", shardConfig)
		}

		// parse mode suffix
		name := namePart
		mode := store.ReadWrite
		if idx := strings.LastIndex(namePart, ":"); idx >= 0 {
			name = namePart[:idx]
			switch namePart[idx+1:] {
			case "rw":
				mode = store.ReadWrite
			case "ro":
				mode = store.ReadOnly
			default:
				return fmt.Errorf("invalid shard mode %q for shard %s (expected rw or ro)", namePart[idx+1:], name)
			}
		}
		if name == "" {
			return fmt.Errorf("invalid shard format: %s (empty name)", shardConfig)
		}

		// parse or derive the shard ID
		var shardID uint64
		if idPart != "" {
			id, err := strconv.ParseUint(idPart, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid shard ID %s: %v", idPart, err)
			}
			shardID = id
		} else {
			shardID = util.HashString(name, 0)
		}

		serveCmdConfig.Shards = append(serveCmdConfig.Shards, common.ServerShard{
			ShardID: shardID,
			Name:    name,
			Mode:    mode,
		})
	}

	// reject duplicate shard IDs early, the server keys its stores by ID
	seen := make(map[uint64]string)
	for _, shard := range serveCmdConfig.Shards {
		if other, ok := seen[shard.ShardID]; ok {
			return fmt.Errorf("duplicate shard ID %d (shards %s and %s)", shard.ShardID, other, shard.Name)
		}
		seen[shard.ShardID] = shard.Name
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// run starts the tkv server
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	var s serializer.IRPCSerializer
	switch viper.GetString("serializer") {
	case "json":
		s = serializer.NewJSONSerializer()
	case "gob":
		s = serializer.NewGOBSerializer()
	case "binary":
		s = serializer.NewBinarySerializer()
	default:
		return fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}

	// Parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "http":
		t = http.NewHttpServerTransport()
	case "tcp":
		t = tcp.NewTCPDefaultServerTransport()
	case "unix":
		t = unix.NewUnixDefaultServerTransport()
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("tkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
