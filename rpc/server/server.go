package server

import (
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/tkv-io/tkv/lib/store"
	"github.com/tkv-io/tkv/lib/store/fstore"
	"github.com/tkv-io/tkv/rpc/common"
	"github.com/tkv-io/tkv/rpc/serializer"
	"github.com/tkv-io/tkv/rpc/transport"
	"go.uber.org/zap"
)

// serverShard is a struct that represents a shard in the RPC server
// It contains the store it encapsulates and the adapter that handles
// requests for the store
type serverShard struct {
	Store   store.IStore
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	// Create shards map
	shardMap := xsync.NewMapOf[uint64, serverShard]()

	logger := common.InitLogger(config)

	logger.Info("Created RPC Server")
	logger.Info(config.String())

	// Create the RPC server
	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     shardMap,
		logger:     logger,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
	logger     *zap.Logger
}

func (s *rpcServer) registerTransportHandler() {
	requestTotal := metrics.GetOrCreateCounter(`rpc_requests_total`)
	requestErrors := metrics.GetOrCreateCounter(`rpc_request_errors_total`)
	requestDuration := metrics.GetOrCreateHistogram(`rpc_request_duration_seconds`)

	s.transport.RegisterHandler(func(shardId uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		start := time.Now()
		requestTotal.Inc()

		// Get appropriate shard
		shard, ok := s.shards.Load(shardId)

		// Case shard does not exist -> error
		if !ok {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     "shard not found",
			}
		} else {
			// Decode the request
			err := s.serializer.Deserialize(req, &msg)

			if err != nil {
				respMsg = common.Message{
					MsgType: common.MsgTError,
					Err:     fmt.Sprintf("failed to deserialize request: %s", err),
				}
			} else {
				// Let the adapter handle the request
				respMsg = *shard.Adapter.Handle(&msg, shard.Store)
			}
		}

		if respMsg.MsgType == common.MsgTError {
			requestErrors.Inc()
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			}
			val, _ = s.serializer.Serialize(respMsg)
		}

		requestDuration.UpdateDuration(start)
		return val
	})
}

func (s *rpcServer) init() error {
	// CREATE SHARDS

	/*
		Note: A single RPC server can serve any number of stores. Each shard
		binds one shard ID to one database file under the data directory. The
		following loop opens all the stores for the RPC server.
	*/

	for _, shardConfig := range s.config.Shards {
		st := fstore.NewWithOptions(
			s.config.DataDir,
			shardConfig.Name,
			shardConfig.Mode,
			false,
			&fstore.Options{Logger: s.logger},
		)

		// a store whose file could not be opened still answers requests,
		// every operation simply fails; surface it at startup instead
		if !st.Exists() {
			return fmt.Errorf("failed to open store %q for shard %d", shardConfig.Name, shardConfig.ShardID)
		}

		s.shards.Store(shardConfig.ShardID, serverShard{
			Store:   st,
			Adapter: NewIStoreServerAdapter(),
		})
		s.logger.Info("opened store for shard",
			zap.Uint64("shard", shardConfig.ShardID),
			zap.String("store", shardConfig.Name),
			zap.Stringer("mode", shardConfig.Mode))
	}

	s.logger.Info("server setup completed successfully")

	// Expose request metrics if configured
	if s.config.MetricsEndpoint != "" {
		go s.serveMetrics()
	}

	// Configure the transport layer
	s.registerTransportHandler()

	return nil
}

// serveMetrics exposes the request metrics in Prometheus text format.
func (s *rpcServer) serveMetrics() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	s.logger.Info("serving metrics", zap.String("endpoint", s.config.MetricsEndpoint))
	if err := http.ListenAndServe(s.config.MetricsEndpoint, mux); err != nil {
		s.logger.Error("metrics endpoint failed", zap.Error(err))
	}
}

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Close closes all shard stores, aborting any transaction left open.
func (s *rpcServer) Close() {
	s.shards.Range(func(shardId uint64, shard serverShard) bool {
		shard.Store.Close()
		s.shards.Delete(shardId)
		return true
	})
}
