package client

import (
	"fmt"

	"github.com/tkv-io/tkv/lib/store"
	"github.com/tkv-io/tkv/rpc/common"
	"github.com/tkv-io/tkv/rpc/serializer"
	"github.com/tkv-io/tkv/rpc/transport"
)

// NewRPCStore creates a new RPC store
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It returns a store.IStore and an error
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC store
	s := rpcStore{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC store
	return &s, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// name identifies this store in error values handed to callbacks.
func (i *rpcStore) name() string {
	return fmt.Sprintf("rpc-shard-%d", i.shardId)
}

// report hands a transport-level failure to the error handler, or logs it
// when no handler was supplied.
func (i *rpcStore) report(err error, onErr store.ErrorHandler) {
	storeErr := store.NewError(i.name(), store.ErrEngineOperation, err.Error())
	if onErr != nil {
		onErr(storeErr)
		return
	}
	Logger.Warnf("unhandled store error: %v", storeErr)
}

// --------------------------------------------------------------------------
// Interface Methods - Transaction Control (docu see store/interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) IsInTransaction() bool {
	resp, err := invokeRPCRequest(i.shardId, common.NewTxStatusRequest(), i.transport, i.serializer)
	if err != nil {
		Logger.Warnf("transaction status request failed: %v", err)
		return false
	}
	return resp.Ok
}

func (i *rpcStore) StartTransaction(mode store.AccessMode) bool {
	resp, err := invokeRPCRequest(i.shardId, common.NewTxBeginRequest(uint8(mode)), i.transport, i.serializer)
	if err != nil {
		Logger.Warnf("transaction begin request failed: %v", err)
		return false
	}
	return resp.Ok
}

func (i *rpcStore) CommitTransaction() bool {
	resp, err := invokeRPCRequest(i.shardId, common.NewTxCommitRequest(), i.transport, i.serializer)
	if err != nil {
		Logger.Warnf("transaction commit request failed: %v", err)
		return false
	}
	return resp.Ok
}

func (i *rpcStore) AbortTransaction() {
	if _, err := invokeRPCRequest(i.shardId, common.NewTxAbortRequest(), i.transport, i.serializer); err != nil {
		Logger.Warnf("transaction abort request failed: %v", err)
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Point Operations (docu see store/interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Write(key, value []byte) bool {
	resp, err := invokeRPCRequest(i.shardId, common.NewWriteRequest(key, value), i.transport, i.serializer)
	if err != nil {
		Logger.Warnf("write request failed: %v", err)
		return false
	}
	return resp.Ok
}

func (i *rpcStore) WriteString(key, value string) bool {
	return i.Write([]byte(key), []byte(value))
}

func (i *rpcStore) Read(key []byte, result store.ValueHandler, onErr store.ErrorHandler) {
	resp, err := invokeRPCRequest(i.shardId, common.NewReadRequest(key), i.transport, i.serializer)
	if err != nil {
		i.report(err, onErr)
		return
	}

	// a miss invokes neither handler
	if resp.Ok && result != nil {
		result(resp.Value)
	}
}

func (i *rpcStore) ReadString(key string, result store.StringHandler, onErr store.ErrorHandler) {
	i.Read([]byte(key), func(value []byte) bool {
		if result == nil {
			return true
		}
		return result(string(value))
	}, onErr)
}

func (i *rpcStore) Remove(key []byte, onErr ...store.ErrorHandler) {
	var handler store.ErrorHandler
	if len(onErr) > 0 {
		handler = onErr[0]
	}

	if _, err := invokeRPCRequest(i.shardId, common.NewRemoveRequest(key), i.transport, i.serializer); err != nil {
		i.report(err, handler)
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Scan (docu see store/interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Scan(key []byte, result store.ResultHandler, onErr store.ErrorHandler) {
	resp, err := invokeRPCRequest(i.shardId, common.NewScanRequest(key), i.transport, i.serializer)
	if err != nil {
		i.report(err, onErr)
		return
	}

	// the entries arrive in one response, the handler's continuation
	// request is replayed locally
	for _, entry := range resp.Entries {
		if result == nil {
			continue
		}
		if !result(entry.Key, entry.Value) {
			return
		}
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Introspection (docu see store/interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) DiskUsage() int64 {
	resp, err := invokeRPCRequest(i.shardId, common.NewDiskUsageRequest(), i.transport, i.serializer)
	if err != nil {
		Logger.Warnf("disk usage request failed: %v", err)
		return 0
	}
	return resp.Size
}

func (i *rpcStore) Exists() bool {
	resp, err := invokeRPCRequest(i.shardId, common.NewExistsRequest(), i.transport, i.serializer)
	if err != nil {
		Logger.Warnf("exists request failed: %v", err)
		return false
	}
	return resp.Ok
}

// RemoveFromDisk is not implemented for rpc, the database file belongs to
// the server
func (i *rpcStore) RemoveFromDisk() error {
	return fmt.Errorf("the RemoveFromDisk() method is not implemented in the rpc client adapter")
}

func (i *rpcStore) Close() {
	if err := i.transport.Close(); err != nil {
		Logger.Warnf("failed to close transport: %v", err)
	}
}
