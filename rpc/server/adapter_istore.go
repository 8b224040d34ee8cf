package server

import (
	"fmt"

	"github.com/tkv-io/tkv/lib/store"
	"github.com/tkv-io/tkv/rpc/common"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	// Check for nil store
	if s == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTKVWrite:
		ok := s.Write(req.Key, req.Value)
		return common.NewWriteResponse(ok)

	case common.MsgTKVRead:
		return adapter.handleRead(req, s)

	case common.MsgTKVRemove:
		var opErr *store.Error
		s.Remove(req.Key, func(err *store.Error) {
			opErr = err
		})
		if opErr != nil {
			return common.NewRemoveResponse(opErr)
		}
		return common.NewRemoveResponse(nil)

	case common.MsgTKVScan:
		return adapter.handleScan(req, s)

	case common.MsgTTxBegin:
		ok := s.StartTransaction(store.AccessMode(req.Mode))
		return common.NewTxBeginResponse(ok)

	case common.MsgTTxCommit:
		ok := s.CommitTransaction()
		return common.NewTxCommitResponse(ok)

	case common.MsgTTxAbort:
		s.AbortTransaction()
		return common.NewTxAbortResponse()

	case common.MsgTTxStatus:
		return common.NewTxStatusResponse(s.IsInTransaction())

	case common.MsgTExists:
		return common.NewExistsResponse(s.Exists())

	case common.MsgTDiskUsage:
		return common.NewDiskUsageResponse(s.DiskUsage())

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC IStoreAdapter - Unsuported message type: %s", req.MsgType),
		)
	}
}

// handleRead performs an exact lookup. The handler's value slice is only
// valid during the callback, so it is copied into the response.
func (adapter *iStoreServerAdapterImpl) handleRead(req *common.Message, s store.IStore) *common.Message {
	var (
		value []byte
		found bool
		opErr *store.Error
	)

	s.Read(req.Key, func(v []byte) bool {
		value = append([]byte(nil), v...)
		found = true
		return true
	}, func(err *store.Error) {
		opErr = err
	})

	if opErr != nil {
		return common.NewReadResponse(nil, false, opErr)
	}
	return common.NewReadResponse(value, found, nil)
}

// handleScan collects all matching entries. An empty request key iterates
// the whole store, a non-empty key performs an exact lookup.
func (adapter *iStoreServerAdapterImpl) handleScan(req *common.Message, s store.IStore) *common.Message {
	var (
		entries []common.KeyValue
		opErr   *store.Error
	)

	s.Scan(req.Key, func(key, value []byte) bool {
		// the scan buffers are reused between entries
		entries = append(entries, common.KeyValue{
			Key:   append([]byte(nil), key...),
			Value: append([]byte(nil), value...),
		})
		return true
	}, func(err *store.Error) {
		opErr = err
	})

	if opErr != nil {
		return common.NewScanResponse(entries, opErr)
	}
	return common.NewScanResponse(entries, nil)
}

type MessageHandler func(req *common.Message) (resp *common.Message)

type RegisterMessageHandler func(handler MessageHandler)
