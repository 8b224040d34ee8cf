package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key   []byte `json:"key,omitempty"`   // Used for: Write, Read, Remove, Scan
	Value []byte `json:"value,omitempty"` // Used for: Write (request), Read (response)
	Mode  uint8  `json:"mode,omitempty"`  // Used for: TxBegin (access mode)

	// Response only fields
	Entries []KeyValue `json:"entries,omitempty"` // Used for: Scan responses
	Ok      bool       `json:"ok,omitempty"`      // Used for: Read, Write, Tx*, Exists responses
	Size    int64      `json:"size,omitempty"`    // Used for: DiskUsage responses
	Err     string     `json:"err,omitempty"`     // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional Adapters
}

// KeyValue is a single entry of a Scan response.
type KeyValue struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewWriteRequest creates a new Write request
func NewWriteRequest(key, value []byte) *Message {
	return &Message{
		MsgType: MsgTKVWrite,
		Key:     key,
		Value:   value,
	}
}

// NewWriteResponse creates a new Write response
func NewWriteResponse(ok bool) *Message {
	return &Message{
		MsgType: MsgTKVWrite,
		Ok:      ok,
	}
}

// NewReadRequest creates a new Read request
func NewReadRequest(key []byte) *Message {
	return &Message{
		MsgType: MsgTKVRead,
		Key:     key,
	}
}

// NewReadResponse creates a new Read response. The ok flag distinguishes a
// found entry from a silent miss.
func NewReadResponse(value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVRead,
		Ok:      ok,
		Value:   value,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewRemoveRequest creates a new Remove request
func NewRemoveRequest(key []byte) *Message {
	return &Message{
		MsgType: MsgTKVRemove,
		Key:     key,
	}
}

// NewRemoveResponse creates a new Remove response
func NewRemoveResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVRemove,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewScanRequest creates a new Scan request. An empty key requests a full
// iteration, a non-empty key an exact lookup.
func NewScanRequest(key []byte) *Message {
	return &Message{
		MsgType: MsgTKVScan,
		Key:     key,
	}
}

// NewScanResponse creates a new Scan response
func NewScanResponse(entries []KeyValue, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVScan,
		Entries: entries,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewTxBeginRequest creates a new TxBegin request
func NewTxBeginRequest(mode uint8) *Message {
	return &Message{
		MsgType: MsgTTxBegin,
		Mode:    mode,
	}
}

// NewTxBeginResponse creates a new TxBegin response
func NewTxBeginResponse(ok bool) *Message {
	return &Message{
		MsgType: MsgTTxBegin,
		Ok:      ok,
	}
}

// NewTxCommitRequest creates a new TxCommit request
func NewTxCommitRequest() *Message {
	return &Message{
		MsgType: MsgTTxCommit,
	}
}

// NewTxCommitResponse creates a new TxCommit response
func NewTxCommitResponse(ok bool) *Message {
	return &Message{
		MsgType: MsgTTxCommit,
		Ok:      ok,
	}
}

// NewTxAbortRequest creates a new TxAbort request
func NewTxAbortRequest() *Message {
	return &Message{
		MsgType: MsgTTxAbort,
	}
}

// NewTxAbortResponse creates a new TxAbort response
func NewTxAbortResponse() *Message {
	return &Message{
		MsgType: MsgTTxAbort,
		Ok:      true,
	}
}

// NewTxStatusRequest creates a new TxStatus request
func NewTxStatusRequest() *Message {
	return &Message{
		MsgType: MsgTTxStatus,
	}
}

// NewTxStatusResponse creates a new TxStatus response
func NewTxStatusResponse(inTransaction bool) *Message {
	return &Message{
		MsgType: MsgTTxStatus,
		Ok:      inTransaction,
	}
}

// NewExistsRequest creates a new Exists request
func NewExistsRequest() *Message {
	return &Message{
		MsgType: MsgTExists,
	}
}

// NewExistsResponse creates a new Exists response
func NewExistsResponse(ok bool) *Message {
	return &Message{
		MsgType: MsgTExists,
		Ok:      ok,
	}
}

// NewDiskUsageRequest creates a new DiskUsage request
func NewDiskUsageRequest() *Message {
	return &Message{
		MsgType: MsgTDiskUsage,
	}
}

// NewDiskUsageResponse creates a new DiskUsage response
func NewDiskUsageResponse(size int64) *Message {
	return &Message{
		MsgType: MsgTDiskUsage,
		Size:    size,
	}
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTKVWrite:
		return "write"
	case MsgTKVRead:
		return "read"
	case MsgTKVRemove:
		return "remove"
	case MsgTKVScan:
		return "scan"
	case MsgTTxBegin:
		return "txBegin"
	case MsgTTxCommit:
		return "txCommit"
	case MsgTTxAbort:
		return "txAbort"
	case MsgTTxStatus:
		return "txStatus"
	case MsgTExists:
		return "exists"
	case MsgTDiskUsage:
		return "diskUsage"
	case MsgTCustom:
		return "custom"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "write":
		*t = MsgTKVWrite
	case "read":
		*t = MsgTKVRead
	case "remove":
		*t = MsgTKVRemove
	case "scan":
		*t = MsgTKVScan
	case "txBegin":
		*t = MsgTTxBegin
	case "txCommit":
		*t = MsgTTxCommit
	case "txAbort":
		*t = MsgTTxAbort
	case "txStatus":
		*t = MsgTTxStatus
	case "exists":
		*t = MsgTExists
	case "diskUsage":
		*t = MsgTDiskUsage
	case "custom":
		*t = MsgTCustom
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore point operations

	MsgTKVWrite  // Write a key-value pair
	MsgTKVRead   // Read a value by key
	MsgTKVRemove // Remove a key-value pair
	MsgTKVScan   // Iterate entries or look up one key exactly

	// IStore transaction control

	MsgTTxBegin  // Begin a transaction
	MsgTTxCommit // Commit the active transaction
	MsgTTxAbort  // Abort the active transaction
	MsgTTxStatus // Query the transaction state

	// IStore introspection

	MsgTExists    // Check if the store opened successfully
	MsgTDiskUsage // Query the database file size

	// Custom operations

	MsgTCustom // Custom operation type
)
