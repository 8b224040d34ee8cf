package serializer

import (
	"reflect"
	"testing"

	"github.com/tkv-io/tkv/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Write request
		{
			MsgType: common.MsgTKVWrite,
			Key:     []byte("test-key"),
			Value:   []byte("test-value"),
		},

		// Read response
		{
			MsgType: common.MsgTKVRead,
			Key:     []byte("test-key"),
			Value:   []byte("test-value"),
			Ok:      true,
		},

		// Scan response with entries
		{
			MsgType: common.MsgTKVScan,
			Entries: []common.KeyValue{
				{Key: []byte("a"), Value: []byte("1")},
				{Key: []byte("b"), Value: []byte("2")},
			},
		},

		// Transaction begin request with mode
		{
			MsgType: common.MsgTTxBegin,
			Mode:    1,
		},

		// Disk usage response
		{
			MsgType: common.MsgTDiskUsage,
			Size:    4096,
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Err:     "test error message",
		},

		// Message with all fields filled
		{
			MsgType: common.MsgTKVScan,
			Key:     []byte("test-key"),
			Value:   []byte("test-value"),
			Mode:    1,
			Entries: []common.KeyValue{
				{Key: []byte("k"), Value: []byte("v")},
			},
			Ok:   true,
			Size: 1024,
			Err:  "",
			Meta: []byte("test-meta-data"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTCustom; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty slices and zero values",
			msg: common.Message{
				MsgType: common.MsgTKVWrite,
				Key:     []byte{},
				Value:   []byte{},
				Ok:      false,
				Size:    0,
				Err:     "",
				Meta:    []byte{},
			},
		},
		{
			name: "Message with nil slices but Ok=true",
			msg: common.Message{
				MsgType: common.MsgTKVRead,
				Key:     nil,
				Ok:      true,
				Value:   nil,
			},
		},
		{
			name: "Message with empty entry list but not nil",
			msg: common.Message{
				MsgType: common.MsgTKVScan,
				Entries: []common.KeyValue{},
			},
		},
		{
			name: "Message with empty meta slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTCustom,
				Meta:    []byte{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// Verify MsgType
			if tc.msg.MsgType != result.MsgType {
				t.Errorf("MsgType mismatch: expected %v, got %v", tc.msg.MsgType, result.MsgType)
			}

			// Verify Ok
			if tc.msg.Ok != result.Ok {
				t.Errorf("Ok mismatch: expected %v, got %v", tc.msg.Ok, result.Ok)
			}

			// Verify Size
			if tc.msg.Size != result.Size {
				t.Errorf("Size mismatch: expected %d, got %d", tc.msg.Size, result.Size)
			}

			// Verify Err
			if tc.msg.Err != result.Err {
				t.Errorf("Err mismatch: expected '%s', got '%s'", tc.msg.Err, result.Err)
			}

			// Byte slices must keep their nil/non-nil shape and content
			checkBytes := func(name string, want, got []byte) {
				t.Helper()
				if (want == nil) != (got == nil) {
					t.Errorf("%s nil/non-nil mismatch: expected %v, got %v", name, want, got)
					return
				}
				if len(want) != len(got) {
					t.Errorf("%s length mismatch: expected %d, got %d", name, len(want), len(got))
					return
				}
				for i := range want {
					if want[i] != got[i] {
						t.Errorf("%s content mismatch at index %d", name, i)
						return
					}
				}
			}
			checkBytes("Key", tc.msg.Key, result.Key)
			checkBytes("Value", tc.msg.Value, result.Value)
			checkBytes("Meta", tc.msg.Meta, result.Meta)

			// Entries must keep their nil/non-nil shape
			if (tc.msg.Entries == nil) != (result.Entries == nil) {
				t.Errorf("Entries nil/non-nil mismatch: expected %v, got %v", tc.msg.Entries, result.Entries)
			} else if len(tc.msg.Entries) != len(result.Entries) {
				t.Errorf("Entries length mismatch: expected %d, got %d", len(tc.msg.Entries), len(result.Entries))
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only message type, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{1, 1, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        []byte{1, 2, 0, 0, 0, 10}, // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Truncated entry list",
			data:        []byte{1, 8, 0, 0, 0, 2}, // Claims 2 entries but no entry data
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
