package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/tkv-io/tkv/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey     byte = 1 << 0
	hasValue   byte = 1 << 1
	hasMode    byte = 1 << 2
	hasEntries byte = 1 << 3
	hasOk      byte = 1 << 4
	hasSize    byte = 1 << 5
	hasErr     byte = 1 << 6
	hasMeta    byte = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := 2 // Start after MsgType and flags

	// Handle Key
	if msg.Key != nil {
		flags |= hasKey
		keyLen := len(msg.Key)

		// Write key length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(keyLen))
		pos += 4

		// Write key data
		if keyLen > 0 {
			copy(result[pos:pos+keyLen], msg.Key)
			pos += keyLen
		}
	}

	// Handle Value
	if msg.Value != nil {
		flags |= hasValue
		valueLen := len(msg.Value)

		// Write value length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(valueLen))
		pos += 4

		// Write value data
		if valueLen > 0 {
			copy(result[pos:pos+valueLen], msg.Value)
			pos += valueLen
		}
	}

	// Handle Mode
	if msg.Mode > 0 {
		flags |= hasMode
		result[pos] = msg.Mode
		pos += 1
	}

	// Handle Entries
	if msg.Entries != nil {
		flags |= hasEntries

		// Write entry count
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Entries)))
		pos += 4

		// Write each entry as length-prefixed key and value
		for _, entry := range msg.Entries {
			binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(entry.Key)))
			pos += 4
			copy(result[pos:pos+len(entry.Key)], entry.Key)
			pos += len(entry.Key)

			binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(entry.Value)))
			pos += 4
			copy(result[pos:pos+len(entry.Value)], entry.Value)
			pos += len(entry.Value)
		}
	}

	// Handle Ok
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}

	// Handle Size
	if msg.Size > 0 {
		flags |= hasSize
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.Size))
		pos += 8
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		errBytes := []byte(msg.Err)
		errLen := len(errBytes)

		// Write error length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(errLen))
		pos += 4

		// Write error data
		copy(result[pos:pos+errLen], errBytes)
		pos += errLen
	}

	// Handle Meta
	if msg.Meta != nil {
		flags |= hasMeta
		metaLen := len(msg.Meta)

		// Write meta length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(metaLen))
		pos += 4

		// Write meta data
		if metaLen > 0 {
			copy(result[pos:pos+metaLen], msg.Meta)
			pos += metaLen
		}
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := data[1]

	// Initialize read position
	pos := 2

	// Read Key if present
	if flags&hasKey != 0 {
		field, newPos, err := readBytesField(data, pos, "key", msg.Key)
		if err != nil {
			return err
		}
		msg.Key = field
		pos = newPos
	} else {
		msg.Key = nil
	}

	// Read Value if present
	if flags&hasValue != 0 {
		field, newPos, err := readBytesField(data, pos, "value", msg.Value)
		if err != nil {
			return err
		}
		msg.Value = field
		pos = newPos
	} else {
		msg.Value = nil
	}

	// Read Mode if present
	if flags&hasMode != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for mode")
		}

		msg.Mode = data[pos]
		pos += 1
	} else {
		msg.Mode = 0
	}

	// Read Entries if present
	if flags&hasEntries != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for entry count")
		}

		count := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		msg.Entries = make([]common.KeyValue, 0, count)
		for i := uint32(0); i < count; i++ {
			key, newPos, err := readBytesField(data, pos, "entry key", nil)
			if err != nil {
				return err
			}
			pos = newPos

			value, newPos, err := readBytesField(data, pos, "entry value", nil)
			if err != nil {
				return err
			}
			pos = newPos

			msg.Entries = append(msg.Entries, common.KeyValue{Key: key, Value: value})
		}
	} else {
		msg.Entries = nil
	}

	// Read Ok if present
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Ok flag")
		}

		msg.Ok = data[pos] != 0
		pos += 1
	} else {
		msg.Ok = false
	}

	// Read Size if present
	if flags&hasSize != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for Size")
		}

		msg.Size = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		pos += 8
	} else {
		msg.Size = 0
	}

	// Read Err if present
	if flags&hasErr != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for error length")
		}

		// Read error length
		errLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(errLen) > len(data) {
			return fmt.Errorf("data too short for error data")
		}

		// Read error data
		msg.Err = string(data[pos : pos+int(errLen)])
		pos += int(errLen)
	} else {
		msg.Err = ""
	}

	// Read Meta if present
	if flags&hasMeta != 0 {
		field, _, err := readBytesField(data, pos, "meta", msg.Meta)
		if err != nil {
			return err
		}
		msg.Meta = field
	} else {
		msg.Meta = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readBytesField reads one length-prefixed byte field starting at pos. The
// dst slice is reused when its capacity suffices (allocate only if needed);
// an empty field yields an empty slice, not nil.
func readBytesField(data []byte, pos int, name string, dst []byte) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s length", name)
	}

	fieldLen := binary.BigEndian.Uint32(data[pos : pos+4])
	pos += 4

	if pos+int(fieldLen) > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s data", name)
	}

	if dst == nil || cap(dst) < int(fieldLen) {
		dst = make([]byte, fieldLen)
	} else {
		dst = dst[:fieldLen]
	}

	if fieldLen > 0 {
		copy(dst, data[pos:pos+int(fieldLen)])
	}
	pos += int(fieldLen)

	return dst, pos, nil
}

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	// Add sizes for fields that require length encoding
	if msg.Key != nil {
		size += 4 + len(msg.Key) // 4 bytes for length + key bytes
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value) // 4 bytes for length + value bytes
	}
	if msg.Mode > 0 {
		size += 1 // 1 byte for the access mode
	}
	if msg.Entries != nil {
		size += 4 // 4 bytes for the entry count
		for _, entry := range msg.Entries {
			size += 4 + len(entry.Key) + 4 + len(entry.Value)
		}
	}
	if msg.Ok {
		size += 1 // 1 byte for boolean
	}
	if msg.Size > 0 {
		size += 8 // int64
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err) // 4 bytes for length + error string
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta) // 4 bytes for length + meta bytes
	}

	return size
}
