package blockstore

import "encoding/binary"

// indexBucket holds every index entry (BlockRecord, FileRecord, and
// current-segment pointer rows) for the file back-end, distinguished by
// the one-byte family prefix baked into the key.
var indexBucket = []byte("index")

const (
	blockRecordPrefix   = 'b'
	fileRecordPrefix    = 'f'
	currentSegmentPrefix = 'F'
)

// blockRecordKey builds the `b | type | hash` index key.
func blockRecordKey(t PayloadType, hash [32]byte) []byte {
	k := make([]byte, 0, 1+1+32)
	k = append(k, blockRecordPrefix, byte(t))
	k = append(k, hash[:]...)
	return k
}

// fileRecordKey builds the `f | type | segment#` index key.
func fileRecordKey(t PayloadType, segment uint32) []byte {
	k := make([]byte, 1+1+4)
	k[0] = fileRecordPrefix
	k[1] = byte(t)
	binary.BigEndian.PutUint32(k[2:], segment)
	return k
}

// currentSegmentKey builds the `F | type` index key.
func currentSegmentKey(t PayloadType) []byte {
	return []byte{currentSegmentPrefix, byte(t)}
}

// fileRecordPrefixForType returns the key prefix common to all
// FileRecord rows of one type, for prefix iteration (used by
// FileStore.Stat to enumerate known segments for a type).
func fileRecordPrefixForType(t PayloadType) []byte {
	return []byte{fileRecordPrefix, byte(t)}
}

func encodeSegmentNumber(n uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)
	return b
}

func decodeSegmentNumber(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}
