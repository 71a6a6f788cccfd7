package blockstore

import "encoding/binary"

// recordSize is the encoded length of both BlockRecord and FileRecord:
// three little-endian uint32 fields.
const recordSize = 12

// maxUint32 bounds the three fields of BlockRecord and FileRecord.
const maxUint32 = 1<<32 - 1

// BlockRecord locates one payload within its type's segment files.
// Position is the byte offset of the payload body (not its header)
// within the segment.
type BlockRecord struct {
	File     uint32
	Position uint32
	Length   uint32
}

// newBlockRecord validates file, position and length fit in 32 bits and
// are non-negative, returning ErrRange otherwise.
func newBlockRecord(file, position, length int64) (BlockRecord, error) {
	if err := checkU32("file", file); err != nil {
		return BlockRecord{}, err
	}
	if err := checkU32("position", position); err != nil {
		return BlockRecord{}, err
	}
	if err := checkU32("length", length); err != nil {
		return BlockRecord{}, err
	}
	return BlockRecord{
		File:     uint32(file),
		Position: uint32(position),
		Length:   uint32(length),
	}, nil
}

// encode renders r as a fixed 12-byte little-endian triple.
func (r BlockRecord) encode() []byte {
	b := make([]byte, recordSize)
	binary.LittleEndian.PutUint32(b[0:4], r.File)
	binary.LittleEndian.PutUint32(b[4:8], r.Position)
	binary.LittleEndian.PutUint32(b[8:12], r.Length)
	return b
}

// decodeBlockRecord reads a BlockRecord from a 12-byte buffer. Decode of
// a properly sized buffer cannot fail structurally.
func decodeBlockRecord(b []byte) (BlockRecord, error) {
	if len(b) != recordSize {
		return BlockRecord{}, rangeErrorf("block record must be %d bytes, got %d", recordSize, len(b))
	}
	return BlockRecord{
		File:     binary.LittleEndian.Uint32(b[0:4]),
		Position: binary.LittleEndian.Uint32(b[4:8]),
		Length:   binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// FileRecord tracks bookkeeping for one segment file: live payload
// count, bytes of live headers+bodies, and total bytes ever written.
type FileRecord struct {
	Blocks uint32
	Used   uint32
	Length uint32
}

// newFileRecord validates blocks, used and length fit in 32 bits,
// returning ErrRange otherwise.
func newFileRecord(blocks, used, length int64) (FileRecord, error) {
	if err := checkU32("blocks", blocks); err != nil {
		return FileRecord{}, err
	}
	if err := checkU32("used", used); err != nil {
		return FileRecord{}, err
	}
	if err := checkU32("length", length); err != nil {
		return FileRecord{}, err
	}
	return FileRecord{
		Blocks: uint32(blocks),
		Used:   uint32(used),
		Length: uint32(length),
	}, nil
}

// encode renders r as a fixed 12-byte little-endian triple.
func (r FileRecord) encode() []byte {
	b := make([]byte, recordSize)
	binary.LittleEndian.PutUint32(b[0:4], r.Blocks)
	binary.LittleEndian.PutUint32(b[4:8], r.Used)
	binary.LittleEndian.PutUint32(b[8:12], r.Length)
	return b
}

// decodeFileRecord reads a FileRecord from a 12-byte buffer.
func decodeFileRecord(b []byte) (FileRecord, error) {
	if len(b) != recordSize {
		return FileRecord{}, rangeErrorf("file record must be %d bytes, got %d", recordSize, len(b))
	}
	return FileRecord{
		Blocks: binary.LittleEndian.Uint32(b[0:4]),
		Used:   binary.LittleEndian.Uint32(b[4:8]),
		Length: binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

func checkU32(field string, v int64) error {
	if v < 0 || v > maxUint32 {
		return rangeErrorf("%s out of u32 range: %d", field, v)
	}
	return nil
}
