package blockstore

import "encoding/binary"

// segmentHeader is the fixed-layout record header written before every
// payload body in a segment file: magic + length, plus a 32-byte
// checksum for UNDO payloads.
type segmentHeader struct {
	Magic    uint32
	Length   uint32
	Checksum [32]byte // only meaningful when t == Undo
}

// encode renders the header for payload type t. The 32-byte checksum
// trails the fixed magic+length prefix only when t is Undo.
func (h segmentHeader) encode(t PayloadType) []byte {
	b := make([]byte, 0, 40)
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], h.Magic)
	b = append(b, tmp[:]...)
	binary.LittleEndian.PutUint32(tmp[:], h.Length)
	b = append(b, tmp[:]...)
	if t == Undo {
		b = append(b, h.Checksum[:]...)
	}
	return b
}

// decodeHeader parses a header of the size headerSize(t) returns.
func decodeHeader(t PayloadType, b []byte) (segmentHeader, error) {
	want, err := headerSize(t)
	if err != nil {
		return segmentHeader{}, err
	}
	if len(b) != want {
		return segmentHeader{}, rangeErrorf("header must be %d bytes, got %d", want, len(b))
	}
	h := segmentHeader{
		Magic:  binary.LittleEndian.Uint32(b[0:4]),
		Length: binary.LittleEndian.Uint32(b[4:8]),
	}
	if t == Undo {
		copy(h.Checksum[:], b[8:40])
	}
	return h, nil
}
