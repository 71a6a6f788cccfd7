package blockstore

import "crypto/sha256"

// undoChecksum computes the 32-byte checksum stored in an UNDO header,
// using double-SHA256 of the body.
func undoChecksum(body []byte) [32]byte {
	first := sha256.Sum256(body)
	return sha256.Sum256(first[:])
}

// HashFunc computes the 32-byte content key for a BLOCK or UNDO payload
// during recovery. MERKLE payloads carry their hash embedded in the
// body instead and never call this.
type HashFunc func(payload []byte) [32]byte

// DoubleSHA256 is the default HashFunc: double-SHA256 of the payload
// bytes, matching undoChecksum's algorithm.
func DoubleSHA256(payload []byte) [32]byte {
	first := sha256.Sum256(payload)
	return sha256.Sum256(first[:])
}
