package blockstore

import (
	"fmt"
	"path/filepath"
)

// PayloadType identifies one of the three fixed-meaning binary payloads
// this store persists. The set is closed.
type PayloadType uint8

const (
	// Block is a full block payload.
	Block PayloadType = iota
	// Undo is an undo coins payload.
	Undo
	// Merkle is a merkle block payload.
	Merkle
)

// String renders the type's filename prefix, which also serves as a
// human-readable name in logs and errors.
func (t PayloadType) String() string {
	p, ok := prefixes[t]
	if !ok {
		return "unknown"
	}
	return p
}

var prefixes = map[PayloadType]string{
	Block:  "blk",
	Undo:   "blu",
	Merkle: "blm",
}

// headerSizes gives the on-disk header length for each type: magic(4) +
// length(4), plus a 32-byte checksum for Undo.
var headerSizes = map[PayloadType]int{
	Block:  8,
	Undo:   40,
	Merkle: 8,
}

// maxSegmentNumber is the largest segment number a filename can encode
// (5 decimal digits).
const maxSegmentNumber = 99999

// headerSize returns the on-disk header length for t, failing with
// ErrConfig if t is outside the closed type set.
func headerSize(t PayloadType) (int, error) {
	n, ok := headerSizes[t]
	if !ok {
		return 0, configErrorf("unknown file prefix")
	}
	return n, nil
}

// segmentFilename returns the path of segment n of type t under
// location, which must already be validated absolute.
//
// Fails with ErrRange ("File number too large.") when n >= 100000 and
// with ErrConfig ("Unknown file prefix.") when t is outside the closed
// type set.
func segmentFilename(location string, t PayloadType, n uint32) (string, error) {
	if n >= 100000 {
		return "", rangeErrorf("File number too large.")
	}
	prefix, ok := prefixes[t]
	if !ok {
		return "", configErrorf("Unknown file prefix.")
	}
	return filepath.Join(location, fmt.Sprintf("%s%05d.dat", prefix, n)), nil
}

// parseSegmentFilename recovers (type, segment#) from a bare segment
// filename (no directory component), e.g. "blk00042.dat". It returns
// ok=false for anything that doesn't match the closed prefix set and
// fixed width this store writes.
func parseSegmentFilename(name string) (t PayloadType, segment uint32, ok bool) {
	if len(name) != 12 || name[8:] != ".dat" {
		return 0, 0, false
	}
	prefix := name[:3]
	digits := name[3:8]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, 0, false
		}
	}
	for pt, p := range prefixes {
		if p == prefix {
			var n uint32
			for _, c := range digits {
				n = n*10 + uint32(c-'0')
			}
			return pt, n, true
		}
	}
	return 0, 0, false
}

// validateLocation fails with ErrConfig ("Location not absolute.") unless
// location is an absolute path.
func validateLocation(location string) error {
	if !filepath.IsAbs(location) {
		return configErrorf("Location not absolute.")
	}
	return nil
}

// validateMaxFileLength fails with ErrConfig ("Invalid max file length.")
// unless maxFileLength is a positive integer.
func validateMaxFileLength(maxFileLength int64) error {
	if maxFileLength <= 0 {
		return configErrorf("Invalid max file length.")
	}
	return nil
}
