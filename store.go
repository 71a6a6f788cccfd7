package blockstore

import (
	"context"

	"github.com/rs/zerolog"
)

// Payload is the caller's opaque byte string: a block, undo coins, or a
// merkle block. A nil Payload with ok=false (see Store's read methods)
// is the null payload, distinct from a present-but-empty payload.
type Payload []byte

// Config configures a Store. Location must be an absolute path.
// MaxFileLength applies only to the file-backed store. Memory is
// accepted but neither back-end reads it; the KV-backed store always
// uses an on-disk database. Magic is the network magic every segment
// header must carry.
type Config struct {
	Location      string
	MaxFileLength int64
	Memory        bool
	Magic         uint32
	Logger        zerolog.Logger
	// Hash computes the content key for BLOCK/UNDO payloads during
	// recovery. Defaults to DoubleSHA256 when nil.
	Hash HashFunc
}

func (c Config) hashFunc() HashFunc {
	if c.Hash != nil {
		return c.Hash
	}
	return DoubleSHA256
}

// Store is the capability set both back-ends implement: write, read,
// existence test, prune, and atomic batches over the three payload
// types.
type Store interface {
	// Open prepares the store for use, running recovery if needed.
	Open(ctx context.Context) error
	// Close releases the store's resources.
	Close() error
	// Ensure creates the store's location directory if absent.
	Ensure() error

	WriteBlock(ctx context.Context, hash [32]byte, payload Payload) (bool, error)
	WriteUndo(ctx context.Context, hash [32]byte, payload Payload) (bool, error)
	WriteMerkle(ctx context.Context, hash [32]byte, payload Payload) (bool, error)

	ReadBlock(ctx context.Context, hash [32]byte, offset, size int64) (Payload, bool, error)
	ReadUndo(ctx context.Context, hash [32]byte, offset, size int64) (Payload, bool, error)
	ReadMerkle(ctx context.Context, hash [32]byte, offset, size int64) (Payload, bool, error)

	HasBlock(ctx context.Context, hash [32]byte) (bool, error)
	HasUndo(ctx context.Context, hash [32]byte) (bool, error)
	HasMerkle(ctx context.Context, hash [32]byte) (bool, error)

	PruneBlock(ctx context.Context, hash [32]byte) (bool, error)
	PruneUndo(ctx context.Context, hash [32]byte) (bool, error)
	PruneMerkle(ctx context.Context, hash [32]byte) (bool, error)

	Batch() Batch
}

// Batch stages write/prune operations and commits them atomically. A
// batch is single-use: Write or Clear after a successful Write fails
// with ErrAlreadyCommitted.
type Batch interface {
	WriteBlock(hash [32]byte, payload Payload)
	WriteUndo(hash [32]byte, payload Payload)
	WriteMerkle(hash [32]byte, payload Payload)

	PruneBlock(hash [32]byte)
	PruneUndo(hash [32]byte)
	PruneMerkle(hash [32]byte)

	// Write commits every staged operation atomically from the
	// reader's perspective.
	Write(ctx context.Context) error
	// Clear discards every staged operation.
	Clear() error
}

// readSize resolves the "size omitted" case (read to end of record) and
// validates offset/size fall within length.
func readSize(length, offset, size int64) (int64, error) {
	if offset < 0 {
		return 0, rangeErrorf("Out-of-bounds read.")
	}
	if size < 0 {
		size = length - offset
	}
	if offset > length || offset+size > length {
		return 0, rangeErrorf("Out-of-bounds read.")
	}
	return size, nil
}

// NoSize is passed as the size argument to ReadBlock/ReadUndo/ReadMerkle
// to mean "size omitted": read from offset to the end of the record.
const NoSize int64 = -1
