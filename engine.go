package blockstore

import "context"

// kvEngine is the black-box ordered key-value engine this store treats
// as an external collaborator: the file back-end uses it only for the
// index (BlockRecord/FileRecord/current-segment entries); the KV-backed
// store uses it directly for payload bytes too. The file back-end keeps
// every index family in one bucket, told apart by a one-byte key prefix
// (see keys.go for the key schema); the KV-backed store uses one bucket
// per payload type (see kvstore.go).
type kvEngine interface {
	// get returns the value for key in bucket, or (nil, false) if
	// absent.
	get(bucket, key []byte) (value []byte, ok bool, err error)
	// put writes key/value into bucket, creating the bucket if needed.
	put(bucket, key, value []byte) error
	// del removes key from bucket. Returns whether it existed.
	del(bucket, key []byte) (existed bool, err error)
	// has reports whether key exists in bucket.
	has(bucket, key []byte) (bool, error)
	// iteratePrefix calls fn for every key in bucket starting with
	// prefix, in ascending key order, until fn returns false or all
	// matching keys are exhausted.
	iteratePrefix(bucket, prefix []byte, fn func(key, value []byte) bool) error
	// batch stages a sequence of operations and commits them as one
	// atomic transaction.
	batch(ctx context.Context, ops []kvOp) error
	// close releases the engine's resources.
	close() error
}

// kvOpKind distinguishes a put from a delete within a batch.
type kvOpKind uint8

const (
	kvOpPut kvOpKind = iota
	kvOpDelete
)

// kvOp is one staged operation within a kvEngine batch.
type kvOp struct {
	kind   kvOpKind
	bucket []byte
	key    []byte
	value  []byte // unused for kvOpDelete
}
