package blockstore

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
)

// dataBuckets maps each payload type to the bucket holding its bytes
// directly (key = hash, value = payload), for the KV-backed store.
var dataBuckets = map[PayloadType][]byte{
	Block:  []byte("data:block"),
	Undo:   []byte("data:undo"),
	Merkle: []byte("data:merkle"),
}

// KVStore is the key-value-backed Store variant: every payload is
// stored directly as hash -> body in its type's bucket, with no
// segmentation, allocator, or recovery scanner. The engine's own
// durability covers everything this back-end needs.
type KVStore struct {
	cfg    Config
	engine kvEngine
	logger zerolog.Logger
}

// NewKVStore constructs a KV-backed store over a bbolt database file
// named index.db inside the directory cfg.Location. cfg.Memory is not
// consulted: the store always opens that on-disk file.
func NewKVStore(cfg Config) (*KVStore, error) {
	if err := validateLocation(cfg.Location); err != nil {
		return nil, err
	}
	return &KVStore{cfg: cfg, logger: cfg.Logger}, nil
}

func (s *KVStore) Open(ctx context.Context) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	path := filepath.Join(s.cfg.Location, "index.db")
	engine, err := openBoltEngine(path)
	if err != nil {
		return err
	}
	s.engine = engine
	s.logger.Debug().Str("location", s.cfg.Location).Msg("kv store opened")
	return nil
}

func (s *KVStore) Close() error {
	if s.engine == nil {
		return nil
	}
	return s.engine.close()
}

func (s *KVStore) Ensure() error {
	return osFileAPI{}.Mkdir(s.cfg.Location)
}

func (s *KVStore) write(ctx context.Context, t PayloadType, hash [32]byte, payload Payload) (bool, error) {
	exists, err := s.engine.has(dataBuckets[t], hash[:])
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.engine.put(dataBuckets[t], hash[:], payload); err != nil {
		return false, err
	}
	return true, nil
}

func (s *KVStore) read(ctx context.Context, t PayloadType, hash [32]byte, offset, size int64) (Payload, bool, error) {
	value, ok, err := s.engine.get(dataBuckets[t], hash[:])
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	readLen, err := readSize(int64(len(value)), offset, size)
	if err != nil {
		return nil, false, err
	}
	return value[offset : offset+readLen], true, nil
}

func (s *KVStore) has(ctx context.Context, t PayloadType, hash [32]byte) (bool, error) {
	return s.engine.has(dataBuckets[t], hash[:])
}

func (s *KVStore) prune(ctx context.Context, t PayloadType, hash [32]byte) (bool, error) {
	return s.engine.del(dataBuckets[t], hash[:])
}

func (s *KVStore) WriteBlock(ctx context.Context, hash [32]byte, payload Payload) (bool, error) {
	return s.write(ctx, Block, hash, payload)
}
func (s *KVStore) WriteUndo(ctx context.Context, hash [32]byte, payload Payload) (bool, error) {
	return s.write(ctx, Undo, hash, payload)
}
func (s *KVStore) WriteMerkle(ctx context.Context, hash [32]byte, payload Payload) (bool, error) {
	return s.write(ctx, Merkle, hash, payload)
}

func (s *KVStore) ReadBlock(ctx context.Context, hash [32]byte, offset, size int64) (Payload, bool, error) {
	return s.read(ctx, Block, hash, offset, size)
}
func (s *KVStore) ReadUndo(ctx context.Context, hash [32]byte, offset, size int64) (Payload, bool, error) {
	return s.read(ctx, Undo, hash, offset, size)
}
func (s *KVStore) ReadMerkle(ctx context.Context, hash [32]byte, offset, size int64) (Payload, bool, error) {
	return s.read(ctx, Merkle, hash, offset, size)
}

func (s *KVStore) HasBlock(ctx context.Context, hash [32]byte) (bool, error) {
	return s.has(ctx, Block, hash)
}
func (s *KVStore) HasUndo(ctx context.Context, hash [32]byte) (bool, error) {
	return s.has(ctx, Undo, hash)
}
func (s *KVStore) HasMerkle(ctx context.Context, hash [32]byte) (bool, error) {
	return s.has(ctx, Merkle, hash)
}

func (s *KVStore) PruneBlock(ctx context.Context, hash [32]byte) (bool, error) {
	return s.prune(ctx, Block, hash)
}
func (s *KVStore) PruneUndo(ctx context.Context, hash [32]byte) (bool, error) {
	return s.prune(ctx, Undo, hash)
}
func (s *KVStore) PruneMerkle(ctx context.Context, hash [32]byte) (bool, error) {
	return s.prune(ctx, Merkle, hash)
}

func (s *KVStore) Batch() Batch {
	return &kvBatch{store: s}
}

// kvBatch stages ops against the KV-backed store's buckets directly;
// commit is a single engine.batch call.
type kvBatch struct {
	store     *KVStore
	ops       []kvOp
	committed bool
}

func (b *kvBatch) stageWrite(t PayloadType, hash [32]byte, payload Payload) {
	b.ops = append(b.ops, kvOp{kind: kvOpPut, bucket: dataBuckets[t], key: append([]byte(nil), hash[:]...), value: payload})
}

func (b *kvBatch) stagePrune(t PayloadType, hash [32]byte) {
	b.ops = append(b.ops, kvOp{kind: kvOpDelete, bucket: dataBuckets[t], key: append([]byte(nil), hash[:]...)})
}

func (b *kvBatch) WriteBlock(hash [32]byte, payload Payload)  { b.stageWrite(Block, hash, payload) }
func (b *kvBatch) WriteUndo(hash [32]byte, payload Payload)   { b.stageWrite(Undo, hash, payload) }
func (b *kvBatch) WriteMerkle(hash [32]byte, payload Payload) { b.stageWrite(Merkle, hash, payload) }

func (b *kvBatch) PruneBlock(hash [32]byte)  { b.stagePrune(Block, hash) }
func (b *kvBatch) PruneUndo(hash [32]byte)   { b.stagePrune(Undo, hash) }
func (b *kvBatch) PruneMerkle(hash [32]byte) { b.stagePrune(Merkle, hash) }

func (b *kvBatch) Write(ctx context.Context) error {
	if b.committed {
		return alreadyCommittedErrorf("Already written.")
	}
	// Skip puts whose key already exists, mirroring the store's
	// single-write dedup behavior: writeX returns false on dedup,
	// uniformly across back-ends.
	var ops []kvOp
	seen := map[string]bool{}
	for _, op := range b.ops {
		k := string(op.bucket) + "\x00" + string(op.key)
		if op.kind == kvOpPut {
			if seen[k] {
				continue
			}
			exists, err := b.store.engine.has(op.bucket, op.key)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			seen[k] = true
		}
		ops = append(ops, op)
	}
	if err := b.store.engine.batch(ctx, ops); err != nil {
		return err
	}
	b.committed = true
	return nil
}

func (b *kvBatch) Clear() error {
	if b.committed {
		return alreadyCommittedErrorf("Already written.")
	}
	b.ops = nil
	return nil
}
