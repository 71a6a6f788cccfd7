package blockstore

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FileStore is the file-backed Store variant: payloads are packed into
// capped, append-only segment files per payload type, with a side index
// (kept in bbolt, see engine_bbolt.go) mapping hash -> BlockRecord and
// segment# -> FileRecord, independently for each of the three payload
// types, with crash recovery, dedup, prune, and batches.
//
// WriteMerkle's payload must carry its own 32-byte hash as its first 32
// bytes. Recovery has no other way to recompute a merkle block's key
// from its body alone.
type FileStore struct {
	cfg    Config
	files  fileAPI
	engine kvEngine
	locks  *typeLocks

	alloc    *allocator
	writer   *writer
	reader   *reader
	pruner   *pruner
	recovery *recoveryScanner

	logger zerolog.Logger
}

// NewFileStore constructs a file-backed store rooted at cfg.Location.
func NewFileStore(cfg Config) (*FileStore, error) {
	if err := validateLocation(cfg.Location); err != nil {
		return nil, err
	}
	if err := validateMaxFileLength(cfg.MaxFileLength); err != nil {
		return nil, err
	}
	return &FileStore{cfg: cfg, files: osFileAPI{}, locks: &typeLocks{}, logger: cfg.Logger}, nil
}

func (s *FileStore) Ensure() error {
	return s.files.Mkdir(s.cfg.Location)
}

// Open loads or rebuilds the index and wires every component. Recovery
// runs automatically when the index is absent or appears stale relative
// to what's on disk.
func (s *FileStore) Open(ctx context.Context) error {
	if err := s.Ensure(); err != nil {
		return err
	}

	indexPath := filepath.Join(s.cfg.Location, "index.db")
	indexExisted, err := s.files.Exists(indexPath)
	if err != nil {
		return err
	}

	engine, err := openBoltEngine(indexPath)
	if err != nil {
		return err
	}
	s.engine = engine

	s.alloc = &allocator{location: s.cfg.Location, maxFileLength: s.cfg.MaxFileLength, engine: s.engine}
	s.writer = &writer{
		location:      s.cfg.Location,
		maxFileLength: s.cfg.MaxFileLength,
		engine:        s.engine,
		files:         s.files,
		magic:         s.cfg.Magic,
		locks:         s.locks,
		alloc:         s.alloc,
	}
	s.reader = &reader{location: s.cfg.Location, engine: s.engine, files: s.files}
	s.pruner = &pruner{location: s.cfg.Location, engine: s.engine, files: s.files, logger: s.logger}
	s.recovery = &recoveryScanner{
		location: s.cfg.Location,
		magic:    s.cfg.Magic,
		engine:   s.engine,
		files:    s.files,
		hash:     s.cfg.hashFunc(),
		logger:   s.logger,
	}

	needsRecovery, err := s.needsRecovery(ctx, !indexExisted)
	if err != nil {
		return err
	}
	if needsRecovery {
		if _, err := s.recovery.scan(ctx); err != nil {
			return err
		}
	}
	return nil
}

// needsRecovery reports whether the index is absent, lacks entries for
// segment files that exist, or a segment file's actual size exceeds its
// FileRecord.length.
func (s *FileStore) needsRecovery(ctx context.Context, indexMissing bool) (bool, error) {
	if indexMissing {
		return true, nil
	}
	entries, err := s.files.ReadDir(s.cfg.Location)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		t, segment, ok := parseSegmentFilename(e.Name())
		if !ok {
			continue
		}
		recBytes, ok, err := s.engine.get(indexBucket, fileRecordKey(t, segment))
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
		rec, err := decodeFileRecord(recBytes)
		if err != nil {
			return false, err
		}
		path, err := segmentFilename(s.cfg.Location, t, segment)
		if err != nil {
			return false, err
		}
		fi, err := s.files.Stat(path)
		if err != nil {
			return false, err
		}
		if fi.Size() > int64(rec.Length) {
			return true, nil
		}
	}
	return false, nil
}

func (s *FileStore) Close() error {
	if s.engine == nil {
		return nil
	}
	return s.engine.close()
}

func (s *FileStore) WriteBlock(ctx context.Context, hash [32]byte, payload Payload) (bool, error) {
	return s.writer.write(ctx, Block, hash, payload)
}
func (s *FileStore) WriteUndo(ctx context.Context, hash [32]byte, payload Payload) (bool, error) {
	return s.writer.write(ctx, Undo, hash, payload)
}
func (s *FileStore) WriteMerkle(ctx context.Context, hash [32]byte, payload Payload) (bool, error) {
	return s.writer.write(ctx, Merkle, hash, payload)
}

func (s *FileStore) ReadBlock(ctx context.Context, hash [32]byte, offset, size int64) (Payload, bool, error) {
	return s.reader.read(ctx, Block, hash, offset, size)
}
func (s *FileStore) ReadUndo(ctx context.Context, hash [32]byte, offset, size int64) (Payload, bool, error) {
	return s.reader.read(ctx, Undo, hash, offset, size)
}
func (s *FileStore) ReadMerkle(ctx context.Context, hash [32]byte, offset, size int64) (Payload, bool, error) {
	return s.reader.read(ctx, Merkle, hash, offset, size)
}

func (s *FileStore) HasBlock(ctx context.Context, hash [32]byte) (bool, error) {
	return s.reader.has(ctx, Block, hash)
}
func (s *FileStore) HasUndo(ctx context.Context, hash [32]byte) (bool, error) {
	return s.reader.has(ctx, Undo, hash)
}
func (s *FileStore) HasMerkle(ctx context.Context, hash [32]byte) (bool, error) {
	return s.reader.has(ctx, Merkle, hash)
}

func (s *FileStore) PruneBlock(ctx context.Context, hash [32]byte) (bool, error) {
	return s.pruner.prune(ctx, Block, hash)
}
func (s *FileStore) PruneUndo(ctx context.Context, hash [32]byte) (bool, error) {
	return s.pruner.prune(ctx, Undo, hash)
}
func (s *FileStore) PruneMerkle(ctx context.Context, hash [32]byte) (bool, error) {
	return s.pruner.prune(ctx, Merkle, hash)
}

func (s *FileStore) Batch() Batch {
	return &fileBatch{store: s}
}

// TypeStat reports a read-only rollup of live segments/blocks/bytes for
// one payload type.
type TypeStat struct {
	Segments   int
	LiveBlocks uint64
	LiveBytes  uint64
}

// Stat rolls up every FileRecord currently indexed for t.
func (s *FileStore) Stat(ctx context.Context, t PayloadType) (TypeStat, error) {
	var stat TypeStat
	err := s.engine.iteratePrefix(indexBucket, fileRecordPrefixForType(t), func(_, value []byte) bool {
		rec, err := decodeFileRecord(value)
		if err != nil {
			return true
		}
		if rec.Blocks == 0 {
			return true
		}
		stat.Segments++
		stat.LiveBlocks += uint64(rec.Blocks)
		stat.LiveBytes += uint64(rec.Used)
		return true
	})
	if err != nil {
		return TypeStat{}, err
	}
	return stat, nil
}
