package blockstore

import (
	"context"
	"io"
)

// writer appends payloads to segments, one at a time per payload type.
// The per-type lock is non-blocking: a second concurrent write to the
// same type fails immediately with ErrWriteConflict instead of queuing.
type writer struct {
	location      string
	maxFileLength int64
	engine        kvEngine
	files         fileAPI
	magic         uint32
	locks         *typeLocks
	alloc         *allocator
}

// write appends payload under hash for type t. It returns false without
// writing if hash is already indexed (dedup), and fails with
// ErrWriteConflict if another write for the same type is already in
// flight.
func (w *writer) write(ctx context.Context, t PayloadType, hash [32]byte, payload Payload) (bool, error) {
	// Dedup is checked first, cheap, before touching the lock: a
	// repeated write of an already-known hash is a legitimate no-op,
	// not a conflict.
	exists, err := w.engine.has(indexBucket, blockRecordKey(t, hash))
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if !w.locks.tryLock(t) {
		return false, writeConflictErrorf("Already writing.")
	}
	defer w.locks.unlock(t)

	return w.writeLocked(ctx, t, hash, payload)
}

// writeLocked performs the allocate/open/write/fsync/commit sequence
// assuming the caller already holds type t's write lock.
func (w *writer) writeLocked(ctx context.Context, t PayloadType, hash [32]byte, payload Payload) (bool, error) {
	desc, err := w.alloc.allocate(ctx, t, int64(len(payload)))
	if err != nil {
		return false, err
	}

	hdr, err := headerSize(t)
	if err != nil {
		return false, err
	}

	f, err := w.files.OpenAppend(desc.Path)
	if err != nil {
		return false, err
	}
	// Any error from here closes the fd before propagating, leaving
	// the on-disk tail exactly as written. Recovery resolves it on the
	// next Open.
	if err := w.appendRecord(f, t, payload); err != nil {
		_ = f.Close()
		return false, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return false, upstreamIOErrorf("fsync %s: %w", desc.Path, err)
	}
	if err := f.Close(); err != nil {
		return false, upstreamIOErrorf("close %s: %w", desc.Path, err)
	}

	blockRec, err := newBlockRecord(int64(desc.Segment), int64(desc.Record.Length)+int64(hdr), int64(len(payload)))
	if err != nil {
		return false, err
	}
	fileRec, err := newFileRecord(
		int64(desc.Record.Blocks)+1,
		int64(desc.Record.Used)+int64(hdr)+int64(len(payload)),
		int64(desc.Record.Length)+int64(hdr)+int64(len(payload)),
	)
	if err != nil {
		return false, err
	}

	ops := []kvOp{
		{kind: kvOpPut, bucket: indexBucket, key: blockRecordKey(t, hash), value: blockRec.encode()},
		{kind: kvOpPut, bucket: indexBucket, key: fileRecordKey(t, desc.Segment), value: fileRec.encode()},
	}
	if desc.Advanced {
		ops = append(ops, kvOp{
			kind:   kvOpPut,
			bucket: indexBucket,
			key:    currentSegmentKey(t),
			value:  encodeSegmentNumber(desc.Segment),
		})
	}
	if err := w.engine.batch(ctx, ops); err != nil {
		return false, err
	}
	return true, nil
}

// appendRecord writes one header+body record to f.
func (w *writer) appendRecord(f file, t PayloadType, payload Payload) error {
	hdr, err := headerSize(t)
	if err != nil {
		return err
	}
	h := segmentHeader{Magic: w.magic, Length: uint32(len(payload))}
	if t == Undo {
		h.Checksum = undoChecksum(payload)
	}
	encoded := h.encode(t)

	n, err := f.Write(encoded)
	if err != nil {
		return upstreamIOErrorf("write header: %w", err)
	}
	if n < hdr {
		return shortIOErrorf("Could not write block magic.")
	}

	n, err = f.Write(payload)
	if err != nil {
		return upstreamIOErrorf("write body: %w", err)
	}
	if n < len(payload) {
		return shortIOErrorf("Could not write block.")
	}
	return nil
}

// readExact performs one positioned read of exactly len(b) bytes,
// failing with ErrShortIO if fewer are returned.
func readExact(f file, b []byte, off int64) error {
	n, err := f.ReadAt(b, off)
	if err != nil && err != io.EOF {
		return upstreamIOErrorf("read: %w", err)
	}
	if n < len(b) {
		return shortIOErrorf("Wrong number of bytes read.")
	}
	return nil
}
