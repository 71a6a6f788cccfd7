package blockstore

import "context"

// stagedOpKind distinguishes a staged write from a staged prune within
// a fileBatch.
type stagedOpKind uint8

const (
	stagedWrite stagedOpKind = iota
	stagedPrune
)

type stagedOp struct {
	kind    stagedOpKind
	hash    [32]byte
	payload Payload
}

// fileBatch stages write/prune calls in memory: nothing touches disk or
// the index until Write. Committing acquires every type's lock in the
// fixed order Block, Undo, Merkle (to avoid deadlock against a
// concurrent batch), performs each type's segment appends in staged
// order, then commits every index change across all three types as one
// atomic engine batch.
type fileBatch struct {
	store     *FileStore
	ops       map[PayloadType][]stagedOp
	committed bool
}

func (b *fileBatch) stage(t PayloadType, op stagedOp) {
	if b.ops == nil {
		b.ops = make(map[PayloadType][]stagedOp)
	}
	b.ops[t] = append(b.ops[t], op)
}

func (b *fileBatch) WriteBlock(hash [32]byte, payload Payload) {
	b.stage(Block, stagedOp{kind: stagedWrite, hash: hash, payload: payload})
}
func (b *fileBatch) WriteUndo(hash [32]byte, payload Payload) {
	b.stage(Undo, stagedOp{kind: stagedWrite, hash: hash, payload: payload})
}
func (b *fileBatch) WriteMerkle(hash [32]byte, payload Payload) {
	b.stage(Merkle, stagedOp{kind: stagedWrite, hash: hash, payload: payload})
}

func (b *fileBatch) PruneBlock(hash [32]byte) { b.stage(Block, stagedOp{kind: stagedPrune, hash: hash}) }
func (b *fileBatch) PruneUndo(hash [32]byte)  { b.stage(Undo, stagedOp{kind: stagedPrune, hash: hash}) }
func (b *fileBatch) PruneMerkle(hash [32]byte) {
	b.stage(Merkle, stagedOp{kind: stagedPrune, hash: hash})
}

func (b *fileBatch) Clear() error {
	if b.committed {
		return alreadyCommittedErrorf("Already written.")
	}
	b.ops = nil
	return nil
}

// segmentState tracks one segment's FileRecord as it's mutated by the
// ops staged against its type, whether it must be unlinked once the
// index batch commits, and whether anything in this batch actually
// touched it. An untouched seed entry (the segment we started from,
// kept around so a rollover has a Length to compare against) must never
// produce a FileRecord put of its own.
type segmentState struct {
	rec     FileRecord
	deleted bool
	touched bool
}

func (b *fileBatch) Write(ctx context.Context) error {
	if b.committed {
		return alreadyCommittedErrorf("Already written.")
	}

	b.store.locks.lockAll()
	defer b.store.locks.unlockAll()

	var allOps []kvOp
	var toUnlink []string
	var openFiles []file

	defer func() {
		for _, f := range openFiles {
			_ = f.Close()
		}
	}()

	for _, t := range []PayloadType{Block, Undo, Merkle} {
		ops, files, unlink, err := b.commitType(ctx, t, b.ops[t])
		openFiles = append(openFiles, files...)
		if err != nil {
			return err
		}
		allOps = append(allOps, ops...)
		toUnlink = append(toUnlink, unlink...)
	}

	for _, f := range openFiles {
		if err := f.Sync(); err != nil {
			return upstreamIOErrorf("fsync: %w", err)
		}
	}

	if err := b.store.engine.batch(ctx, allOps); err != nil {
		return err
	}
	for _, path := range toUnlink {
		if err := b.store.files.Unlink(path); err != nil {
			return err
		}
	}

	b.committed = true
	return nil
}

// commitType performs every staged op for one payload type: appends for
// writes (skipping dedup hits), bookkeeping updates for prunes, and
// returns the index ops to fold into the batch's single commit plus any
// segment paths to unlink once that commit succeeds.
func (b *fileBatch) commitType(ctx context.Context, t PayloadType, ops []stagedOp) ([]kvOp, []file, []string, error) {
	if len(ops) == 0 {
		return nil, nil, nil, nil
	}

	hdr, err := headerSize(t)
	if err != nil {
		return nil, nil, nil, err
	}

	segment, rec, existed, err := b.store.alloc.currentSegment(ctx, t)
	if err != nil {
		return nil, nil, nil, err
	}
	states := map[uint32]*segmentState{segment: {rec: rec}}
	// advanced tracks whether the current-segment pointer must be
	// (re)written. It starts provisional: !existed alone doesn't
	// justify writing the pointer if this batch turns out to contain
	// no real writes for t (e.g. every staged write dedups, or the
	// batch only prunes). wroteAny gates the final emission below.
	advanced := !existed
	wroteAny := false
	stagedHashes := map[[32]byte]bool{}

	openByPath := map[string]file{}
	var openOrder []file
	openFile := func(path string) (file, error) {
		if f, ok := openByPath[path]; ok {
			return f, nil
		}
		f, err := b.store.files.OpenAppend(path)
		if err != nil {
			return nil, err
		}
		openByPath[path] = f
		openOrder = append(openOrder, f)
		return f, nil
	}

	var indexOps []kvOp
	var unlink []string

	for _, op := range ops {
		switch op.kind {
		case stagedWrite:
			if stagedHashes[op.hash] {
				continue
			}
			exists, err := b.store.engine.has(indexBucket, blockRecordKey(t, op.hash))
			if err != nil {
				return nil, openOrder, nil, err
			}
			if exists {
				continue
			}

			payloadLen := int64(len(op.payload))
			if payloadLen+int64(hdr) > b.store.cfg.MaxFileLength {
				return nil, openOrder, nil, writeTooLargeErrorf("Block length above max file length.")
			}

			st := states[segment]
			if int64(st.rec.Length)+int64(hdr)+payloadLen > b.store.cfg.MaxFileLength {
				segment++
				states[segment] = &segmentState{}
				st = states[segment]
				advanced = true
			}

			path, err := segmentFilename(b.store.cfg.Location, t, segment)
			if err != nil {
				return nil, openOrder, nil, err
			}
			f, err := openFile(path)
			if err != nil {
				return nil, openOrder, nil, err
			}
			if err := b.store.writer.appendRecord(f, t, op.payload); err != nil {
				return nil, openOrder, nil, err
			}

			position := int64(st.rec.Length) + int64(hdr)
			blockRec, err := newBlockRecord(int64(segment), position, payloadLen)
			if err != nil {
				return nil, openOrder, nil, err
			}
			newRec, err := newFileRecord(
				int64(st.rec.Blocks)+1,
				int64(st.rec.Used)+int64(hdr)+payloadLen,
				int64(st.rec.Length)+int64(hdr)+payloadLen,
			)
			if err != nil {
				return nil, openOrder, nil, err
			}
			st.rec = newRec
			st.deleted = false
			st.touched = true
			wroteAny = true
			stagedHashes[op.hash] = true
			indexOps = append(indexOps, kvOp{kind: kvOpPut, bucket: indexBucket, key: blockRecordKey(t, op.hash), value: blockRec.encode()})

		case stagedPrune:
			recBytes, ok, err := b.store.engine.get(indexBucket, blockRecordKey(t, op.hash))
			if err != nil {
				return nil, openOrder, nil, err
			}
			if !ok {
				continue
			}
			pruned, err := decodeBlockRecord(recBytes)
			if err != nil {
				return nil, openOrder, nil, err
			}

			st, ok := states[pruned.File]
			if !ok {
				fileRecBytes, ok, err := b.store.engine.get(indexBucket, fileRecordKey(t, pruned.File))
				if err != nil {
					return nil, openOrder, nil, err
				}
				var existingRec FileRecord
				if ok {
					existingRec, err = decodeFileRecord(fileRecBytes)
					if err != nil {
						return nil, openOrder, nil, err
					}
				}
				st = &segmentState{rec: existingRec}
				states[pruned.File] = st
			}

			newRec, err := newFileRecord(
				int64(st.rec.Blocks)-1,
				int64(st.rec.Used)-int64(hdr)-int64(pruned.Length),
				int64(st.rec.Length),
			)
			if err != nil {
				return nil, openOrder, nil, err
			}
			st.rec = newRec
			st.deleted = newRec.Blocks == 0
			st.touched = true
			indexOps = append(indexOps, kvOp{kind: kvOpDelete, bucket: indexBucket, key: blockRecordKey(t, op.hash)})
		}
	}

	for segNum, st := range states {
		if !st.touched {
			continue
		}
		if st.deleted {
			indexOps = append(indexOps, kvOp{kind: kvOpDelete, bucket: indexBucket, key: fileRecordKey(t, segNum)})
			path, err := segmentFilename(b.store.cfg.Location, t, segNum)
			if err != nil {
				return nil, openOrder, nil, err
			}
			unlink = append(unlink, path)
			continue
		}
		indexOps = append(indexOps, kvOp{kind: kvOpPut, bucket: indexBucket, key: fileRecordKey(t, segNum), value: st.rec.encode()})
	}
	if advanced && wroteAny {
		indexOps = append(indexOps, kvOp{kind: kvOpPut, bucket: indexBucket, key: currentSegmentKey(t), value: encodeSegmentNumber(segment)})
	}

	return indexOps, openOrder, unlink, nil
}
