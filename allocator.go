package blockstore

import "context"

// segmentDescriptor is what the allocator hands the writer: which
// segment to append to, its FileRecord as of before this write, its
// path, and whether the current-segment pointer must advance. The
// allocator never touches disk or the index; it only reads the index
// and returns a decision. The writer commits everything (segment file
// append, FileRecord, current-segment pointer) as one atomic unit.
type segmentDescriptor struct {
	Segment  uint32
	Record   FileRecord
	Path     string
	Advanced bool
}

// allocator chooses the current segment for a payload type, rolling
// over to a new segment when a write would exceed maxFileLength.
type allocator struct {
	location      string
	maxFileLength int64
	engine        kvEngine
}

// allocate returns the segment a payload of payloadLength bytes for
// type t should be appended to. It fails with ErrWriteTooLarge if the
// payload (plus its header) can never fit in a segment.
func (a *allocator) allocate(ctx context.Context, t PayloadType, payloadLength int64) (segmentDescriptor, error) {
	hdr, err := headerSize(t)
	if err != nil {
		return segmentDescriptor{}, err
	}
	if payloadLength+int64(hdr) > a.maxFileLength {
		return segmentDescriptor{}, writeTooLargeErrorf("Block length above max file length.")
	}

	segment, rec, existed, err := a.currentSegment(ctx, t)
	if err != nil {
		return segmentDescriptor{}, err
	}

	advanced := !existed
	if int64(rec.Length)+int64(hdr)+payloadLength > a.maxFileLength {
		// Current segment has no room left: finalize it in place
		// (its FileRecord is left as is) and roll to a fresh one.
		segment++
		rec = FileRecord{}
		advanced = true
	}

	path, err := segmentFilename(a.location, t, segment)
	if err != nil {
		return segmentDescriptor{}, err
	}
	return segmentDescriptor{Segment: segment, Record: rec, Path: path, Advanced: advanced}, nil
}

// currentSegment loads the segment number currently receiving writes
// for t and its FileRecord. A missing current-segment pointer means
// type t has never been written to: segment 0, fresh record, reported
// as not-existed so the caller knows to persist the pointer. A present
// pointer whose FileRecord is missing means prune unlinked that
// segment: the allocator tolerates this and reuses the same segment
// number with a fresh record, rather than advancing.
func (a *allocator) currentSegment(ctx context.Context, t PayloadType) (segment uint32, rec FileRecord, existed bool, err error) {
	ptr, ok, err := a.engine.get(indexBucket, currentSegmentKey(t))
	if err != nil {
		return 0, FileRecord{}, false, err
	}
	if !ok {
		return 0, FileRecord{}, false, nil
	}
	segment = decodeSegmentNumber(ptr)

	recBytes, ok, err := a.engine.get(indexBucket, fileRecordKey(t, segment))
	if err != nil {
		return 0, FileRecord{}, false, err
	}
	if !ok {
		return segment, FileRecord{}, true, nil
	}
	rec, err = decodeFileRecord(recBytes)
	if err != nil {
		return 0, FileRecord{}, false, err
	}
	return segment, rec, true, nil
}
