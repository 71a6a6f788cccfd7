package blockstore

import "context"

// reader resolves a hash to its BlockRecord and reads the payload bytes
// directly from the segment body, never touching the header.
type reader struct {
	location string
	engine   kvEngine
	files    fileAPI
}

// read returns the payload for (t, hash), optionally sliced by
// offset/size. size == NoSize means "to the end of the record". Absent
// keys return (nil, false, nil): the null payload, not an error.
func (r *reader) read(ctx context.Context, t PayloadType, hash [32]byte, offset, size int64) (Payload, bool, error) {
	recBytes, ok, err := r.engine.get(indexBucket, blockRecordKey(t, hash))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	rec, err := decodeBlockRecord(recBytes)
	if err != nil {
		return nil, false, err
	}

	readLen, err := readSize(int64(rec.Length), offset, size)
	if err != nil {
		return nil, false, err
	}

	path, err := segmentFilename(r.location, t, rec.File)
	if err != nil {
		return nil, false, err
	}
	f, err := r.files.OpenRead(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	buf := make([]byte, readLen)
	if readLen > 0 {
		if err := readExact(f, buf, int64(rec.Position)+offset); err != nil {
			return nil, false, err
		}
	}
	return buf, true, nil
}

// has reports whether (t, hash) is indexed, without touching the
// segment file.
func (r *reader) has(ctx context.Context, t PayloadType, hash [32]byte) (bool, error) {
	return r.engine.has(indexBucket, blockRecordKey(t, hash))
}
