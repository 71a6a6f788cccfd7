package blockstore

import (
	"context"

	"github.com/rs/zerolog"
)

// pruner removes a payload's index entry and, when a segment's live
// count reaches zero, reclaims the segment file itself.
type pruner struct {
	location string
	engine   kvEngine
	files    fileAPI
	logger   zerolog.Logger
}

// prune removes (t, hash). It returns false if the hash wasn't indexed.
func (p *pruner) prune(ctx context.Context, t PayloadType, hash [32]byte) (bool, error) {
	recBytes, ok, err := p.engine.get(indexBucket, blockRecordKey(t, hash))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	rec, err := decodeBlockRecord(recBytes)
	if err != nil {
		return false, err
	}

	hdr, err := headerSize(t)
	if err != nil {
		return false, err
	}

	fileRecBytes, ok, err := p.engine.get(indexBucket, fileRecordKey(t, rec.File))
	if err != nil {
		return false, err
	}
	var fileRec FileRecord
	if ok {
		fileRec, err = decodeFileRecord(fileRecBytes)
		if err != nil {
			return false, err
		}
	}

	newFileRec, err := newFileRecord(
		int64(fileRec.Blocks)-1,
		int64(fileRec.Used)-int64(hdr)-int64(rec.Length),
		int64(fileRec.Length),
	)
	if err != nil {
		return false, err
	}

	ops := []kvOp{
		{kind: kvOpDelete, bucket: indexBucket, key: blockRecordKey(t, hash)},
	}
	emptied := newFileRec.Blocks == 0
	if emptied {
		ops = append(ops, kvOp{kind: kvOpDelete, bucket: indexBucket, key: fileRecordKey(t, rec.File)})
	} else {
		ops = append(ops, kvOp{kind: kvOpPut, bucket: indexBucket, key: fileRecordKey(t, rec.File), value: newFileRec.encode()})
	}

	if err := p.engine.batch(ctx, ops); err != nil {
		return false, err
	}

	// The current-segment pointer is left untouched even when the
	// unlinked segment was the current one. The allocator tolerates
	// the missing file on the next write to that type.
	if emptied {
		path, err := segmentFilename(p.location, t, rec.File)
		if err != nil {
			return false, err
		}
		if err := p.files.Unlink(path); err != nil {
			return false, err
		}
		p.logger.Debug().Str("path", path).Uint32("segment", rec.File).Msg("unlinked emptied segment")
	}

	return true, nil
}
