package blockstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocatorFirstWriteStartsAtSegmentZero(t *testing.T) {
	e := openTestEngine(t)
	a := &allocator{location: "/data", maxFileLength: 1 << 20, engine: e}

	desc, err := a.allocate(context.Background(), Block, 64)
	require.NoError(t, err)
	require.Equal(t, uint32(0), desc.Segment)
	require.True(t, desc.Advanced)
	require.Equal(t, FileRecord{}, desc.Record)
}

func TestAllocatorRollsOverWhenSegmentFull(t *testing.T) {
	e := openTestEngine(t)
	hdr, err := headerSize(Block)
	require.NoError(t, err)
	a := &allocator{location: "/data", maxFileLength: int64(hdr) + 10, engine: e}
	ctx := context.Background()

	rec, err := newFileRecord(1, int64(hdr)+10, int64(hdr)+10)
	require.NoError(t, err)
	require.NoError(t, e.put(indexBucket, fileRecordKey(Block, 0), rec.encode()))
	require.NoError(t, e.put(indexBucket, currentSegmentKey(Block), encodeSegmentNumber(0)))

	desc, err := a.allocate(ctx, Block, 8)
	require.NoError(t, err)
	require.Equal(t, uint32(1), desc.Segment)
	require.True(t, desc.Advanced)
	require.Equal(t, FileRecord{}, desc.Record)
}

func TestAllocatorRejectsOversizedPayload(t *testing.T) {
	e := openTestEngine(t)
	a := &allocator{location: "/data", maxFileLength: 16, engine: e}

	_, err := a.allocate(context.Background(), Block, 64)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrWriteTooLarge))
}

// TestAllocatorToleratesMissingFileRecordAfterPrune covers the §9
// current-segment invariant: a current-segment pointer can outlive its
// FileRecord (the segment was emptied and unlinked by a prune). The
// allocator must reuse that segment number with a fresh record rather
// than treat the type as unwritten or bump past it.
func TestAllocatorToleratesMissingFileRecordAfterPrune(t *testing.T) {
	e := openTestEngine(t)
	a := &allocator{location: "/data", maxFileLength: 1 << 20, engine: e}
	require.NoError(t, e.put(indexBucket, currentSegmentKey(Block), encodeSegmentNumber(3)))

	segment, rec, existed, err := a.currentSegment(context.Background(), Block)
	require.NoError(t, err)
	require.Equal(t, uint32(3), segment)
	require.Equal(t, FileRecord{}, rec)
	require.True(t, existed)

	desc, err := a.allocate(context.Background(), Block, 64)
	require.NoError(t, err)
	require.Equal(t, uint32(3), desc.Segment)
	require.False(t, desc.Advanced)
}

func TestAllocatorNoPointerMeansUnwritten(t *testing.T) {
	e := openTestEngine(t)
	a := &allocator{location: "/data", maxFileLength: 1 << 20, engine: e}

	segment, rec, existed, err := a.currentSegment(context.Background(), Merkle)
	require.NoError(t, err)
	require.Equal(t, uint32(0), segment)
	require.Equal(t, FileRecord{}, rec)
	require.False(t, existed)
}
