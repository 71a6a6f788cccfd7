package blockstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentFilenameRoundTrip(t *testing.T) {
	tt := []struct {
		t       PayloadType
		segment uint32
	}{
		{Block, 0},
		{Undo, 42},
		{Merkle, 99999},
	}
	for _, tc := range tt {
		path, err := segmentFilename("/data", tc.t, tc.segment)
		require.NoError(t, err)

		gotType, gotSegment, ok := parseSegmentFilename(path[len("/data/"):])
		require.True(t, ok)
		require.Equal(t, tc.t, gotType)
		require.Equal(t, tc.segment, gotSegment)
	}
}

func TestSegmentFilenameTooLarge(t *testing.T) {
	_, err := segmentFilename("/data", Block, 100000)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRange))
}

func TestParseSegmentFilenameRejectsGarbage(t *testing.T) {
	tt := []string{
		"blk0042.dat",
		"xyz00042.dat",
		"blk00042.txt",
		"blk0004a.dat",
		"",
	}
	for _, name := range tt {
		_, _, ok := parseSegmentFilename(name)
		require.False(t, ok, name)
	}
}

func TestValidateLocation(t *testing.T) {
	require.Error(t, validateLocation("relative/path"))
	require.NoError(t, validateLocation("/absolute/path"))
}

func TestValidateMaxFileLength(t *testing.T) {
	require.Error(t, validateMaxFileLength(0))
	require.Error(t, validateMaxFileLength(-1))
	require.NoError(t, validateMaxFileLength(1))
}

func TestHeaderSizes(t *testing.T) {
	b, err := headerSize(Block)
	require.NoError(t, err)
	require.Equal(t, 8, b)

	u, err := headerSize(Undo)
	require.NoError(t, err)
	require.Equal(t, 40, u)

	m, err := headerSize(Merkle)
	require.NoError(t, err)
	require.Equal(t, 8, m)
}
