package blockstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrorsAreWrapped(t *testing.T) {
	tt := []struct {
		name string
		err  error
		want error
	}{
		{"config", configErrorf("bad: %s", "x"), ErrConfig},
		{"range", rangeErrorf("bad: %d", 1), ErrRange},
		{"write too large", writeTooLargeErrorf("too big"), ErrWriteTooLarge},
		{"write conflict", writeConflictErrorf("busy"), ErrWriteConflict},
		{"short io", shortIOErrorf("short"), ErrShortIO},
		{"already committed", alreadyCommittedErrorf("done"), ErrAlreadyCommitted},
		{"upstream io", upstreamIOErrorf("boom: %w", errors.New("disk")), ErrUpstreamIO},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			require.True(t, errors.Is(tc.err, tc.want))
		})
	}
}

func TestReadSizeBounds(t *testing.T) {
	n, err := readSize(10, 0, NoSize)
	require.NoError(t, err)
	require.Equal(t, int64(10), n)

	n, err = readSize(10, 4, NoSize)
	require.NoError(t, err)
	require.Equal(t, int64(6), n)

	n, err = readSize(10, 2, 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	_, err = readSize(10, -1, NoSize)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRange))

	_, err = readSize(10, 0, 11)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRange))

	_, err = readSize(10, 11, NoSize)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRange))
}
