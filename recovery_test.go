package blockstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordHashBlockUsesInjectedHashFunc(t *testing.T) {
	s := &recoveryScanner{hash: xxhashFunc}
	body := []byte("block body")

	got, err := s.recordHash(Block, body, segmentHeader{})
	require.NoError(t, err)
	require.Equal(t, xxhashFunc(body), got)
}

func TestRecordHashMerkleUsesEmbeddedPrefix(t *testing.T) {
	s := &recoveryScanner{hash: DoubleSHA256}
	want := hashOf(77)
	body := append(append([]byte(nil), want[:]...), []byte("merkle tail bytes")...)

	got, err := s.recordHash(Merkle, body, segmentHeader{})
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestRecordHashMerkleTooShort(t *testing.T) {
	s := &recoveryScanner{hash: DoubleSHA256}
	_, err := s.recordHash(Merkle, []byte("short"), segmentHeader{})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRange))
}
