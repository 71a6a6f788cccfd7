package blockstore

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
)

func TestUndoChecksumDeterministic(t *testing.T) {
	body := []byte("undo coins payload")
	require.Equal(t, undoChecksum(body), undoChecksum(append([]byte(nil), body...)))
}

func TestUndoChecksumDiffersOnBody(t *testing.T) {
	require.NotEqual(t, undoChecksum([]byte("a")), undoChecksum([]byte("b")))
}

func TestDoubleSHA256MatchesUndoChecksum(t *testing.T) {
	body := []byte("block payload")
	require.Equal(t, undoChecksum(body), DoubleSHA256(body))
}

// xxhashFunc is a fast, non-cryptographic HashFunc used only in tests
// that don't care about collision resistance, just that recovery calls
// the injected function rather than a hardcoded one.
func xxhashFunc(payload []byte) [32]byte {
	var out [32]byte
	h := xxhash.Sum64(payload)
	for i := 0; i < 8; i++ {
		out[i] = byte(h >> (8 * i))
	}
	return out
}

func TestHashFuncIsInjectable(t *testing.T) {
	var f HashFunc = xxhashFunc
	a := f([]byte("x"))
	b := f([]byte("y"))
	require.NotEqual(t, a, b)
}
