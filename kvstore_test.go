package blockstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestKVStore(t *testing.T) *KVStore {
	t.Helper()
	s, err := NewKVStore(Config{Location: t.TempDir(), Memory: false})
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestKVStoreWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestKVStore(t)
	h := hashOf(1)

	wrote, err := s.WriteUndo(ctx, h, Payload("undo coins"))
	require.NoError(t, err)
	require.True(t, wrote)

	got, ok, err := s.ReadUndo(ctx, h, 0, NoSize)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Payload("undo coins"), got)
}

func TestKVStoreWriteDedup(t *testing.T) {
	ctx := context.Background()
	s := newTestKVStore(t)
	h := hashOf(2)

	wrote, err := s.WriteBlock(ctx, h, Payload("first"))
	require.NoError(t, err)
	require.True(t, wrote)

	wrote, err = s.WriteBlock(ctx, h, Payload("second"))
	require.NoError(t, err)
	require.False(t, wrote)
}

func TestKVStorePrune(t *testing.T) {
	ctx := context.Background()
	s := newTestKVStore(t)
	h := hashOf(3)

	_, err := s.WriteMerkle(ctx, h, Payload("merkle"))
	require.NoError(t, err)

	pruned, err := s.PruneMerkle(ctx, h)
	require.NoError(t, err)
	require.True(t, pruned)

	has, err := s.HasMerkle(ctx, h)
	require.NoError(t, err)
	require.False(t, has)
}

func TestKVStoreTypesAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := newTestKVStore(t)
	h := hashOf(4)

	_, err := s.WriteBlock(ctx, h, Payload("block body"))
	require.NoError(t, err)

	has, err := s.HasUndo(ctx, h)
	require.NoError(t, err)
	require.False(t, has)
}

func TestKVStoreBatchDedupSkipsExisting(t *testing.T) {
	ctx := context.Background()
	s := newTestKVStore(t)
	h := hashOf(5)

	_, err := s.WriteBlock(ctx, h, Payload("original"))
	require.NoError(t, err)

	b := s.Batch()
	b.WriteBlock(h, Payload("should be skipped"))
	require.NoError(t, b.Write(ctx))

	got, _, err := s.ReadBlock(ctx, h, 0, NoSize)
	require.NoError(t, err)
	require.Equal(t, Payload("original"), got)
}

func TestKVStoreBatchSingleUse(t *testing.T) {
	ctx := context.Background()
	s := newTestKVStore(t)

	b := s.Batch()
	b.WriteBlock(hashOf(6), Payload("once"))
	require.NoError(t, b.Write(ctx))
	require.Error(t, b.Write(ctx))
}
