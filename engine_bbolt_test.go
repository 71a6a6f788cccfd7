package blockstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *boltEngine {
	t.Helper()
	e, err := openBoltEngine(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.close() })
	return e
}

func TestBoltEngineGetPutHas(t *testing.T) {
	e := openTestEngine(t)
	bucket := []byte("b")

	_, ok, err := e.get(bucket, []byte("k"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, e.put(bucket, []byte("k"), []byte("v")))

	v, ok, err := e.get(bucket, []byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)

	has, err := e.has(bucket, []byte("k"))
	require.NoError(t, err)
	require.True(t, has)
}

func TestBoltEngineDel(t *testing.T) {
	e := openTestEngine(t)
	bucket := []byte("b")

	existed, err := e.del(bucket, []byte("missing"))
	require.NoError(t, err)
	require.False(t, existed)

	require.NoError(t, e.put(bucket, []byte("k"), []byte("v")))
	existed, err = e.del(bucket, []byte("k"))
	require.NoError(t, err)
	require.True(t, existed)

	_, ok, err := e.get(bucket, []byte("k"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBoltEngineIteratePrefixOrder(t *testing.T) {
	e := openTestEngine(t)
	bucket := []byte("b")

	require.NoError(t, e.put(bucket, []byte("p:2"), []byte("two")))
	require.NoError(t, e.put(bucket, []byte("p:1"), []byte("one")))
	require.NoError(t, e.put(bucket, []byte("q:1"), []byte("other")))

	var keys []string
	err := e.iteratePrefix(bucket, []byte("p:"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"p:1", "p:2"}, keys)
}

func TestBoltEngineIteratePrefixStopsEarly(t *testing.T) {
	e := openTestEngine(t)
	bucket := []byte("b")
	for _, k := range []string{"p:1", "p:2", "p:3"} {
		require.NoError(t, e.put(bucket, []byte(k), []byte("v")))
	}

	var seen int
	err := e.iteratePrefix(bucket, []byte("p:"), func(k, v []byte) bool {
		seen++
		return false
	})
	require.NoError(t, err)
	require.Equal(t, 1, seen)
}

func TestBoltEngineBatchAtomic(t *testing.T) {
	e := openTestEngine(t)
	bucket := []byte("b")
	require.NoError(t, e.put(bucket, []byte("existing"), []byte("v")))

	ops := []kvOp{
		{kind: kvOpPut, bucket: bucket, key: []byte("a"), value: []byte("1")},
		{kind: kvOpPut, bucket: bucket, key: []byte("b"), value: []byte("2")},
		{kind: kvOpDelete, bucket: bucket, key: []byte("existing")},
	}
	require.NoError(t, e.batch(context.Background(), ops))

	v, ok, err := e.get(bucket, []byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)

	_, ok, err = e.get(bucket, []byte("existing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBoltEngineBatchRespectsCancelledContext(t *testing.T) {
	e := openTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.batch(ctx, []kvOp{{kind: kvOpPut, bucket: []byte("b"), key: []byte("k"), value: []byte("v")}})
	require.Error(t, err)
}
