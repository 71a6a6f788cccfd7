package blockstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeLocksTryLockRejectsSecondHolder(t *testing.T) {
	l := &typeLocks{}
	require.True(t, l.tryLock(Block))
	require.False(t, l.tryLock(Block))
	l.unlock(Block)
	require.True(t, l.tryLock(Block))
}

func TestTypeLocksTypesAreIndependent(t *testing.T) {
	l := &typeLocks{}
	require.True(t, l.tryLock(Block))
	require.True(t, l.tryLock(Undo))
	require.True(t, l.tryLock(Merkle))
}

func TestTypeLocksLockAllThenUnlockAll(t *testing.T) {
	l := &typeLocks{}
	l.lockAll()
	require.False(t, l.tryLock(Block))
	l.unlockAll()
	require.True(t, l.tryLock(Block))
	require.True(t, l.tryLock(Undo))
	require.True(t, l.tryLock(Merkle))
}
