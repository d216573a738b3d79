package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveAndRecover(t *testing.T) {
	dir := t.TempDir()

	w, err := New(dir)
	require.NoError(t, err)

	entries := []Entry{
		{Term: 1, Index: 1, Command: []byte("a"), Type: EntryNormal},
		{Term: 1, Index: 2, Command: []byte("b"), Type: EntryNormal},
	}
	require.NoError(t, w.Save(1, "node-a", entries))

	reopened, err := New(dir)
	require.NoError(t, err)
	require.Equal(t, uint64(1), reopened.GetCurrentTerm())
	require.Equal(t, "node-a", reopened.GetVotedFor())
	require.Equal(t, uint64(2), reopened.GetLastIndex())
	require.Equal(t, uint64(1), reopened.GetLastTerm())
	require.Len(t, reopened.GetAllEntries(), 2)
}

func TestAppendAndTruncate(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, w.AppendEntries([]Entry{{Term: 1, Index: 1}, {Term: 1, Index: 2}}))
	require.NoError(t, w.AppendEntries([]Entry{{Term: 2, Index: 3}}))
	require.Equal(t, uint64(3), w.GetLastIndex())

	require.NoError(t, w.TruncateAfter(1))
	require.Equal(t, uint64(1), w.GetLastIndex())
	require.Equal(t, uint64(1), w.GetLastTerm())
	require.Nil(t, w.GetEntry(2))
}

func TestSnapshotCompactsLog(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, w.AppendEntries([]Entry{
		{Term: 1, Index: 1}, {Term: 1, Index: 2}, {Term: 1, Index: 3},
	}))

	require.NoError(t, w.SaveSnapshot(Snapshot{
		Metadata: SnapshotMetadata{LastIncludedIndex: 2, LastIncludedTerm: 1},
		Data:     []byte("snapshot-payload"),
	}))

	require.Nil(t, w.GetEntry(1))
	require.Nil(t, w.GetEntry(2))
	require.NotNil(t, w.GetEntry(3))

	loaded, err := w.LoadSnapshot()
	require.NoError(t, err)
	require.Equal(t, []byte("snapshot-payload"), loaded.Data)
}

// TestPersistLeavesNoTempFileOnSuccess guards the atomic-write upgrade: a
// successful Save must not leave a raft.wal.tmp-* sibling behind.
func TestPersistLeavesNoTempFileOnSuccess(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, w.Save(1, "x", nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp-")
	}
	require.FileExists(t, filepath.Join(dir, walFileName))
}
