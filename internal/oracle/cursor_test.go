package oracle_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/teleport-bridge/teleportd/internal/oracle"
)

func TestFileCursorStore(t *testing.T) {
	store, err := oracle.NewFileCursorStore(t.TempDir())
	require.NoError(t, err)

	// missing file yields the fallback
	require.Equal(t, uint64(42), store.Get("telos", "oracle1", "watch", 42))

	require.NoError(t, store.Set("telos", "oracle1", "watch", 1000))
	require.Equal(t, uint64(1000), store.Get("telos", "oracle1", "watch", 42))

	// sides and accounts are independent
	require.Equal(t, uint64(7), store.Get("telos", "oracle1", "sign", 7))
	require.Equal(t, uint64(7), store.Get("telos", "oracle2", "watch", 7))
}

func TestFileCursorStoreMalformed(t *testing.T) {
	dir := t.TempDir()
	store, err := oracle.NewFileCursorStore(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "telos-oracle1-watch.cursor")
	require.NoError(t, os.WriteFile(path, []byte("not a number"), 0644))

	require.Equal(t, uint64(11), store.Get("telos", "oracle1", "watch", 11))
}

func TestFileCursorStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := oracle.NewFileCursorStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("ledger", "oracle1", "sign", 55))

	reopened, err := oracle.NewFileCursorStore(dir)
	require.NoError(t, err)
	require.Equal(t, uint64(55), reopened.Get("ledger", "oracle1", "sign", 0))
}
