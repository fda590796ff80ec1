package storage

import (
	"sort"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDatabase(t *testing.T) *badger.DB {
	t.Helper()
	database, err := OpenInMemoryDatabase()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store := NewBadgerStore(openTestDatabase(t), "entries")

	require.NoError(t, store.Put("first", map[string]int{"value": 1}))
	require.NoError(t, store.Put("second", map[string]int{"value": 2}))

	var decoded map[string]int
	found, err := store.Get("first", &decoded)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, decoded["value"])

	keys, err := store.Keys()
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"first", "second"}, keys)

	require.NoError(t, store.Delete("first"))
	found, err = store.Get("first", &decoded)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBadgerStoreRejectsEmptyID(t *testing.T) {
	store := NewBadgerStore(openTestDatabase(t), "entries")
	assert.Error(t, store.Put("", 1))
}

func TestBadgerStorePrefixesAreIsolated(t *testing.T) {
	database := openTestDatabase(t)
	left := NewBadgerStore(database, "left")
	right := NewBadgerStore(database, "right")

	require.NoError(t, left.Put("shared", "left value"))

	var value string
	found, err := right.Get("shared", &value)
	require.NoError(t, err)
	assert.False(t, found)

	keys, err := right.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestOpenDatabaseRejectsEmptyDirectory(t *testing.T) {
	_, err := OpenDatabase("", nil)
	assert.Error(t, err)
}

func TestOpenDatabaseOnDisk(t *testing.T) {
	directory := t.TempDir()
	database, err := OpenDatabase(directory, nil)
	require.NoError(t, err)
	store := NewBadgerStore(database, SelectionPrefix)
	require.NoError(t, NewSelectionPersister(store, "/w").Save([]string{"/w/f"}))
	require.NoError(t, database.Close())

	database, err = OpenDatabase(directory, nil)
	require.NoError(t, err)
	defer database.Close()
	loaded, err := NewSelectionPersister(NewBadgerStore(database, SelectionPrefix), "/w").Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/w/f"}, loaded)
}
