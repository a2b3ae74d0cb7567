package data

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JorgeCoupr/situm-flutter/sdk"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cartography.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStorePutGet(t *testing.T) {
	store := openStore(t)

	in := sdk.Building{Identifier: "B1", Name: "HQ", Address: "Rua Nova 1"}
	require.NoError(t, store.Put(KindBuilding, in.Identifier, "", in))

	var out sdk.Building
	found, err := store.Get(KindBuilding, "B1", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)
}

func TestStoreGetAbsent(t *testing.T) {
	store := openStore(t)

	var out sdk.Building
	found, err := store.Get(KindBuilding, "nope", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStorePutOverwrites(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Put(KindBuilding, "B1", "", sdk.Building{Identifier: "B1", Name: "old"}))
	require.NoError(t, store.Put(KindBuilding, "B1", "", sdk.Building{Identifier: "B1", Name: "new"}))

	var out sdk.Building
	found, err := store.Get(KindBuilding, "B1", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new", out.Name)
}

func TestStoreListFiltersByBuilding(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Put(KindPoi, "1", "B1", sdk.Poi{Identifier: "1", BuildingIdentifier: "B1"}))
	require.NoError(t, store.Put(KindPoi, "2", "B1", sdk.Poi{Identifier: "2", BuildingIdentifier: "B1"}))
	require.NoError(t, store.Put(KindPoi, "3", "B2", sdk.Poi{Identifier: "3", BuildingIdentifier: "B2"}))

	payloads, err := store.List(KindPoi, "B1")
	require.NoError(t, err)
	assert.Len(t, payloads, 2)

	payloads, err = store.List(KindPoi, "")
	require.NoError(t, err)
	assert.Len(t, payloads, 3)

	payloads, err = store.List(KindCategory, "")
	require.NoError(t, err)
	assert.Empty(t, payloads)
}

func TestStoreClear(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Put(KindBuilding, "B1", "", sdk.Building{Identifier: "B1"}))
	require.NoError(t, store.Put(KindPoi, "1", "B1", sdk.Poi{Identifier: "1"}))
	require.NoError(t, store.Clear())

	payloads, err := store.List(KindBuilding, "")
	require.NoError(t, err)
	assert.Empty(t, payloads)

	var out sdk.Building
	found, err := store.Get(KindBuilding, "B1", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeviceIDStable(t *testing.T) {
	dir := t.TempDir()

	first, err := NewDevice(dir).ID()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := NewDevice(dir).ID()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDeviceIDPerDirectory(t *testing.T) {
	first, err := NewDevice(t.TempDir()).ID()
	require.NoError(t, err)

	second, err := NewDevice(t.TempDir()).ID()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
