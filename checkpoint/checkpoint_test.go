// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	blob := []byte(`{"version":"1.0.0"}`)
	entry, err := store.Save(ctx, "run-a", blob)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "run-a", entry.Run)
	assert.Equal(t, len(blob), entry.Size)

	got, loaded, err := store.Load(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, blob, got)
	assert.Equal(t, entry.ID, loaded.ID)
	assert.Equal(t, entry.Checksum, loaded.Checksum)
}

func TestLoadReturnsNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "run", []byte("first"))
	require.NoError(t, err)
	time.Sleep(time.Millisecond) // distinct UnixNano keys
	latest, err := store.Save(ctx, "run", []byte("second"))
	require.NoError(t, err)

	blob, entry, err := store.Load(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), blob)
	assert.Equal(t, latest.ID, entry.ID)
}

func TestLoadNotFound(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.Load(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunNameValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "", []byte("x"))
	assert.ErrorIs(t, err, ErrBadRun)
	_, err = store.Save(ctx, "a/b", []byte("x"))
	assert.ErrorIs(t, err, ErrBadRun)
	_, _, err = store.Load(ctx, "")
	assert.ErrorIs(t, err, ErrBadRun)
}

func TestList_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "alpha", []byte("a1"))
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = store.Save(ctx, "beta", []byte("b1"))
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = store.Save(ctx, "alpha", []byte("a2"))
	require.NoError(t, err)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "alpha", entries[0].Run)
	assert.Equal(t, 2, entries[0].Size)
	assert.Equal(t, "beta", entries[1].Run)
	assert.Equal(t, "alpha", entries[2].Run)
	assert.True(t, entries[0].CreatedAt.After(entries[2].CreatedAt))
}

func TestClosedStore(t *testing.T) {
	store, err := Open(InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close()) // idempotent

	ctx := context.Background()
	_, err = store.Save(ctx, "run", []byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = store.Load(ctx, "run")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = store.List(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestContextCancelled(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "run", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOnDiskRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(DefaultConfig(dir))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Save(ctx, "run", []byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopen from the same directory.
	store, err = Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer store.Close()

	blob, _, err := store.Load(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), blob)
}
