package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlvery/pkg/platform/sentinel"
)

func TestKeyFor(t *testing.T) {
	assert.Equal(t, "signatures/abc/a1.png", KeyFor("abc", "a1"))
	assert.NotEqual(t, KeyFor("abc", "a1"), KeyFor("abc", "a2"), "attempts never share a key")
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	data := []byte{0x89, 'P', 'N', 'G'}
	ref, err := s.Put(ctx, KeyFor("d1", "a1"), data)
	require.NoError(t, err)
	assert.Equal(t, "signatures/d1/a1.png", ref)

	data[0] = 0
	got, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, byte(0x89), got[0], "store must keep its own copy")

	got[1] = 'X'
	again, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, byte('P'), again[1], "callers must not mutate stored blobs")

	_, err = s.Get(ctx, "signatures/missing.png")
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}

func TestInMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	keep, err := s.Put(ctx, KeyFor("d1", "won"), []byte("a"))
	require.NoError(t, err)
	drop, err := s.Put(ctx, KeyFor("d1", "lost"), []byte("b"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, drop))
	require.NoError(t, s.Delete(ctx, drop), "deleting twice is fine")

	_, err = s.Get(ctx, drop)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	got, err := s.Get(ctx, keep)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)
}
