package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAssignsNonZeroID(t *testing.T) {
	r := New[string]()
	id := r.Insert("plugin-a")
	assert.NotZero(t, id)
}

func TestGetReturnsInsertedValue(t *testing.T) {
	r := New[string]()
	id := r.Insert("plugin-a")

	v, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, "plugin-a", v)
	r.Release(id)
}

func TestGetZeroIDAlwaysMisses(t *testing.T) {
	r := New[string]()
	_, ok := r.Get(0)
	assert.False(t, ok)
}

func TestGetMissingIDMisses(t *testing.T) {
	r := New[string]()
	_, ok := r.Get(999)
	assert.False(t, ok)
}

func TestRemoveDeletesEntry(t *testing.T) {
	r := New[string]()
	id := r.Insert("plugin-a")

	v, ok := r.Remove(id)
	require.True(t, ok)
	assert.Equal(t, "plugin-a", v)

	_, ok = r.Get(id)
	assert.False(t, ok)
}

func TestDistinctInsertsGetDistinctIDs(t *testing.T) {
	r := New[int]()
	a := r.Insert(1)
	b := r.Insert(2)
	assert.NotEqual(t, a, b)
}

func TestRemoveZeroIDIsNoop(t *testing.T) {
	r := New[string]()
	_, ok := r.Remove(0)
	assert.False(t, ok)
}

func TestLenTracksLiveEntries(t *testing.T) {
	r := New[string]()
	assert.Equal(t, 0, r.Len())
	id := r.Insert("x")
	assert.Equal(t, 1, r.Len())
	r.Remove(id)
	assert.Equal(t, 0, r.Len())
}
