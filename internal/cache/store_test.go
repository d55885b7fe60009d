package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	for _, max := range []int{0, 10} {
		store, err := NewStore(max)
		require.NoError(t, err)

		store.Add("a", &Entry{})
		store.Add("b", &Entry{})
		_, ok := store.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 2, store.Len())

		store.Remove("a")
		_, ok = store.Get("a")
		assert.False(t, ok)

		store.Purge()
		assert.Equal(t, 0, store.Len())
	}
}

func TestLRUStoreEvictsOldest(t *testing.T) {
	store, err := NewStore(2)
	require.NoError(t, err)

	store.Add("a", &Entry{})
	store.Add("b", &Entry{})
	store.Get("a")
	store.Add("c", &Entry{})

	_, ok := store.Get("b")
	assert.False(t, ok)
	_, ok = store.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, store.Len())
}
