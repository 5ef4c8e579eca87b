package pebble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stornetlabs/stornet/pkg/db"
)

func TestKVStore(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{
			name: "basic_put_get",
			fn:   testBasicPutGet,
		},
		{
			name: "missing_key",
			fn:   testMissingKey,
		},
		{
			name: "delete_operations",
			fn:   testDelete,
		},
		{
			name: "batch_commit",
			fn:   testBatchCommit,
		},
		{
			name: "iterator_range",
			fn:   testIteratorRange,
		},
		{
			name: "store_closure",
			fn:   testStoreClosure,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewKVStore()
			require.NoError(t, err)
			defer store.Close()

			tc.fn(t, store)
		})
	}
}

func testBasicPutGet(t *testing.T, store db.KVStore) {
	key := []byte("test-key")
	value := []byte("test-value")

	err := store.Put(key, value)
	require.NoError(t, err)

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)
}

func testMissingKey(t *testing.T, store db.KVStore) {
	_, err := store.Get([]byte("no-such-key"))
	require.ErrorIs(t, err, ErrNotFound)
}

func testDelete(t *testing.T, store db.KVStore) {
	key := []byte("delete-me")
	require.NoError(t, store.Put(key, []byte("v")))
	require.NoError(t, store.Delete(key))

	_, err := store.Get(key)
	require.ErrorIs(t, err, ErrNotFound)
}

func testBatchCommit(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("a"), []byte("1")))
	require.NoError(t, batch.Put([]byte("b"), []byte("2")))
	require.NoError(t, batch.Commit())
	require.NoError(t, batch.Close())

	// Operations on a committed batch fail.
	require.ErrorIs(t, batch.Put([]byte("c"), []byte("3")), ErrBatchDone)

	got, err := store.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
}

func testIteratorRange(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put([]byte{0x01, 0x01}, []byte("one")))
	require.NoError(t, store.Put([]byte{0x01, 0x02}, []byte("two")))
	require.NoError(t, store.Put([]byte{0x02, 0x01}, []byte("out of range")))

	iter, err := store.NewIterator([]byte{0x01}, []byte{0x02})
	require.NoError(t, err)
	defer iter.Close()

	var values []string
	for iter.Next() {
		val, err := iter.Value()
		require.NoError(t, err)
		values = append(values, string(val))
	}
	assert.Equal(t, []string{"one", "two"}, values)
}

func testStoreClosure(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Close())

	_, err := store.Get([]byte("k"))
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, store.Put([]byte("k"), []byte("v")), ErrClosed)

	// Closing twice is fine.
	require.NoError(t, store.Close())
}
