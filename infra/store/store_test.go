package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	s := openTestStore(t)

	_, found, err := s.Get([]byte("missing"))
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Set([]byte("k"), []byte("v")))
	val, found, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v"), val)

	require.NoError(t, s.Delete([]byte("k")))
	_, found, err = s.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestBatchCommitAtomic(t *testing.T) {
	s := openTestStore(t)

	b := s.NewBatch()
	require.NoError(t, b.Set([]byte("a"), []byte("1"), nil))
	require.NoError(t, b.Set([]byte("b"), []byte("2"), nil))
	require.NoError(t, s.Commit(b))

	for _, k := range []string{"a", "b"} {
		_, found, err := s.Get([]byte(k))
		require.NoError(t, err)
		require.True(t, found, k)
	}
}

func TestScanOrderAndLimit(t *testing.T) {
	s := openTestStore(t)

	for _, k := range []string{"p/3", "p/1", "q/9", "p/2"} {
		require.NoError(t, s.Set([]byte(k), nil))
	}

	entries, err := s.ScanPrefix([]byte("p/"), false, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, []byte("p/1"), entries[0].Key)
	require.Equal(t, []byte("p/2"), entries[1].Key)
	require.Equal(t, []byte("p/3"), entries[2].Key)

	entries, err = s.ScanPrefix([]byte("p/"), true, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, []byte("p/3"), entries[0].Key)
	require.Equal(t, []byte("p/2"), entries[1].Key)
}

func TestU64OrderPreserving(t *testing.T) {
	s := openTestStore(t)

	for _, v := range []uint64{300, 7, 1 << 40, 42} {
		require.NoError(t, s.Set(Key([]byte("n/"), U64(v)), nil))
	}
	entries, err := s.ScanPrefix([]byte("n/"), false, 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	var prev uint64
	for i, e := range entries {
		v := DecodeU64(e.Key[2:])
		if i > 0 {
			require.Greater(t, v, prev)
		}
		prev = v
	}
}

func TestPrefixEnd(t *testing.T) {
	require.Equal(t, []byte("p0"), PrefixEnd([]byte("p/")))
	require.Equal(t, []byte{0x01}, PrefixEnd([]byte{0x00}))
	require.Equal(t, []byte{0x02}, PrefixEnd([]byte{0x01, 0xff}))
	require.Nil(t, PrefixEnd([]byte{0xff, 0xff}))
}
