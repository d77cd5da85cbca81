package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReopen(t *testing.T) {
	dir := t.TempDir()

	st, err := OpenStore(dir)
	require.NoError(t, err)
	empty, err := st.Empty()
	require.NoError(t, err)
	assert.True(t, empty)

	m := NewMap("sources", &LocalClock{Source: 1})
	m.OnSet(func(key string, c Cell) {
		require.NoError(t, st.MergeMapCell(m.Name(), key, c))
	})
	s := NewSeq("tree", &LocalClock{Source: 1})
	s.OnSet(func(pos Pos, c Cell) {
		require.NoError(t, st.MergeSeqElem(s.Name(), pos, c))
	})

	m.Set("a", []byte("alpha"))
	m.Set("b", []byte("beta"))
	m.Delete("b")
	s.Append([]byte("first"))
	s.Append([]byte("second"))
	require.NoError(t, st.Close())

	st, err = OpenStore(dir)
	require.NoError(t, err)
	defer st.Close()
	empty, err = st.Empty()
	require.NoError(t, err)
	assert.False(t, empty)

	m2 := NewMap("sources", &LocalClock{Source: 2})
	require.NoError(t, st.LoadMap(m2))
	value, ok := m2.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("alpha"), value)
	_, ok = m2.Get("b")
	assert.False(t, ok, "the tombstone must survive a reopen")

	s2 := NewSeq("tree", &LocalClock{Source: 2})
	require.NoError(t, st.LoadSeq(s2))
	assert.Equal(t, [][]byte{[]byte("first"), []byte("second")}, s2.Values())
}

func TestStoreMergeOperator(t *testing.T) {
	dir := t.TempDir()
	st, err := OpenStore(dir)
	require.NoError(t, err)

	// two writes to the same key land as pebble merges; the stored
	// value must resolve to the winning cell, in either write order
	newer := Cell{Time: Time{Rev: 5, Src: 1}, Value: []byte("new")}
	older := Cell{Time: Time{Rev: 3, Src: 2}, Value: []byte("old")}
	require.NoError(t, st.MergeMapCell("m", "k", newer))
	require.NoError(t, st.MergeMapCell("m", "k", older))
	require.NoError(t, st.Close())

	st, err = OpenStore(dir)
	require.NoError(t, err)
	defer st.Close()
	m := NewMap("m", &LocalClock{Source: 3})
	require.NoError(t, st.LoadMap(m))
	value, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), value)
}

func TestStoreContainerIsolation(t *testing.T) {
	dir := t.TempDir()
	st, err := OpenStore(dir)
	require.NoError(t, err)
	defer st.Close()

	cell := Cell{Time: Time{Rev: 1, Src: 1}, Value: []byte("v")}
	require.NoError(t, st.MergeMapCell("one", "k", cell))
	require.NoError(t, st.MergeMapCell("two", "k", cell))

	m := NewMap("one", &LocalClock{Source: 2})
	require.NoError(t, st.LoadMap(m))
	assert.Equal(t, 1, m.Len())
}
