package crdt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosCompare(t *testing.T) {
	a := Pos{{D: 1, Src: 1}}
	b := Pos{{D: 1, Src: 2}}
	c := Pos{{D: 2, Src: 1}}
	deeper := Pos{{D: 1, Src: 1}, {D: 1, Src: 1}}

	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, -1, b.Compare(c))
	// a prefix sorts before any extension of itself
	assert.Equal(t, -1, a.Compare(deeper))
	assert.Equal(t, 1, deeper.Compare(a))
}

func TestPosZipRoundTrip(t *testing.T) {
	pos := Pos{{D: 1, Src: 42}, {D: 300, Src: 7}, {D: 0, Src: 0}}
	assert.Equal(t, pos, PosFromZipBytes(pos.ZipBytes()))
	assert.Nil(t, PosFromZipBytes(nil))
}

func TestPosBetween(t *testing.T) {
	// head insert into an empty sequence
	p := posBetween(nil, nil, 1)
	require.NotEmpty(t, p)

	// repeated inserts between two fixed bounds keep minting fresh,
	// strictly ordered positions
	left := posBetween(nil, nil, 1)
	right := posBetween(left, nil, 1)
	for i := 0; i < 64; i++ {
		mid := posBetween(left, right, 2)
		require.Equal(t, -1, left.Compare(mid), "iter %d", i)
		require.Equal(t, -1, mid.Compare(right), "iter %d", i)
		right = mid
	}
}

func TestSeqAppendInsertRemove(t *testing.T) {
	s := NewSeq("tree", &LocalClock{Source: 1})
	s.Append([]byte("a"))
	s.Append([]byte("c"))
	s.InsertAt(1, []byte("b"))

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, s.Values())

	value, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, []byte("b"), value)

	_, ok = s.Remove(1)
	require.True(t, ok)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, [][]byte{[]byte("a"), []byte("c")}, s.Values())

	// removal keeps the position as a tombstone; a later insert at
	// the same live index still lands between the survivors
	s.InsertAt(1, []byte("b2"))
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b2"), []byte("c")}, s.Values())

	_, ok = s.Remove(9)
	assert.False(t, ok)
}

func TestSeqConcurrentAppendsConverge(t *testing.T) {
	ours := NewSeq("tree", &LocalClock{Source: 1})
	theirs := NewSeq("tree", &LocalClock{Source: 2})

	for i := 0; i < 5; i++ {
		ours.Append([]byte(fmt.Sprintf("ours-%d", i)))
		theirs.Append([]byte(fmt.Sprintf("theirs-%d", i)))
	}

	exchange := func(from, to *Seq) {
		for _, rec := range from.Diff(make(VV)) {
			name, pos, cell, err := ParseSeqRecord(rec)
			require.NoError(t, err)
			require.Equal(t, "tree", name)
			to.MergeElem(pos, cell)
		}
	}
	exchange(ours, theirs)
	exchange(theirs, ours)

	assert.Equal(t, 10, ours.Len())
	assert.Equal(t, ours.Values(), theirs.Values())

	// merging the same batch again changes nothing
	before := ours.Values()
	exchange(theirs, ours)
	assert.Equal(t, before, ours.Values())
}

func TestSeqRemoteRemove(t *testing.T) {
	ours := NewSeq("tree", &LocalClock{Source: 1})
	theirs := NewSeq("tree", &LocalClock{Source: 2})
	ours.Append([]byte("a"))
	ours.Append([]byte("b"))

	for _, rec := range ours.Diff(make(VV)) {
		_, pos, cell, err := ParseSeqRecord(rec)
		require.NoError(t, err)
		theirs.MergeElem(pos, cell)
	}
	require.Equal(t, 2, theirs.Len())

	theirs.Remove(0)
	vv := make(VV)
	ours.Seen(vv)
	for _, rec := range theirs.Diff(vv) {
		_, pos, cell, err := ParseSeqRecord(rec)
		require.NoError(t, err)
		ours.MergeElem(pos, cell)
	}
	assert.Equal(t, [][]byte{[]byte("b")}, ours.Values())
}

func TestMergeElemValueTieBreak(t *testing.T) {
	s := NewSeq("tree", &LocalClock{Source: 1})
	pos := Pos{{D: 1, Src: 2}}
	stamp := Time{Rev: 1, Src: 2}

	require.True(t, s.MergeElem(pos, Cell{Time: stamp, Value: []byte("a")}))
	// same stamp, different bytes: byte order picks the winner and
	// the change must not be swallowed
	require.True(t, s.MergeElem(pos, Cell{Time: stamp, Value: []byte("b")}))
	assert.Equal(t, [][]byte{[]byte("b")}, s.Values())

	// the losing bytes change nothing
	require.False(t, s.MergeElem(pos, Cell{Time: stamp, Value: []byte("a")}))
	assert.Equal(t, [][]byte{[]byte("b")}, s.Values())
}

func TestVVRoundTrip(t *testing.T) {
	vv := VV{1: 10, 2: 20}
	got, err := VVFromTLV(vv.TLV())
	require.NoError(t, err)
	assert.Equal(t, vv, got)

	assert.True(t, vv.Covers(Time{Rev: 10, Src: 1}))
	assert.False(t, vv.Covers(Time{Rev: 11, Src: 1}))
	assert.False(t, vv.Covers(Time{Rev: 1, Src: 3}))

	cp := vv.Copy()
	cp.Put(3, 30)
	assert.NotEqual(t, vv, cp)
	assert.False(t, vv.Put(1, 5))
	assert.True(t, vv.Put(1, 11))
}
