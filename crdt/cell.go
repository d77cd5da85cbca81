package crdt

import (
	"bytes"

	"github.com/learn-decentralized-systems/toytlv"
	"github.com/pkg/errors"
)

var ErrBadCell = errors.New("crdt: bad cell record")

// Cell is one last-write-wins register: a value with the stamp of
// the write that produced it. A dead cell is a tombstone.
type Cell struct {
	Time  Time
	Value []byte
	Dead  bool
}

// TLV form: a tiny 'T' stamp record, then a 'V' value record
// (an 'X' record for tombstones).
func (c Cell) TLV() []byte {
	bulk := toytlv.TinyRecord('T', c.Time.ZipBytes())
	if c.Dead {
		return append(bulk, toytlv.Record('X', nil)...)
	}
	return append(bulk, toytlv.Record('V', c.Value)...)
}

func CellFromTLV(bulk []byte) (c Cell, err error) {
	stamp, rest, err := toytlv.TakeWary('T', bulk)
	if err != nil {
		return Cell{}, ErrBadCell
	}
	c.Time = TimeFromZipBytes(stamp)
	lit := toytlv.Lit(rest)
	switch lit {
	case 'V':
		c.Value, _, err = toytlv.TakeWary('V', rest)
	case 'X':
		c.Dead = true
		_, _, err = toytlv.TakeWary('X', rest)
	default:
		err = ErrBadCell
	}
	if err != nil {
		return Cell{}, ErrBadCell
	}
	return
}

// MergeCells picks the winner of two concurrent writes: the higher
// stamp; equal stamps fall back to byte order so every replica
// picks the same one.
func MergeCells(a, b Cell) Cell {
	if a.Time.Less(b.Time) {
		return b
	}
	if b.Time.Less(a.Time) {
		return a
	}
	if bytes.Compare(a.Value, b.Value) < 0 {
		return b
	}
	return a
}
