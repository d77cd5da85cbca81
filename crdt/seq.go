package crdt

import (
	"bytes"
	"encoding/binary"
	"slices"
	"sync"

	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/learn-decentralized-systems/toytlv"
)

// PosPart is one level of a dense position identifier.
// Parts order by digit, ties by the replica that minted them.
type PosPart struct {
	D   uint32
	Src uint64
}

// Pos is a Logoot-style position: a path of parts. Positions are
// totally ordered and a fresh one can always be minted between any
// two, so concurrent inserts converge without index shifting.
type Pos []PosPart

func (p Pos) Compare(q Pos) int {
	for i := 0; i < len(p) && i < len(q); i++ {
		if p[i].D != q[i].D {
			if p[i].D < q[i].D {
				return -1
			}
			return 1
		}
		if p[i].Src != q[i].Src {
			if p[i].Src < q[i].Src {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(p) < len(q):
		return -1
	case len(p) > len(q):
		return 1
	}
	return 0
}

func (p Pos) ZipBytes() []byte {
	buf := make([]byte, 0, len(p)*4)
	for _, part := range p {
		buf = binary.AppendUvarint(buf, uint64(part.D))
		buf = binary.AppendUvarint(buf, part.Src)
	}
	return buf
}

func PosFromZipBytes(buf []byte) (p Pos) {
	for len(buf) > 0 {
		d, n := binary.Uvarint(buf)
		if n <= 0 {
			return nil
		}
		buf = buf[n:]
		src, n := binary.Uvarint(buf)
		if n <= 0 {
			return nil
		}
		buf = buf[n:]
		p = append(p, PosPart{D: uint32(d), Src: src})
	}
	return
}

const posMax = ^uint32(0)

// posBetween mints a position strictly between l and r.
// nil l means the sequence head, nil r means the tail.
func posBetween(l, r Pos, src uint64) (p Pos) {
	for i := 0; ; i++ {
		ld, lsrc := uint32(0), uint64(0)
		if i < len(l) {
			ld, lsrc = l[i].D, l[i].Src
		}
		rd, rsrc := posMax, uint64(0)
		if r != nil && i < len(r) {
			rd, rsrc = r[i].D, r[i].Src
		}
		if rd > ld+1 {
			return append(p, PosPart{D: ld + 1, Src: src})
		}
		// no room at this depth, descend along the left bound
		p = append(p, PosPart{D: ld, Src: lsrc})
		if ld < rd || lsrc < rsrc {
			// every continuation of p now sorts below r
			r = nil
		}
	}
}

type seqElem struct {
	pos  Pos
	cell Cell
}

// Seq is a replicated ordered sequence. Elements keep their position
// forever; removal is a tombstone so remote inserts relative to a
// removed element still land deterministically.
type Seq struct {
	name  string
	clock Clock

	lock  sync.RWMutex
	elems []seqElem
	hook  func(pos Pos, c Cell)
}

func NewSeq(name string, clock Clock) *Seq {
	return &Seq{name: name, clock: clock}
}

func (s *Seq) Name() string {
	return s.name
}

func (s *Seq) OnSet(hook func(pos Pos, c Cell)) {
	s.hook = hook
}

// live maps a live index to the backing slice index; -1 for none.
func (s *Seq) live(idx int) int {
	n := 0
	for i, el := range s.elems {
		if el.cell.Dead {
			continue
		}
		if n == idx {
			return i
		}
		n++
	}
	return -1
}

// Append adds a value at the end of the sequence.
func (s *Seq) Append(value []byte) Time {
	s.lock.Lock()
	var left Pos
	if len(s.elems) > 0 {
		left = s.elems[len(s.elems)-1].pos
	}
	el := seqElem{
		pos:  posBetween(left, nil, s.clock.Src()),
		cell: Cell{Time: s.clock.Tick(), Value: slices.Clone(value)},
	}
	s.elems = append(s.elems, el)
	s.lock.Unlock()
	if s.hook != nil {
		s.hook(el.pos, el.cell)
	}
	return el.cell.Time
}

// InsertAt puts a value before the idx-th live element.
func (s *Seq) InsertAt(idx int, value []byte) Time {
	s.lock.Lock()
	at := s.live(idx)
	var left, right Pos
	if at == -1 {
		at = len(s.elems)
	} else {
		right = s.elems[at].pos
	}
	if at > 0 {
		left = s.elems[at-1].pos
	}
	el := seqElem{
		pos:  posBetween(left, right, s.clock.Src()),
		cell: Cell{Time: s.clock.Tick(), Value: slices.Clone(value)},
	}
	s.elems = slices.Insert(s.elems, at, el)
	s.lock.Unlock()
	if s.hook != nil {
		s.hook(el.pos, el.cell)
	}
	return el.cell.Time
}

// Remove tombstones the idx-th live element.
func (s *Seq) Remove(idx int) (t Time, ok bool) {
	s.lock.Lock()
	at := s.live(idx)
	if at == -1 {
		s.lock.Unlock()
		return T0, false
	}
	cell := Cell{Time: s.clock.Tick(), Dead: true}
	s.elems[at].cell = cell
	pos := s.elems[at].pos
	s.lock.Unlock()
	if s.hook != nil {
		s.hook(pos, cell)
	}
	return cell.Time, true
}

func (s *Seq) Len() (count int) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, el := range s.elems {
		if !el.cell.Dead {
			count++
		}
	}
	return
}

func (s *Seq) Get(idx int) (value []byte, ok bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	at := s.live(idx)
	if at == -1 {
		return nil, false
	}
	return slices.Clone(s.elems[at].cell.Value), true
}

// Values snapshots the live elements in order.
func (s *Seq) Values() (values [][]byte) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, el := range s.elems {
		if !el.cell.Dead {
			values = append(values, slices.Clone(el.cell.Value))
		}
	}
	return
}

// MergeElem folds a remote element in, returns whether it changed
// the sequence.
func (s *Seq) MergeElem(pos Pos, c Cell) bool {
	s.lock.Lock()
	s.clock.See(c.Time)
	at, found := slices.BinarySearchFunc(s.elems, pos, func(el seqElem, p Pos) int {
		return el.pos.Compare(p)
	})
	if found {
		old := s.elems[at].cell
		c = MergeCells(old, c)
		if c.Time == old.Time && c.Dead == old.Dead && bytes.Equal(c.Value, old.Value) {
			s.lock.Unlock()
			return false
		}
		s.elems[at].cell = c
	} else {
		s.elems = slices.Insert(s.elems, at, seqElem{pos: pos, cell: c})
	}
	s.lock.Unlock()
	if s.hook != nil {
		s.hook(pos, c)
	}
	return true
}

// Diff emits one 'E' record per element the given version vector
// has not seen yet.
func (s *Seq) Diff(vv VV) (recs toyqueue.Records) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, el := range s.elems {
		if vv.Covers(el.cell.Time) {
			continue
		}
		recs = append(recs, toytlv.Record('E',
			toytlv.TinyRecord('N', []byte(s.name)),
			toytlv.TinyRecord('P', el.pos.ZipBytes()),
			el.cell.TLV(),
		))
	}
	return
}

func (s *Seq) Seen(vv VV) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, el := range s.elems {
		vv.PutTime(el.cell.Time)
	}
}

// ParseSeqRecord unpacks an 'E' diff record.
func ParseSeqRecord(bulk []byte) (name string, pos Pos, c Cell, err error) {
	body, _, err := toytlv.TakeWary('E', bulk)
	if err != nil {
		return
	}
	nb, rest, err := toytlv.TakeWary('N', body)
	if err != nil {
		return
	}
	pb, rest, err := toytlv.TakeWary('P', rest)
	if err != nil {
		return
	}
	c, err = CellFromTLV(rest)
	if err != nil {
		return
	}
	return string(nb), PosFromZipBytes(pb), c, nil
}
