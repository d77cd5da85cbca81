package crdt

import (
	"io"

	"github.com/cockroachdb/pebble"
)

// Store persists container cells in a pebble database, one key per
// cell. The pebble merge operator delegates to the CRDT cell merge,
// so concurrent writers converge on disk the same way they do in
// memory.
type Store struct {
	db *pebble.DB
}

type cellMerger struct {
	acc Cell
	any bool
}

func (cm *cellMerger) merge(value []byte) error {
	c, err := CellFromTLV(value)
	if err != nil {
		return err
	}
	if cm.any {
		cm.acc = MergeCells(cm.acc, c)
	} else {
		cm.acc, cm.any = c, true
	}
	return nil
}

func (cm *cellMerger) MergeNewer(value []byte) error {
	return cm.merge(value)
}

func (cm *cellMerger) MergeOlder(value []byte) error {
	return cm.merge(value)
}

func (cm *cellMerger) Finish(includesBase bool) ([]byte, io.Closer, error) {
	return cm.acc.TLV(), nil, nil
}

func merger(key, value []byte) (pebble.ValueMerger, error) {
	cm := &cellMerger{}
	if err := cm.merge(value); err != nil {
		return nil, err
	}
	return cm, nil
}

func OpenStore(dir string) (st *Store, err error) {
	opts := pebble.Options{
		Merger: &pebble.Merger{
			Name:  "CRDT",
			Merge: merger,
		},
	}
	db, err := pebble.Open(dir, &opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (st *Store) Close() error {
	return st.db.Close()
}

// Empty reports whether the store holds any cell at all.
func (st *Store) Empty() (bool, error) {
	it, err := st.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return false, err
	}
	defer it.Close()
	return !it.First(), nil
}

func mapKey(name, key string) []byte {
	buf := make([]byte, 0, 2+len(name)+len(key))
	buf = append(buf, 'M')
	buf = append(buf, name...)
	buf = append(buf, 0)
	return append(buf, key...)
}

func seqKey(name string, pos Pos) []byte {
	pb := pos.ZipBytes()
	buf := make([]byte, 0, 2+len(name)+len(pb))
	buf = append(buf, 'E')
	buf = append(buf, name...)
	buf = append(buf, 0)
	return append(buf, pb...)
}

func (st *Store) MergeMapCell(name, key string, c Cell) error {
	return st.db.Merge(mapKey(name, key), c.TLV(), pebble.Sync)
}

func (st *Store) MergeSeqElem(name string, pos Pos, c Cell) error {
	return st.db.Merge(seqKey(name, pos), c.TLV(), pebble.Sync)
}

func prefixBounds(lit byte, name string) ([]byte, []byte) {
	lower := append([]byte{lit}, name...)
	lower = append(lower, 0)
	upper := append([]byte{lit}, name...)
	upper = append(upper, 1)
	return lower, upper
}

// LoadMap merges every stored cell of the named container into m.
func (st *Store) LoadMap(m *Map) error {
	lower, upper := prefixBounds('M', m.Name())
	it, err := st.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		key := string(it.Key()[len(lower):])
		cell, err := CellFromTLV(it.Value())
		if err != nil {
			return err
		}
		m.MergeCell(key, cell)
	}
	return it.Error()
}

// LoadSeq merges every stored element of the named container into s.
func (st *Store) LoadSeq(s *Seq) error {
	lower, upper := prefixBounds('E', s.Name())
	it, err := st.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		pos := PosFromZipBytes(it.Key()[len(lower):])
		cell, err := CellFromTLV(it.Value())
		if err != nil {
			return err
		}
		s.MergeElem(pos, cell)
	}
	return it.Error()
}
