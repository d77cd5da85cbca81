package crdt

import (
	"bytes"
	"slices"
	"sync"

	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/learn-decentralized-systems/toytlv"
)

// Map is a replicated string-keyed map. Each key is an independent
// LWW register; concurrent writes to different keys never conflict,
// concurrent writes to the same key resolve by the cell merge rule.
type Map struct {
	name  string
	clock Clock

	lock  sync.RWMutex
	cells map[string]Cell
	hook  func(key string, c Cell)
}

func NewMap(name string, clock Clock) *Map {
	return &Map{
		name:  name,
		clock: clock,
		cells: make(map[string]Cell),
	}
}

func (m *Map) Name() string {
	return m.name
}

// OnSet registers a single write-through hook, called after every
// local or merged write with the winning cell.
func (m *Map) OnSet(hook func(key string, c Cell)) {
	m.hook = hook
}

// Set stores the value under the key with a fresh stamp.
func (m *Map) Set(key string, value []byte) Time {
	m.lock.Lock()
	cell := Cell{Time: m.clock.Tick(), Value: slices.Clone(value)}
	m.cells[key] = cell
	m.lock.Unlock()
	if m.hook != nil {
		m.hook(key, cell)
	}
	return cell.Time
}

// Delete writes a tombstone. Readers observe the key as absent.
func (m *Map) Delete(key string) Time {
	m.lock.Lock()
	cell := Cell{Time: m.clock.Tick(), Dead: true}
	m.cells[key] = cell
	m.lock.Unlock()
	if m.hook != nil {
		m.hook(key, cell)
	}
	return cell.Time
}

func (m *Map) Get(key string) (value []byte, ok bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	cell, ok := m.cells[key]
	if !ok || cell.Dead {
		return nil, false
	}
	return slices.Clone(cell.Value), true
}

func (m *Map) Cell(key string) (Cell, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	cell, ok := m.cells[key]
	return cell, ok
}

func (m *Map) Len() (count int) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for _, cell := range m.cells {
		if !cell.Dead {
			count++
		}
	}
	return
}

func (m *Map) Keys() []string {
	m.lock.RLock()
	keys := make([]string, 0, len(m.cells))
	for key, cell := range m.cells {
		if !cell.Dead {
			keys = append(keys, key)
		}
	}
	m.lock.RUnlock()
	slices.Sort(keys)
	return keys
}

func (m *Map) Range(f func(key string, value []byte) bool) {
	for _, key := range m.Keys() {
		value, ok := m.Get(key)
		if ok && !f(key, value) {
			return
		}
	}
}

// MergeCell folds a remote cell in, returns whether it won.
func (m *Map) MergeCell(key string, c Cell) bool {
	m.lock.Lock()
	m.clock.See(c.Time)
	old, ok := m.cells[key]
	if ok {
		c = MergeCells(old, c)
		if c.Time == old.Time && c.Dead == old.Dead && bytes.Equal(c.Value, old.Value) {
			m.lock.Unlock()
			return false
		}
	}
	m.cells[key] = c
	m.lock.Unlock()
	if m.hook != nil {
		m.hook(key, c)
	}
	return true
}

// Diff emits one 'M' record per cell the given version vector has
// not seen yet.
func (m *Map) Diff(vv VV) (recs toyqueue.Records) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for key, cell := range m.cells {
		if vv.Covers(cell.Time) {
			continue
		}
		recs = append(recs, toytlv.Record('M',
			toytlv.TinyRecord('N', []byte(m.name)),
			toytlv.TinyRecord('K', []byte(key)),
			cell.TLV(),
		))
	}
	return
}

// Seen collects every stamp in the map into the version vector.
func (m *Map) Seen(vv VV) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for _, cell := range m.cells {
		vv.PutTime(cell.Time)
	}
}

// ParseMapRecord unpacks an 'M' diff record.
func ParseMapRecord(bulk []byte) (name, key string, c Cell, err error) {
	body, _, err := toytlv.TakeWary('M', bulk)
	if err != nil {
		return
	}
	nb, rest, err := toytlv.TakeWary('N', body)
	if err != nil {
		return
	}
	kb, rest, err := toytlv.TakeWary('K', rest)
	if err != nil {
		return
	}
	c, err = CellFromTLV(rest)
	if err != nil {
		return
	}
	return string(nb), string(kb), c, nil
}
