package gisdoc

import (
	"github.com/jupytergis/gisdoc/crdt"
	"github.com/jupytergis/gisdoc/gisdoc_errors"
	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/learn-decentralized-systems/toytlv"
	"github.com/pkg/errors"
)

// VersionVector summarizes every write stamp this document has
// seen, across all four containers.
func (doc *Document) VersionVector() crdt.VV {
	vv := make(crdt.VV)
	doc.sources.Seen(vv)
	doc.layers.Seen(vv)
	doc.options.Seen(vv)
	doc.layerTree.Seen(vv)
	return vv
}

// Deltas emits the TLV records a replica with the given version
// vector is missing. Feed them to that replica's Apply.
func (doc *Document) Deltas(since crdt.VV) (recs toyqueue.Records) {
	recs = append(recs, doc.sources.Diff(since)...)
	recs = append(recs, doc.layers.Diff(since)...)
	recs = append(recs, doc.options.Diff(since)...)
	recs = append(recs, doc.layerTree.Diff(since)...)
	return
}

// Apply merges delta records produced by another replica. Applying
// the same batch twice is harmless.
func (doc *Document) Apply(recs toyqueue.Records) error {
	if doc.closed.Load() {
		return gisdoc_errors.ErrClosed
	}
	for _, rec := range recs {
		switch toytlv.Lit(rec) {
		case 'M':
			name, key, cell, err := crdt.ParseMapRecord(rec)
			if err != nil {
				return err
			}
			m, err := doc.mapByName(name)
			if err != nil {
				return err
			}
			m.MergeCell(key, cell)
		case 'E':
			name, pos, cell, err := crdt.ParseSeqRecord(rec)
			if err != nil {
				return err
			}
			if name != doc.layerTree.Name() {
				return errors.Errorf("gisdoc: unknown sequence container %q", name)
			}
			doc.layerTree.MergeElem(pos, cell)
		default:
			return errors.Errorf("gisdoc: unknown delta record %q", toytlv.Lit(rec))
		}
	}
	doc.countOp("apply")
	return nil
}

func (doc *Document) mapByName(name string) (*crdt.Map, error) {
	switch name {
	case doc.sources.Name():
		return doc.sources, nil
	case doc.layers.Name():
		return doc.layers, nil
	case doc.options.Name():
		return doc.options, nil
	}
	return nil, errors.Errorf("gisdoc: unknown map container %q", name)
}

// SyncWith exchanges deltas both ways, leaving the two documents
// with identical container contents.
func (doc *Document) SyncWith(other *Document) error {
	if err := other.Apply(doc.Deltas(other.VersionVector())); err != nil {
		return err
	}
	return doc.Apply(other.Deltas(doc.VersionVector()))
}
