// Package gisdoc maintains a shared, structured document describing
// a map scene: data sources, layers referencing them, an ordered
// layer tree and global view options. The document state lives in
// conflict-free replicated containers, so several editors can
// mutate it independently and still converge.
package gisdoc

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync/atomic"

	"github.com/jupytergis/gisdoc/crdt"
	"github.com/jupytergis/gisdoc/gisdoc_errors"
	"github.com/jupytergis/gisdoc/schema"
	"github.com/jupytergis/gisdoc/tilemeta"
	"github.com/jupytergis/gisdoc/utils"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// ViewOptions are the initial view parameters. Each field is set
// independently; nil fields are left out of the document.
type ViewOptions struct {
	Latitude   *float64
	Longitude  *float64
	Zoom       *float64
	Bearing    *float64
	Pitch      *float64
	Extent     []float64
	Projection string
}

type Options struct {
	// Src identifies this replica in write stamps. Zero picks a
	// random one.
	Src uint64
	// View is applied to a fresh document only; loaded state wins.
	View     *ViewOptions
	Logger   utils.Logger
	Registry schema.Registry
	TileMeta tilemeta.Lister
}

func (o *Options) SetDefaults() {
	if o.Src == 0 {
		o.Src = rand.Uint64()>>12 | 1
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	if o.Registry.Empty() {
		o.Registry = schema.Builtin()
	}
	if o.TileMeta == nil {
		o.TileMeta = tilemeta.NewClient()
	}
}

// Change names a single container mutation, for UI subscribers.
type Change struct {
	Container string
	Key       string
}

// Document owns the four replicated containers of one map scene.
type Document struct {
	clock *crdt.LocalClock

	sources   *crdt.Map
	layers    *crdt.Map
	options   *crdt.Map
	layerTree *crdt.Seq

	store    *crdt.Store
	factory  *Factory
	tilemeta tilemeta.Lister
	log      utils.Logger

	opCounts *xsync.MapOf[string, *xsync.Counter]

	triggers utils.CMap[uint64, func(Change)]
	nextTrig atomic.Uint64

	closed atomic.Bool
}

// Open creates or loads a document. An empty path gives a fresh
// in-memory document; otherwise state is persisted at the given
// directory and loaded state wins over opts.View.
func Open(path string, opts Options) (doc *Document, err error) {
	opts.SetDefaults()
	doc = &Document{
		clock:    &crdt.LocalClock{Source: opts.Src},
		factory:  NewFactory(opts.Registry),
		tilemeta: opts.TileMeta,
		log:      opts.Logger,
		opCounts: xsync.NewMapOf[string, *xsync.Counter](),
	}
	doc.sources = crdt.NewMap("sources", doc.clock)
	doc.layers = crdt.NewMap("layers", doc.clock)
	doc.options = crdt.NewMap("options", doc.clock)
	doc.layerTree = crdt.NewSeq("layerTree", doc.clock)

	fresh := true
	if path != "" {
		doc.store, err = crdt.OpenStore(path)
		if err != nil {
			return nil, errors.Wrapf(gisdoc_errors.ErrBadDocumentFile, "%s: %v", path, err)
		}
		fresh, err = doc.store.Empty()
		if err == nil {
			err = doc.load()
		}
		if err != nil {
			_ = doc.store.Close()
			return nil, errors.Wrapf(gisdoc_errors.ErrBadDocumentFile, "%s: %v", path, err)
		}
	}

	doc.hookContainers()
	if fresh && opts.View != nil {
		doc.applyView(opts.View)
	}
	doc.log.Debug("document open", "path", path, "src", opts.Src, "fresh", fresh)
	return doc, nil
}

// load pulls persisted state in before the write-through hooks are
// installed, so loading does not rewrite the store.
func (doc *Document) load() error {
	for _, m := range []*crdt.Map{doc.sources, doc.layers, doc.options} {
		if err := doc.store.LoadMap(m); err != nil {
			return err
		}
	}
	return doc.store.LoadSeq(doc.layerTree)
}

func (doc *Document) hookContainers() {
	for _, m := range []*crdt.Map{doc.sources, doc.layers, doc.options} {
		m := m
		m.OnSet(func(key string, c crdt.Cell) {
			if doc.store != nil {
				if err := doc.store.MergeMapCell(m.Name(), key, c); err != nil {
					doc.log.Error("write-through failed", "container", m.Name(), "key", key, "err", err)
				}
			}
			doc.notify(Change{Container: m.Name(), Key: key})
		})
	}
	doc.layerTree.OnSet(func(pos crdt.Pos, c crdt.Cell) {
		if doc.store != nil {
			if err := doc.store.MergeSeqElem(doc.layerTree.Name(), pos, c); err != nil {
				doc.log.Error("write-through failed", "container", doc.layerTree.Name(), "err", err)
			}
		}
		doc.notify(Change{Container: doc.layerTree.Name()})
	})
}

func (doc *Document) applyView(view *ViewOptions) {
	set := func(name string, v *float64) {
		if v != nil {
			_ = doc.SetOption(name, *v)
		}
	}
	set("latitude", view.Latitude)
	set("longitude", view.Longitude)
	set("zoom", view.Zoom)
	set("bearing", view.Bearing)
	set("pitch", view.Pitch)
	if view.Extent != nil {
		_ = doc.SetOption("extent", view.Extent)
	}
	if view.Projection != "" {
		_ = doc.SetOption("projection", view.Projection)
	}
}

func (doc *Document) Close() error {
	if doc.closed.Swap(true) {
		return gisdoc_errors.ErrClosed
	}
	if doc.store != nil {
		return doc.store.Close()
	}
	return nil
}

// Src is the replica id used in this document's write stamps.
func (doc *Document) Src() uint64 {
	return doc.clock.Src()
}

// OnChange registers a trigger called after every container
// mutation, local or merged. Returns an unsubscribe func.
func (doc *Document) OnChange(trigger func(Change)) (cancel func()) {
	id := doc.nextTrig.Add(1)
	doc.triggers.Store(id, trigger)
	return func() { doc.triggers.Delete(id) }
}

func (doc *Document) notify(ch Change) {
	doc.triggers.Range(func(_ uint64, trigger func(Change)) bool {
		trigger(ch)
		return true
	})
}

func (doc *Document) countOp(op string) {
	counter, _ := doc.opCounts.LoadOrCompute(op, func() *xsync.Counter {
		return xsync.NewCounter()
	})
	counter.Inc()
}

// SetOption writes one view option. Values are stored raw; the core
// does not validate view parameters.
func (doc *Document) SetOption(name string, value any) error {
	if doc.closed.Load() {
		return gisdoc_errors.ErrClosed
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	doc.options.Set(name, data)
	doc.countOp("setOption")
	return nil
}

// Option reads one view option; absence is a normal outcome.
func (doc *Document) Option(name string) (value any, ok bool) {
	data, ok := doc.options.Get(name)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false
	}
	return value, true
}

// SnapshotOptions converts the options container to a plain map.
func (doc *Document) SnapshotOptions() map[string]any {
	ret := make(map[string]any)
	doc.options.Range(func(key string, data []byte) bool {
		var value any
		if json.Unmarshal(data, &value) == nil {
			ret[key] = value
		}
		return true
	})
	return ret
}
