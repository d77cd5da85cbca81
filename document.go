package gisdoc

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jupytergis/gisdoc/gisdoc_errors"
)

// AddSource stores a validated source under a fresh id.
func (doc *Document) AddSource(sd SourceDescriptor) (id string, err error) {
	if doc.closed.Load() {
		return "", gisdoc_errors.ErrClosed
	}
	data, err := json.Marshal(sd)
	if err != nil {
		return "", err
	}
	id = uuid.NewString()
	doc.sources.Set(id, data)
	doc.countOp("addSource")
	doc.log.Debug("source added", "id", id, "type", sd.Type())
	return id, nil
}

// AddLayer stores a validated layer under a fresh id and appends
// the id to the layer tree. The map insert and the tree append are
// two independently replicated writes; a remote reader may briefly
// observe one without the other.
func (doc *Document) AddLayer(ld LayerDescriptor) (id string, err error) {
	if doc.closed.Load() {
		return "", gisdoc_errors.ErrClosed
	}
	data, err := json.Marshal(ld)
	if err != nil {
		return "", err
	}
	id = uuid.NewString()
	doc.layers.Set(id, data)
	node, err := json.Marshal(TreeNode{LayerID: id})
	if err != nil {
		return "", err
	}
	doc.layerTree.Append(node)
	doc.countOp("addLayer")
	doc.log.Debug("layer added", "id", id, "type", ld.Type())
	return id, nil
}

// GetSource looks a source up; absence is a normal outcome.
func (doc *Document) GetSource(id string) (sd SourceDescriptor, ok bool) {
	data, ok := doc.sources.Get(id)
	if !ok {
		return SourceDescriptor{}, false
	}
	if err := json.Unmarshal(data, &sd); err != nil {
		doc.log.Error("undecodable source record", "id", id, "err", err)
		return SourceDescriptor{}, false
	}
	return sd, true
}

// GetLayer looks a layer up; absence is a normal outcome.
func (doc *Document) GetLayer(id string) (ld LayerDescriptor, ok bool) {
	data, ok := doc.layers.Get(id)
	if !ok {
		return LayerDescriptor{}, false
	}
	if err := json.Unmarshal(data, &ld); err != nil {
		doc.log.Error("undecodable layer record", "id", id, "err", err)
		return LayerDescriptor{}, false
	}
	return ld, true
}

// SnapshotLayers converts the layers container to a plain map.
// The snapshot does not observe later mutations.
func (doc *Document) SnapshotLayers() map[string]LayerDescriptor {
	ret := make(map[string]LayerDescriptor)
	doc.layers.Range(func(id string, data []byte) bool {
		var ld LayerDescriptor
		if json.Unmarshal(data, &ld) == nil {
			ret[id] = ld
		}
		return true
	})
	return ret
}

// SnapshotSources converts the sources container to a plain map.
func (doc *Document) SnapshotSources() map[string]SourceDescriptor {
	ret := make(map[string]SourceDescriptor)
	doc.sources.Range(func(id string, data []byte) bool {
		var sd SourceDescriptor
		if json.Unmarshal(data, &sd) == nil {
			ret[id] = sd
		}
		return true
	})
	return ret
}

// SnapshotTree converts the layer tree to a plain node slice, in
// the authoritative order.
func (doc *Document) SnapshotTree() []TreeNode {
	values := doc.layerTree.Values()
	nodes := make([]TreeNode, 0, len(values))
	for _, data := range values {
		var node TreeNode
		if json.Unmarshal(data, &node) == nil {
			nodes = append(nodes, node)
		}
	}
	return nodes
}
