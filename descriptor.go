package gisdoc

import (
	"encoding/json"
	"maps"

	"github.com/jupytergis/gisdoc/gisdoc_errors"
	"github.com/jupytergis/gisdoc/schema"
	"github.com/pkg/errors"
)

// Scalar is the closed value type allowed at the filter boundary:
// a string, a number or a boolean, nothing else. The zero Scalar is
// an unset value and travels as JSON null.
type Scalar struct {
	kind byte // 'S', 'N' or 'B'
	str  string
	num  float64
	b    bool
}

func String(s string) Scalar {
	return Scalar{kind: 'S', str: s}
}

func Number(n float64) Scalar {
	return Scalar{kind: 'N', num: n}
}

func Bool(b bool) Scalar {
	return Scalar{kind: 'B', b: b}
}

// ScalarOf narrows an arbitrary value to the closed scalar type.
func ScalarOf(v any) (Scalar, error) {
	switch t := v.(type) {
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case bool:
		return Bool(t), nil
	case Scalar:
		return t, nil
	}
	return Scalar{}, errors.Wrapf(gisdoc_errors.ErrValidation, "filter value %v is not a string, number or bool", v)
}

func (s Scalar) IsZero() bool {
	return s.kind == 0
}

func (s Scalar) Native() any {
	switch s.kind {
	case 'S':
		return s.str
	case 'N':
		return s.num
	case 'B':
		return s.b
	}
	return nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Native())
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*s = Scalar{}
		return nil
	}
	sc, err := ScalarOf(v)
	if err != nil {
		return err
	}
	*s = sc
	return nil
}

// Filter is one predicate over a feature property.
type Filter struct {
	Feature  string `json:"feature"`
	Operator string `json:"operator"`
	Value    Scalar `json:"value"`
}

// Filters is the per-layer filter state: an ordered predicate list
// combined by a single logical operator, "all" or "any".
type Filters struct {
	AppliedFilters []Filter `json:"appliedFilters"`
	LogicalOp      string   `json:"logicalOp"`
}

func (f *Filters) clone() *Filters {
	if f == nil {
		return nil
	}
	cp := &Filters{
		AppliedFilters: make([]Filter, len(f.AppliedFilters)),
		LogicalOp:      f.LogicalOp,
	}
	copy(cp.AppliedFilters, f.AppliedFilters)
	return cp
}

// TreeGroup is a named grouping node in the layer tree.
type TreeGroup struct {
	Name     string     `json:"name"`
	Children []TreeNode `json:"layers"`
}

// TreeNode is a layer tree entry: either a layer id leaf or a group.
type TreeNode struct {
	LayerID string
	Group   *TreeGroup
}

func (n TreeNode) MarshalJSON() ([]byte, error) {
	if n.Group != nil {
		return json.Marshal(n.Group)
	}
	return json.Marshal(n.LayerID)
}

func (n *TreeNode) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*n = TreeNode{LayerID: id}
		return nil
	}
	var group TreeGroup
	if err := json.Unmarshal(data, &group); err != nil {
		return err
	}
	*n = TreeNode{Group: &group}
	return nil
}

// SourceDescriptor is a validated description of where map data
// comes from. Construct one through the Factory, never by hand.
type SourceDescriptor struct {
	name       string
	typ        schema.SourceType
	parameters map[string]any
}

func (sd SourceDescriptor) Name() string {
	return sd.name
}

func (sd SourceDescriptor) Type() schema.SourceType {
	return sd.typ
}

func (sd SourceDescriptor) Parameters() map[string]any {
	return maps.Clone(sd.parameters)
}

type sourceWire struct {
	Name       string            `json:"name"`
	Type       schema.SourceType `json:"type"`
	Parameters map[string]any    `json:"parameters"`
}

func (sd SourceDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(sourceWire{Name: sd.name, Type: sd.typ, Parameters: sd.parameters})
}

func (sd *SourceDescriptor) UnmarshalJSON(data []byte) error {
	var wire sourceWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*sd = SourceDescriptor{name: wire.Name, typ: wire.Type, parameters: wire.Parameters}
	return nil
}

// LayerDescriptor is a validated description of a renderable layer.
// Its parameters always carry a "source" field with a source id.
type LayerDescriptor struct {
	name       string
	typ        schema.LayerType
	visible    bool
	parameters map[string]any
	filters    *Filters
}

func (ld LayerDescriptor) Name() string {
	return ld.name
}

func (ld LayerDescriptor) Type() schema.LayerType {
	return ld.typ
}

func (ld LayerDescriptor) Visible() bool {
	return ld.visible
}

func (ld LayerDescriptor) Parameters() map[string]any {
	return maps.Clone(ld.parameters)
}

func (ld LayerDescriptor) SourceID() string {
	id, _ := ld.parameters["source"].(string)
	return id
}

func (ld LayerDescriptor) Filters() *Filters {
	return ld.filters.clone()
}

// withFilters builds the next immutable value for a whole-record
// replacement; the stored one is never patched in place.
func (ld LayerDescriptor) withFilters(f *Filters) LayerDescriptor {
	next := ld
	next.filters = f
	return next
}

type layerWire struct {
	Name       string           `json:"name"`
	Type       schema.LayerType `json:"type"`
	Visible    bool             `json:"visible"`
	Parameters map[string]any   `json:"parameters"`
	Filters    *Filters         `json:"filters,omitempty"`
}

func (ld LayerDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(layerWire{
		Name:       ld.name,
		Type:       ld.typ,
		Visible:    ld.visible,
		Parameters: ld.parameters,
		Filters:    ld.filters,
	})
}

func (ld *LayerDescriptor) UnmarshalJSON(data []byte) error {
	var wire layerWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*ld = LayerDescriptor{
		name:       wire.Name,
		typ:        wire.Type,
		visible:    wire.Visible,
		parameters: wire.Parameters,
		filters:    wire.Filters,
	}
	return nil
}
