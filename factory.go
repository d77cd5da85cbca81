package gisdoc

import (
	"github.com/jupytergis/gisdoc/gisdoc_errors"
	"github.com/jupytergis/gisdoc/schema"
	"github.com/pkg/errors"
)

// RawObject is an untyped, user-supplied description of a layer or
// a source, as it arrives from a client.
type RawObject struct {
	Type       string
	Name       string
	Parameters map[string]any
	Visible    *bool    // layers only; nil means visible
	Filters    *Filters // layers only
}

// Factory resolves a raw description against the schema registry
// and produces a validated descriptor. It is a pure transformation:
// it never touches the document.
type Factory struct {
	reg schema.Registry
}

func NewFactory(reg schema.Registry) *Factory {
	return &Factory{reg: reg}
}

// extract takes exactly the declared fields from the raw bag,
// normalizing present values and defaulting absent ones. Undeclared
// raw fields are dropped on purpose.
func extract(tag string, decl schema.Fields, raw map[string]any) (map[string]any, error) {
	params := make(map[string]any, len(decl))
	for _, field := range decl {
		value, present := raw[field.Name]
		if !present || value == nil {
			if field.Required {
				return nil, errors.Wrapf(gisdoc_errors.ErrValidation,
					"missing required field %q of %s", field.Name, tag)
			}
			params[field.Name] = field.Default
			continue
		}
		norm, err := field.Normalize(value)
		if err != nil {
			return nil, errors.Wrapf(gisdoc_errors.ErrValidation,
				"field %q of %s: %v", field.Name, tag, err)
		}
		params[field.Name] = norm
	}
	return params, nil
}

func validFilters(f *Filters) error {
	if f == nil {
		return nil
	}
	if f.LogicalOp != "all" && f.LogicalOp != "any" {
		return errors.Wrapf(gisdoc_errors.ErrValidation,
			"logicalOp %q is not \"all\" or \"any\"", f.LogicalOp)
	}
	return nil
}

func (f *Factory) CreateSource(raw RawObject) (SourceDescriptor, error) {
	decl, ok := f.reg.SourceFields(schema.SourceType(raw.Type))
	if !ok {
		return SourceDescriptor{}, errors.Wrapf(gisdoc_errors.ErrUnknownType, "source type %q", raw.Type)
	}
	params, err := extract(raw.Type, decl, raw.Parameters)
	if err != nil {
		return SourceDescriptor{}, err
	}
	return SourceDescriptor{
		name:       raw.Name,
		typ:        schema.SourceType(raw.Type),
		parameters: params,
	}, nil
}

func (f *Factory) CreateLayer(raw RawObject) (LayerDescriptor, error) {
	decl, ok := f.reg.LayerFields(schema.LayerType(raw.Type))
	if !ok {
		return LayerDescriptor{}, errors.Wrapf(gisdoc_errors.ErrUnknownType, "layer type %q", raw.Type)
	}
	params, err := extract(raw.Type, decl, raw.Parameters)
	if err != nil {
		return LayerDescriptor{}, err
	}
	if err = validFilters(raw.Filters); err != nil {
		return LayerDescriptor{}, err
	}
	visible := true
	if raw.Visible != nil {
		visible = *raw.Visible
	}
	return LayerDescriptor{
		name:       raw.Name,
		typ:        schema.LayerType(raw.Type),
		visible:    visible,
		parameters: params,
		filters:    raw.Filters.clone(),
	}, nil
}
