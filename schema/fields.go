// Package schema is the static catalogue of parameter shapes for
// every known layer and source type. A shape is an ordered list of
// fields; each field declares its kind, default and whether it is
// required. The catalogue is built once and never mutated.
package schema

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

type Kind byte

const (
	KindString     Kind = 'S'
	KindNumber     Kind = 'N'
	KindBool       Kind = 'B'
	KindEnum       Kind = 'E'
	KindObject     Kind = 'O'
	KindNumberList Kind = 'L'
	KindStringList Kind = 'U'
	KindCoordList  Kind = 'C'
)

type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Default  any
	Terms    []string // allowed values for KindEnum
}

type Fields []Field

func (fs Fields) Find(name string) int {
	for i := 0; i < len(fs); i++ {
		if fs[i].Name == name {
			return i
		}
	}
	return -1
}

func hasUnsafeChars(text string) bool {
	for _, l := range text {
		if l < ' ' {
			return true
		}
	}
	return false
}

func (f Field) Valid() bool {
	switch f.Kind {
	case KindString, KindNumber, KindBool, KindEnum, KindObject,
		KindNumberList, KindStringList, KindCoordList:
	default:
		return false
	}
	if f.Kind == KindEnum && len(f.Terms) == 0 {
		return false
	}
	return len(f.Name) > 0 && utf8.ValidString(f.Name) && !hasUnsafeChars(f.Name)
}

var ErrBadValue = errors.New("schema: bad value for the field")

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func asCoord(v any) ([2]float64, bool) {
	switch c := v.(type) {
	case [2]float64:
		return c, true
	case []float64:
		if len(c) == 2 {
			return [2]float64{c[0], c[1]}, true
		}
	case []any:
		if len(c) == 2 {
			x, okx := asNumber(c[0])
			y, oky := asNumber(c[1])
			if okx && oky {
				return [2]float64{x, y}, true
			}
		}
	}
	return [2]float64{}, false
}

// Normalize checks a raw value against the field's kind and returns
// its canonical form. Required string fields must be non-empty.
func (f Field) Normalize(v any) (any, error) {
	switch f.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok || (f.Required && s == "") {
			return nil, ErrBadValue
		}
		return s, nil

	case KindEnum:
		s, ok := v.(string)
		if !ok {
			return nil, ErrBadValue
		}
		for _, term := range f.Terms {
			if s == term {
				return s, nil
			}
		}
		return nil, errors.Wrapf(ErrBadValue, "%q is not one of %v", s, f.Terms)

	case KindNumber:
		n, ok := asNumber(v)
		if !ok {
			return nil, ErrBadValue
		}
		return n, nil

	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, ErrBadValue
		}
		return b, nil

	case KindObject:
		o, ok := v.(map[string]any)
		if !ok {
			return nil, ErrBadValue
		}
		return o, nil

	case KindNumberList:
		switch list := v.(type) {
		case []float64:
			return list, nil
		case []any:
			out := make([]float64, 0, len(list))
			for _, item := range list {
				n, ok := asNumber(item)
				if !ok {
					return nil, ErrBadValue
				}
				out = append(out, n)
			}
			return out, nil
		}
		return nil, ErrBadValue

	case KindStringList:
		switch list := v.(type) {
		case []string:
			if f.Required && len(list) == 0 {
				return nil, ErrBadValue
			}
			return list, nil
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, ErrBadValue
				}
				out = append(out, s)
			}
			if f.Required && len(out) == 0 {
				return nil, ErrBadValue
			}
			return out, nil
		}
		return nil, ErrBadValue

	case KindCoordList:
		var raw []any
		switch list := v.(type) {
		case [][2]float64:
			if f.Required && len(list) == 0 {
				return nil, ErrBadValue
			}
			return list, nil
		case []any:
			raw = list
		case [][]float64:
			for _, item := range list {
				raw = append(raw, item)
			}
		default:
			return nil, ErrBadValue
		}
		out := make([][2]float64, 0, len(raw))
		for _, item := range raw {
			c, ok := asCoord(item)
			if !ok {
				return nil, ErrBadValue
			}
			out = append(out, c)
		}
		if f.Required && len(out) == 0 {
			return nil, ErrBadValue
		}
		return out, nil
	}
	return nil, ErrBadValue
}
