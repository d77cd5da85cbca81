package schema

import "slices"

type SourceType string

const (
	RasterSource     SourceType = "RasterSource"
	VectorTileSource SourceType = "VectorTileSource"
	GeoJSONSource    SourceType = "GeoJSONSource"
	ImageSource      SourceType = "ImageSource"
	VideoSource      SourceType = "VideoSource"
)

type LayerType string

const (
	RasterLayer     LayerType = "RasterLayer"
	VectorLayer     LayerType = "VectorLayer"
	VectorTileLayer LayerType = "VectorTileLayer"
	HillshadeLayer  LayerType = "HillshadeLayer"
	ImageLayer      LayerType = "ImageLayer"
	WebGlLayer      LayerType = "WebGlLayer"
)

// RenderTypes are the vector render kinds a vector layer can use.
var RenderTypes = []string{"circle", "fill", "line"}

// Registry maps a type tag to its declared parameter shape.
// It is a value, not a singleton: construct one with Builtin and
// pass it to whoever validates objects.
type Registry struct {
	sources map[SourceType]Fields
	layers  map[LayerType]Fields
}

// NewRegistry builds a registry from explicit tables, for catalogues
// narrower or wider than the builtin one.
func NewRegistry(sources map[SourceType]Fields, layers map[LayerType]Fields) Registry {
	return Registry{sources: sources, layers: layers}
}

// Empty reports whether the registry holds no tables at all, i.e. is
// the zero value rather than a deliberately narrow catalogue.
func (r Registry) Empty() bool {
	return r.sources == nil && r.layers == nil
}

func (r Registry) SourceFields(t SourceType) (Fields, bool) {
	fs, ok := r.sources[t]
	return fs, ok
}

func (r Registry) LayerFields(t LayerType) (Fields, bool) {
	fs, ok := r.layers[t]
	return fs, ok
}

func (r Registry) SourceTypes() []SourceType {
	types := make([]SourceType, 0, len(r.sources))
	for t := range r.sources {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

func (r Registry) LayerTypes() []LayerType {
	types := make([]LayerType, 0, len(r.layers))
	for t := range r.layers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// tileSourceFields is shared by the raster and vector tile sources.
func tileSourceFields() Fields {
	return Fields{
		{Name: "url", Kind: KindString, Required: true},
		{Name: "minZoom", Kind: KindNumber, Default: float64(0)},
		{Name: "maxZoom", Kind: KindNumber, Default: float64(24)},
		{Name: "attribution", Kind: KindString, Default: ""},
		{Name: "htmlAttribution", Kind: KindString, Default: ""},
		{Name: "provider", Kind: KindString, Default: ""},
		{Name: "bounds", Kind: KindNumberList, Default: []float64{}},
		{Name: "urlParameters", Kind: KindObject, Default: map[string]any{}},
	}
}

func vectorLayerFields() Fields {
	return Fields{
		{Name: "source", Kind: KindString, Required: true},
		{Name: "type", Kind: KindEnum, Terms: RenderTypes, Default: "line"},
		{Name: "color", Kind: KindString, Default: "#FF0000"},
		{Name: "opacity", Kind: KindNumber, Default: float64(1)},
	}
}

// Builtin returns the full catalogue of known layer and source
// shapes. The returned value is safe to share between documents.
func Builtin() Registry {
	return Registry{
		sources: map[SourceType]Fields{
			RasterSource:     tileSourceFields(),
			VectorTileSource: tileSourceFields(),
			GeoJSONSource: {
				{Name: "data", Kind: KindObject, Required: true},
				{Name: "path", Kind: KindString, Default: ""},
			},
			ImageSource: {
				{Name: "url", Kind: KindString, Required: true},
				{Name: "coordinates", Kind: KindCoordList, Required: true},
			},
			VideoSource: {
				{Name: "urls", Kind: KindStringList, Required: true},
				{Name: "coordinates", Kind: KindCoordList, Required: true},
			},
		},
		layers: map[LayerType]Fields{
			RasterLayer: {
				{Name: "source", Kind: KindString, Required: true},
				{Name: "opacity", Kind: KindNumber, Default: float64(1)},
			},
			VectorLayer: vectorLayerFields(),
			VectorTileLayer: append(vectorLayerFields(),
				Field{Name: "sourceLayer", Kind: KindString, Default: ""}),
			HillshadeLayer: {
				{Name: "source", Kind: KindString, Required: true},
				{Name: "shadowColor", Kind: KindString, Default: "#473B24"},
			},
			ImageLayer: {
				{Name: "source", Kind: KindString, Required: true},
				{Name: "opacity", Kind: KindNumber, Default: float64(1)},
			},
			WebGlLayer: {
				{Name: "source", Kind: KindString, Required: true},
				{Name: "color", Kind: KindString, Default: "#FF0000"},
				{Name: "opacity", Kind: KindNumber, Default: float64(1)},
			},
		},
	}
}
