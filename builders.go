package gisdoc

import (
	"context"
	"encoding/json"
	"os"
	"slices"

	"github.com/jupytergis/gisdoc/gisdoc_errors"
	"github.com/jupytergis/gisdoc/schema"
	"github.com/pkg/errors"
)

// Float is a shorthand for optional numeric options.
func Float(v float64) *float64 {
	return &v
}

func fallback(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func name(given, def string) string {
	if given == "" {
		return def
	}
	return given
}

// FilterSpec is an optional initial filter for a builder call.
type FilterSpec struct {
	LogicalOp string
	Feature   string
	Operator  string
	Value     Scalar
}

func (fs *FilterSpec) filters() *Filters {
	if fs == nil {
		return nil
	}
	return &Filters{
		AppliedFilters: []Filter{{
			Feature:  fs.Feature,
			Operator: fs.Operator,
			Value:    fs.Value,
		}},
		LogicalOp: fs.LogicalOp,
	}
}

// addPair runs the two-step insertion every builder shares: validate
// and store the source, then validate and store the layer referencing
// the fresh source id.
func (doc *Document) addPair(source RawObject, layer RawObject) (string, error) {
	sd, err := doc.factory.CreateSource(source)
	if err != nil {
		return "", err
	}
	sourceID, err := doc.AddSource(sd)
	if err != nil {
		return "", err
	}
	layer.Parameters["source"] = sourceID
	ld, err := doc.factory.CreateLayer(layer)
	if err != nil {
		return "", err
	}
	return doc.AddLayer(ld)
}

func tileSourceParameters(url, attribution string, minZoom, maxZoom float64) map[string]any {
	return map[string]any{
		"url":             url,
		"minZoom":         minZoom,
		"maxZoom":         maxZoom,
		"attribution":     attribution,
		"htmlAttribution": attribution,
		"provider":        "",
		"bounds":          []float64{},
		"urlParameters":   map[string]any{},
	}
}

type RasterLayerOptions struct {
	Name        string // default "Raster Layer"
	Attribution string
	Opacity     *float64 // default 1
}

// AddRasterLayer adds a tile-based raster layer from a tiles URL.
// Returns the new layer's id.
func (doc *Document) AddRasterLayer(url string, o RasterLayerOptions) (string, error) {
	layerName := name(o.Name, "Raster Layer")
	return doc.addPair(
		RawObject{
			Type:       string(schema.RasterSource),
			Name:       layerName + " Source",
			Parameters: tileSourceParameters(url, o.Attribution, 0, 24),
		},
		RawObject{
			Type: string(schema.RasterLayer),
			Name: layerName,
			Parameters: map[string]any{
				"opacity": fallback(o.Opacity, 1),
			},
		},
	)
}

type VectorTileLayerOptions struct {
	Name        string // default "Vector Tile Layer"
	SourceLayer string // auto-selected if the source exposes exactly one
	Attribution string
	MinZoom     *float64 // default 0
	MaxZoom     *float64 // default 24
	Type        string   // circle, fill or line; default line
	Color       string   // default #FF0000
	Opacity     *float64 // default 1
	Filter      *FilterSpec
}

// AddVectorTileLayer adds a vector tile layer from a tiles URL. The
// named sub-layer must exist among the ones the source exposes.
func (doc *Document) AddVectorTileLayer(ctx context.Context, url string, o VectorTileLayerOptions) (string, error) {
	available, err := doc.tilemeta.SourceLayers(ctx, url)
	if err != nil {
		return "", err
	}
	sourceLayer := o.SourceLayer
	if sourceLayer == "" && len(available) == 1 {
		sourceLayer = available[0]
	}
	if !slices.Contains(available, sourceLayer) {
		return "", errors.Wrapf(gisdoc_errors.ErrAmbiguousInput,
			"source layer %q should be one of %v", sourceLayer, available)
	}
	layerName := name(o.Name, "Vector Tile Layer")
	return doc.addPair(
		RawObject{
			Type: string(schema.VectorTileSource),
			Name: layerName + " Source",
			Parameters: tileSourceParameters(url, o.Attribution,
				fallback(o.MinZoom, 0), fallback(o.MaxZoom, 24)),
		},
		RawObject{
			Type: string(schema.VectorTileLayer),
			Name: layerName,
			Parameters: map[string]any{
				"type":        name(o.Type, "line"),
				"color":       name(o.Color, "#FF0000"),
				"opacity":     fallback(o.Opacity, 1),
				"sourceLayer": sourceLayer,
			},
			Filters: o.Filter.filters(),
		},
	)
}

type GeoJSONLayerOptions struct {
	// Exactly one of Path and Data must be given. A path is read
	// and embedded as inline data: the front-end has no reliable
	// way of finding a kernel-side file.
	Path    string
	Data    map[string]any
	Name    string   // default "GeoJSON Layer"
	Type    string   // circle, fill or line; default line
	Color   string   // default #FF0000
	Opacity *float64 // default 1
	Filter  *FilterSpec
}

// AddGeoJSONLayer adds a vector layer from GeoJSON data.
func (doc *Document) AddGeoJSONLayer(o GeoJSONLayerOptions) (string, error) {
	if o.Path == "" && o.Data == nil {
		return "", errors.Wrap(gisdoc_errors.ErrAmbiguousInput,
			"cannot create a GeoJSON layer without data")
	}
	if o.Path != "" && o.Data != nil {
		return "", errors.Wrap(gisdoc_errors.ErrAmbiguousInput,
			"cannot set GeoJSON layer data and path at the same time")
	}
	data := o.Data
	if o.Path != "" {
		raw, err := os.ReadFile(o.Path)
		if err != nil {
			return "", err
		}
		if err = json.Unmarshal(raw, &data); err != nil {
			return "", errors.Wrapf(gisdoc_errors.ErrValidation, "%s: %v", o.Path, err)
		}
	}
	layerName := name(o.Name, "GeoJSON Layer")
	return doc.addPair(
		RawObject{
			Type:       string(schema.GeoJSONSource),
			Name:       layerName + " Source",
			Parameters: map[string]any{"data": data},
		},
		RawObject{
			Type: string(schema.VectorLayer),
			Name: layerName,
			Parameters: map[string]any{
				"type":    name(o.Type, "line"),
				"color":   name(o.Color, "#FF0000"),
				"opacity": fallback(o.Opacity, 1),
			},
			Filters: o.Filter.filters(),
		},
	)
}

type ImageLayerOptions struct {
	Name    string   // default "Image Layer"
	Opacity *float64 // default 1
}

// AddImageLayer adds a georeferenced image layer. Coordinates are
// the image corners as longitude, latitude pairs.
func (doc *Document) AddImageLayer(url string, coordinates [][2]float64, o ImageLayerOptions) (string, error) {
	if url == "" || coordinates == nil {
		return "", errors.Wrap(gisdoc_errors.ErrAmbiguousInput, "url and coordinates are required")
	}
	layerName := name(o.Name, "Image Layer")
	return doc.addPair(
		RawObject{
			Type: string(schema.ImageSource),
			Name: layerName + " Source",
			Parameters: map[string]any{
				"url":         url,
				"coordinates": coordinates,
			},
		},
		RawObject{
			Type: string(schema.RasterLayer),
			Name: layerName,
			Parameters: map[string]any{
				"opacity": fallback(o.Opacity, 1),
			},
		},
	)
}

type VideoLayerOptions struct {
	Name    string   // default "Video Layer"
	Opacity *float64 // default 1
}

// AddVideoLayer adds a georeferenced video layer. URLs are candidate
// video content in order of preferred format.
func (doc *Document) AddVideoLayer(urls []string, coordinates [][2]float64, o VideoLayerOptions) (string, error) {
	if len(urls) == 0 || coordinates == nil {
		return "", errors.Wrap(gisdoc_errors.ErrAmbiguousInput, "urls and coordinates are required")
	}
	layerName := name(o.Name, "Video Layer")
	return doc.addPair(
		RawObject{
			Type: string(schema.VideoSource),
			Name: layerName + " Source",
			Parameters: map[string]any{
				"urls":        urls,
				"coordinates": coordinates,
			},
		},
		RawObject{
			Type: string(schema.RasterLayer),
			Name: layerName,
			Parameters: map[string]any{
				"opacity": fallback(o.Opacity, 1),
			},
		},
	)
}
