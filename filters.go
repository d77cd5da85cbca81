package gisdoc

import (
	"encoding/json"

	"github.com/jupytergis/gisdoc/gisdoc_errors"
	"github.com/pkg/errors"
)

// getLayerOrFail is the "fetch current" step of every filter edit.
func (doc *Document) getLayerOrFail(layerID string) (LayerDescriptor, error) {
	if doc.closed.Load() {
		return LayerDescriptor{}, gisdoc_errors.ErrClosed
	}
	ld, ok := doc.GetLayer(layerID)
	if !ok {
		return LayerDescriptor{}, errors.Wrapf(gisdoc_errors.ErrLayerNotFound, "%s", layerID)
	}
	return ld, nil
}

// commitLayer is the "commit" step: the whole layer value is
// replaced under its id, never patched in place, so the containers
// resolve concurrent edits at id granularity.
func (doc *Document) commitLayer(layerID string, ld LayerDescriptor) error {
	data, err := json.Marshal(ld)
	if err != nil {
		return err
	}
	doc.layers.Set(layerID, data)
	return nil
}

// AddFilter attaches one more predicate to the layer. The logical
// operator is layer-global: the supplied value replaces the
// existing one for every predicate on the layer.
func (doc *Document) AddFilter(layerID, logicalOp, feature, operator string, value Scalar) error {
	ld, err := doc.getLayerOrFail(layerID)
	if err != nil {
		return err
	}
	next := ld.Filters()
	if next == nil {
		next = &Filters{}
	}
	next.AppliedFilters = append(next.AppliedFilters, Filter{
		Feature:  feature,
		Operator: operator,
		Value:    value,
	})
	next.LogicalOp = logicalOp
	if err = doc.commitLayer(layerID, ld.withFilters(next)); err != nil {
		return err
	}
	doc.countOp("addFilter")
	doc.log.Debug("filter added", "layer", layerID, "feature", feature)
	return nil
}

// UpdateFilter replaces the value of the first predicate matching
// the feature, and the layer's logical operator. Duplicate feature
// names are allowed; only the first match is touched.
func (doc *Document) UpdateFilter(layerID, logicalOp, feature, operator string, value Scalar) error {
	ld, err := doc.getLayerOrFail(layerID)
	if err != nil {
		return err
	}
	next := ld.Filters()
	if next == nil {
		return errors.Wrapf(gisdoc_errors.ErrNoFiltersApplied, "layer %s", layerID)
	}
	at := -1
	for i, filter := range next.AppliedFilters {
		if filter.Feature == feature {
			at = i
			break
		}
	}
	if at == -1 {
		return errors.Wrapf(gisdoc_errors.ErrFeatureNotFound, "%q in layer %s", feature, layerID)
	}
	next.AppliedFilters[at].Value = value
	next.LogicalOp = logicalOp
	if err = doc.commitLayer(layerID, ld.withFilters(next)); err != nil {
		return err
	}
	doc.countOp("updateFilter")
	return nil
}

// ClearFilters empties the predicate list but keeps the filters
// record and its logical operator in place.
func (doc *Document) ClearFilters(layerID string) error {
	ld, err := doc.getLayerOrFail(layerID)
	if err != nil {
		return err
	}
	next := ld.Filters()
	if next == nil {
		return errors.Wrapf(gisdoc_errors.ErrNoFiltersApplied, "layer %s", layerID)
	}
	next.AppliedFilters = []Filter{}
	if err = doc.commitLayer(layerID, ld.withFilters(next)); err != nil {
		return err
	}
	doc.countOp("clearFilters")
	doc.log.Debug("filters cleared", "layer", layerID)
	return nil
}
